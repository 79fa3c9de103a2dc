package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeModelService struct {
	t *testing.T

	conversationsCreated int
	lastRequest          responsesRequest

	events []string // raw SSE frames for /v1/responses
}

func (f *fakeModelService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/conversations", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(f.t, http.MethodPost, r.Method)
		require.Equal(f.t, "Bearer test-key", r.Header.Get("Authorization"))
		f.conversationsCreated++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"conv_%d"}`, f.conversationsCreated)
	})
	mux.HandleFunc("/v1/responses", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastRequest))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range f.events {
			_, _ = w.Write([]byte(ev))
		}
	})
	return mux
}

func delta(text string) string {
	b, _ := json.Marshal(map[string]any{
		"type":  "response.output_text.delta",
		"delta": text,
	})
	return "event: response.output_text.delta\ndata: " + string(b) + "\n\n"
}

func TestOrchestrator_BuffersStreamedReply(t *testing.T) {
	fake := &fakeModelService{t: t, events: []string{
		delta("It sounds "),
		delta("like a long day. "),
		delta("Try a short walk."),
		"event: response.completed\ndata: {\"type\":\"response.completed\"}\n\n",
		"data: [DONE]\n\n",
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewHTTPClient("test-key", srv.URL, "test-model", nil)
	o := &Orchestrator{Client: client}

	reply, err := o.RunConversation(context.Background(), "prompt text")
	require.NoError(t, err)
	require.Equal(t, "It sounds like a long day. Try a short walk.", reply)

	require.Equal(t, 1, fake.conversationsCreated)
	require.Equal(t, "conv_1", fake.lastRequest.Conversation)
	require.True(t, fake.lastRequest.Stream)
	require.Equal(t, "test-model", fake.lastRequest.Model)
	require.Contains(t, fake.lastRequest.Instructions, "counselor")
	require.Len(t, fake.lastRequest.Input, 1)
	require.Equal(t, "prompt text", fake.lastRequest.Input[0].Content)
}

func TestOrchestrator_FreshConversationPerRun(t *testing.T) {
	fake := &fakeModelService{t: t, events: []string{delta("ok"), "data: [DONE]\n\n"}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	o := &Orchestrator{Client: NewHTTPClient("test-key", srv.URL, "test-model", nil)}

	_, err := o.RunConversation(context.Background(), "first")
	require.NoError(t, err)
	_, err = o.RunConversation(context.Background(), "second")
	require.NoError(t, err)

	require.Equal(t, 2, fake.conversationsCreated)
	require.Equal(t, "conv_2", fake.lastRequest.Conversation)
}

func TestOrchestrator_ErrorEventRejects(t *testing.T) {
	fake := &fakeModelService{t: t, events: []string{
		delta("partial "),
		"data: {\"type\":\"error\",\"error\":{\"message\":\"overloaded\"}}\n\n",
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	o := &Orchestrator{Client: NewHTTPClient("test-key", srv.URL, "test-model", nil)}

	_, err := o.RunConversation(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "overloaded")
}

func TestOrchestrator_RefusalRejects(t *testing.T) {
	fake := &fakeModelService{t: t, events: []string{
		"data: {\"type\":\"response.refusal.done\",\"refusal\":\"cannot comply\"}\n\n",
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	o := &Orchestrator{Client: NewHTTPClient("test-key", srv.URL, "test-model", nil)}

	_, err := o.RunConversation(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "refused")
}

func TestHTTPClient_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPClient("test-key", srv.URL, "test-model", nil)

	_, err := client.CreateConversation(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")

	_, err = client.StreamMessage(context.Background(), "conv_1", "inst", "msg", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestHTTPClient_RequiresConversationID(t *testing.T) {
	client := NewHTTPClient("test-key", "http://localhost:0", "test-model", nil)
	_, err := client.StreamMessage(context.Background(), "  ", "inst", "msg", nil)
	require.Error(t, err)
}

func TestStreamSSE_JoinsMultilineData(t *testing.T) {
	var events [][2]string
	err := streamSSE(
		strings.NewReader("event: x\ndata: one\ndata: two\n\n: comment\ndata: three\n\n"),
		func(ev, data string) error {
			events = append(events, [2]string{ev, data})
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, [][2]string{{"x", "one\ntwo"}, {"", "three"}}, events)
}
