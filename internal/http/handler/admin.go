package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"kokoro/internal/comment"
	"kokoro/internal/knowledge"
	"kokoro/internal/settings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AdminHandler struct {
	DB        *gorm.DB
	Settings  *settings.Store
	Runner    *comment.Runner
	Knowledge *knowledge.Retriever
	Log       *zap.Logger
}

func (h *AdminHandler) GetCommentDelay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"delay_minutes": h.Settings.DelayMinutes(r.Context()),
		"allowed":       settings.AllowedDelays,
	})
}

type setDelayReq struct {
	DelayMinutes int `json:"delay_minutes"`
}

func (h *AdminHandler) SetCommentDelay(w http.ResponseWriter, r *http.Request) {
	var req setDelayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Settings.SetDelayMinutes(r.Context(), req.DelayMinutes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"delay_minutes": req.DelayMinutes})
}

// RunJobs is the external periodic trigger: claim and execute up to ?limit
// due jobs (default 3, capped at 10 inside the runner).
func (h *AdminHandler) RunJobs(w http.ResponseWriter, r *http.Request) {
	limit := comment.DefaultBatchSize
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	sum, err := h.Runner.RunDueJobs(r.Context(), limit)
	if err != nil {
		h.Log.Error("run due jobs failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sum)
}

type jobStatDTO struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (h *AdminHandler) JobStats(w http.ResponseWriter, r *http.Request) {
	var out []jobStatDTO
	err := h.DB.Model(&comment.Job{}).
		Select("status, count(*) as count").
		Group("status").
		Order("status asc").
		Scan(&out).Error
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type addSnippetReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *AdminHandler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req addSnippetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content required", http.StatusBadRequest)
		return
	}

	s, err := h.Knowledge.Add(r.Context(), req.Title, req.Content)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": s.ID})
}
