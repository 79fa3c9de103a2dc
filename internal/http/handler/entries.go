package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kokoro/internal/auth"
	"kokoro/internal/comment"
	"kokoro/internal/diary"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type EntryHandler struct {
	Svc       *diary.Service
	Scheduler *comment.Scheduler
	Log       *zap.Logger
}

type createEntryReq struct {
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	EventSummary string  `json:"event_summary"`
	Realization  string  `json:"realization"`
	EmotionLabel string  `json:"emotion_label"`
	MoodLabel    string  `json:"mood_label"`
	JournalDate  *string `json:"journal_date"` // YYYY-MM-DD optional
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createEntryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	var journalDate *time.Time
	if req.JournalDate != nil && strings.TrimSpace(*req.JournalDate) != "" {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(*req.JournalDate))
		if err != nil {
			http.Error(w, "invalid journal_date (YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		journalDate = &t
	}

	e, err := h.Svc.CreateEntry(r.Context(), uid, diary.CreateEntryInput{
		Title:        req.Title,
		Content:      req.Content,
		EventSummary: req.EventSummary,
		Realization:  req.Realization,
		EmotionLabel: req.EmotionLabel,
		MoodLabel:    req.MoodLabel,
		JournalDate:  journalDate,
	})
	if err != nil {
		if errors.Is(err, diary.ErrEmptyContent) {
			http.Error(w, "content required", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// Commentary is a side effect of creation, never a precondition: a
	// scheduling failure is logged and the entry is returned as created.
	res, err := h.Scheduler.Schedule(r.Context(), e.ID, uid, e.Content)
	if err != nil {
		h.Log.Error("schedule comment job failed",
			zap.Uint64("entry_id", e.ID), zap.Error(err))
	} else if res.Scheduled {
		e.AICommentStatus = diary.CommentPending
	} else if res.Reason != comment.ReasonAlreadyScheduled {
		e.AICommentStatus = diary.CommentSkipped
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entryDTOFrom(e))
}

type updateEntryReq struct {
	Title        *string `json:"title"`
	Content      *string `json:"content"`
	EventSummary *string `json:"event_summary"`
	Realization  *string `json:"realization"`
	EmotionLabel *string `json:"emotion_label"`
	MoodLabel    *string `json:"mood_label"`
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id64, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateEntryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	e, err := h.Svc.UpdateEntry(r.Context(), uid, id64, diary.UpdateEntryInput{
		Title:        req.Title,
		Content:      req.Content,
		EventSummary: req.EventSummary,
		Realization:  req.Realization,
		EmotionLabel: req.EmotionLabel,
		MoodLabel:    req.MoodLabel,
	})
	if err != nil {
		switch {
		case errors.Is(err, diary.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, diary.ErrEmptyContent):
			http.Error(w, "content required", http.StatusBadRequest)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entryDTOFrom(e))
}
