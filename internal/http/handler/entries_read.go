package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kokoro/internal/auth"
	"kokoro/internal/diary"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type EntryReadHandler struct {
	DB *gorm.DB
}

type entryDTO struct {
	ID           uint64          `json:"id"`
	UserID       uint64          `json:"user_id"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	EventSummary string          `json:"event_summary,omitempty"`
	Realization  string          `json:"realization,omitempty"`
	EmotionLabel string          `json:"emotion_label,omitempty"`
	MoodLabel    string          `json:"mood_label,omitempty"`
	JournalDate  string          `json:"journal_date"`
	Tags         json.RawMessage `json:"tags"`

	AICommentStatus      string          `json:"ai_comment_status"`
	AIComment            *string         `json:"ai_comment,omitempty"`
	AICommentGeneratedAt *time.Time      `json:"ai_comment_generated_at,omitempty"`
	AICommentMetadata    json.RawMessage `json:"ai_comment_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func entryDTOFrom(e *diary.Entry) entryDTO {
	return entryDTO{
		ID:                   e.ID,
		UserID:               e.UserID,
		Title:                e.Title,
		Content:              e.Content,
		EventSummary:         e.EventSummary,
		Realization:          e.Realization,
		EmotionLabel:         e.EmotionLabel,
		MoodLabel:            e.MoodLabel,
		JournalDate:          e.JournalDate.Format("2006-01-02"),
		Tags:                 json.RawMessage(e.Tags),
		AICommentStatus:      e.AICommentStatus,
		AIComment:            e.AIComment,
		AICommentGeneratedAt: e.AICommentGeneratedAt,
		AICommentMetadata:    json.RawMessage(e.AICommentMetadata),
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func (h *EntryReadHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	tag := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("tag")))
	status := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status")))
	qText := strings.TrimSpace(r.URL.Query().Get("q"))

	q := h.DB.Model(&diary.Entry{}).Where("user_id = ?", uid)

	if tag != "" {
		needle, _ := json.Marshal([]string{tag})
		q = q.Where("tags @> ?::jsonb", string(needle))
	}
	if status != "" {
		q = q.Where("ai_comment_status = ?", status)
	}
	if qText != "" {
		q = q.Where("content ILIKE ?", "%"+qText+"%")
	}

	var rows []diary.Entry
	if err := q.Order("created_at desc").Limit(50).Find(&rows).Error; err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]entryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, entryDTOFrom(&rows[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *EntryReadHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id64, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var e diary.Entry
	if err := h.DB.Where("id = ? AND user_id = ?", id64, uid).First(&e).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entryDTOFrom(&e))
}
