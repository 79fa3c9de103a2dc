package handler

import (
	"encoding/json"
	"net/http"

	"kokoro/internal/auth"

	"gorm.io/gorm"
)

type MeHandler struct {
	DB *gorm.DB
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	out := map[string]any{"user_id": uid}
	if h.DB != nil {
		var u auth.User
		if err := h.DB.Where("id = ?", uid).First(&u).Error; err == nil {
			out["email"] = u.Email
			out["display_name"] = u.DisplayName
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
