package http

import (
	"net/http"

	"kokoro/internal/auth"
	"kokoro/internal/comment"
	"kokoro/internal/config"
	"kokoro/internal/diary"
	"kokoro/internal/http/handler"
	mw "kokoro/internal/http/middleware"
	"kokoro/internal/knowledge"
	"kokoro/internal/settings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the route tree needs, wired once in main.
type Deps struct {
	DB        *gorm.DB
	JWT       *auth.JWT
	Diary     *diary.Service
	Scheduler *comment.Scheduler
	Runner    *comment.Runner
	Settings  *settings.Store
	Knowledge *knowledge.Retriever
	Log       *zap.Logger
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: d.DB, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: d.DB}
	r.With(auth.RequireAuth(d.JWT)).Get("/me", me.Me)

	entryH := &handler.EntryHandler{Svc: d.Diary, Scheduler: d.Scheduler, Log: d.Log}
	entryRead := &handler.EntryReadHandler{DB: d.DB}

	r.Route("/entries", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Post("/", entryH.Create)
		r.Get("/", entryRead.List)

		r.Get("/{id}", entryRead.Get)
		r.Put("/{id}", entryH.Update)
	})

	adminH := &handler.AdminHandler{
		DB:        d.DB,
		Settings:  d.Settings,
		Runner:    d.Runner,
		Knowledge: d.Knowledge,
		Log:       d.Log,
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireInternalToken(cfg.InternalAPIToken))

		r.Get("/settings/comment-delay", adminH.GetCommentDelay)
		r.Put("/settings/comment-delay", adminH.SetCommentDelay)

		r.Post("/jobs/run", adminH.RunJobs)
		r.Get("/jobs/stats", adminH.JobStats)

		r.Post("/knowledge", adminH.AddKnowledge)
	})

	return r
}
