package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"streakly/internal/events"
	"streakly/internal/handlers"
	"streakly/internal/history"
	mw "streakly/internal/middleware"
	"streakly/internal/services"
	"streakly/internal/store"
)

type Deps struct {
	Store      *store.Store
	Encryption *services.EncryptionService
	Sessions   *history.Sessions
	Bus        events.Bus
	Clock      handlers.Clock
	JWTSecret  []byte
	Logger     *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw.ZapRequestLogger(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	notifier := handlers.NewJournalNotifier(d.Bus, d.Logger)
	authHandler := handlers.NewAuthHandler(d.Store, d.Encryption, d.Sessions, d.JWTSecret, d.Logger)
	habitHandler := handlers.NewHabitHandler(d.Store, d.Clock, d.Logger)
	journalHandler := handlers.NewJournalHandler(d.Store, d.Encryption, notifier, d.Logger)
	historyHandler := handlers.NewHistoryHandler(d.Sessions, d.Clock, d.Logger)
	importHandler := handlers.NewImportHandler(d.Store, d.Encryption, notifier, d.Logger)
	authMW := mw.NewAuthMiddleware(d.JWTSecret)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Post("/auth/logout", authHandler.Logout)

			pr.Post("/habits", habitHandler.Create)
			pr.Get("/habits", habitHandler.List)
			pr.Get("/habits/today", habitHandler.Today)
			pr.Delete("/habits/{habitID}", habitHandler.Delete)
			pr.Get("/habits/{habitID}/stats", habitHandler.Stats)
			pr.Put("/habits/{habitID}/completions/{date}", habitHandler.Complete)
			pr.Delete("/habits/{habitID}/completions/{date}", habitHandler.Revert)

			pr.Put("/journal", journalHandler.Upsert)
			pr.Get("/journal", journalHandler.List)
			pr.Delete("/journal/{date}", journalHandler.Delete)

			pr.Get("/history", historyHandler.Get)
			pr.Post("/import", importHandler.Import)
		})
	})
	return r
}
