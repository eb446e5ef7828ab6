package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/handler/http/middleware"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/jwt"
)

type RouterConfig struct {
	FrontendURL string
	Env         string
}

func NewRouter(
	cfg RouterConfig,
	jwtService jwt.Service,
	sessionHandler SessionHandler,
	approvalHandler ApprovalHandler,
	summaryHandler SummaryHandler,
	notificationHandler NotificationHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "worktrack"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE rides a query-param token, outside the header-based auth group
		r.Get("/stream", streamHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/clock-in", sessionHandler.ClockIn)
				r.Post("/clock-out", sessionHandler.ClockOut)
				r.Post("/break/start", sessionHandler.StartBreak)
				r.Post("/break/end", sessionHandler.EndBreak)
				r.Get("/current", sessionHandler.CurrentState)
				r.Get("/my", sessionHandler.MySessions)
				r.Get("/{id}", sessionHandler.GetByID)

				// Manager only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireManager)
					r.Get("/team", sessionHandler.TeamSessions)
				})
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Use(middleware.RequireManager)
				r.Get("/pending", approvalHandler.ListPending)
				r.Post("/bulk-approve", approvalHandler.BulkApprove)
				r.Post("/{id}/approve", approvalHandler.Approve)
				r.Post("/{id}/reject", approvalHandler.Reject)
			})

			r.Route("/summaries", func(r chi.Router) {
				r.Get("/daily", summaryHandler.Daily)
				r.Get("/weekly", summaryHandler.Weekly)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/read", notificationHandler.MarkAsRead)
				r.Put("/read-all", notificationHandler.MarkAllAsRead)
			})

			r.Get("/stream/token", streamHandler.GetStreamToken)
		})
	})

	return r
}
