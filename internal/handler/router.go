package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/explainer-ai/backend/internal/handler/chat"
	"github.com/explainer-ai/backend/internal/handler/system"
	"github.com/explainer-ai/backend/internal/handler/user"
	"github.com/explainer-ai/backend/internal/metrics"
	middlewarePkg "github.com/explainer-ai/backend/internal/middleware"
	aiService "github.com/explainer-ai/backend/internal/service/ai"
	chatService "github.com/explainer-ai/backend/internal/service/chat"
	userService "github.com/explainer-ai/backend/internal/service/user"
)

// Options 控制可选路由。
type Options struct {
	MetricsEnabled bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, userSvc *userService.Service, responder aiService.Responder, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	if opts.MetricsEnabled {
		r.Use(middlewarePkg.Metrics)
	}

	chatHandler := chat.New(chatSvc, responder)
	userHandler := user.New(userSvc)
	systemHandler := system.New(chatSvc, responder.Available())

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		userHandler.RegisterRoutes(api)
	})

	// 会话历史路由与旧版客户端保持一致，不在 /api 之下
	r.Route("/chats", chatHandler.RegisterSessionRoutes)

	systemHandler.RegisterRoutes(r)

	if opts.MetricsEnabled {
		metrics.Init()
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}
