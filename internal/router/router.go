package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"bot-dashboard/internal/config"
	"bot-dashboard/internal/handler"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	fileHandler *handler.FileHandler,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(collector))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)

			auth.Group(func(authed chi.Router) {
				authed.Use(authMiddleware.RequireAuth)
				authed.Get("/verify", authHandler.Verify)
				authed.Post("/logout", authHandler.Logout)
				authed.Get("/discord-token", authHandler.DiscordToken)
				authed.Get("/user/info", authHandler.UserInfo)
				authed.Put("/user/edit", authHandler.UserEdit)
				authed.Get("/admin/check", authHandler.AdminCheck)

				authed.Group(func(admin chi.Router) {
					admin.Use(authMiddleware.RequireAdmin)
					admin.Get("/admin/user/{discordId}", authHandler.AdminUserInfo)
					admin.Put("/admin/user/{discordId}/edit", authHandler.AdminUserEdit)
					admin.Post("/admin/update/test", authHandler.UpdateTest)
					admin.Post("/admin/update/bot", authHandler.UpdateBot)
				})
			})
		})

		api.Route("/image", func(image chi.Router) {
			image.Use(authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
			image.Get("/fileviewer-token", fileHandler.FileViewerToken)
			image.Post("/generate-link", fileHandler.GenerateLink)
			image.Get("/list", fileHandler.List)
			image.Post("/upload", fileHandler.Upload)
			image.Put("/edit", fileHandler.EditPath)
			image.Delete("/delete", fileHandler.Delete)
			image.Get("/*", fileHandler.GetFile)
		})
	})

	return r
}
