package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielmoraes/lecto-backend/api/controllers"
	webhookcontrollers "github.com/danielmoraes/lecto-backend/api/controllers/webhooks"
	"github.com/danielmoraes/lecto-backend/api/middleware"
	checkoutsvc "github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	checkoutService checkoutsvc.Service,
	ordersSvc orders.Service,
	webhookService webhookcontrollers.PaymentWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// A nil *redis.Client must stay a nil interface downstream.
	var redisP redis.Pinger
	var sessions middleware.SessionChecker
	if redisClient != nil {
		redisP = redisClient
		sessions = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(webhookService, logg))
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.With(middleware.OptionalAuth(cfg.JWT, sessions, logg)).
			Post("/", controllers.Checkout(checkoutService, logg))
		r.Get("/status/{orderID}", controllers.CheckoutStatus(ordersSvc, logg))
	})

	return r
}
