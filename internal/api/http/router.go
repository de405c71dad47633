package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/quotation-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Quotations *handlers.QuotationsHandler
	Offers     *handlers.OffersHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	quotations := app.Group("/quotations")
	quotations.Post("", cfg.Quotations.CreateQuotation)
	quotations.Get("", cfg.Quotations.ListQuotations)
	quotations.Get("/:id", cfg.Quotations.GetQuotation)
	quotations.Post("/:id/transitions", cfg.Quotations.ApplyTransition)
	quotations.Post("/:id/read", cfg.Quotations.MarkRead)

	quotations.Post("/:id/offers", cfg.Offers.SubmitOffer)
	quotations.Post("/:id/offers/:offerId/accept", cfg.Offers.AcceptOffer)
	quotations.Post("/:id/offers/:offerId/withdraw", cfg.Offers.WithdrawOffer)
	quotations.Post("/:id/offers/:offerId/messages", cfg.Offers.AddOfferMessage)
}
