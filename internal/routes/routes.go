package routes

import (
	"time"

	"github.com/enerva/utility-backoffice/internal/config"
	"github.com/enerva/utility-backoffice/internal/handlers"
	"github.com/enerva/utility-backoffice/internal/kind"
	"github.com/enerva/utility-backoffice/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	applicationHandler *handlers.ApplicationHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Credential exchange — public, with a stricter rate limit: 10 req/min per IP
	authLimit := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	api.Post("/register", authLimit, authHandler.Register)
	api.Post("/login", authLimit, authHandler.Login)

	// Role escalation — authenticated admins only
	api.Put("/users/:userId/role",
		middleware.JWTProtected(cfg),
		middleware.AdminRequired(db, cfg),
		userHandler.SetRole,
	)

	// One route set per application kind. Submission is public (anonymous
	// allowed); everything else requires a bearer credential.
	protected := middleware.JWTProtected(cfg)
	for _, k := range kind.All {
		g := api.Group("/" + k.Slug)
		g.Post("/", applicationHandler.Submit(k))
		g.Get("/", protected, applicationHandler.List(k))
		g.Get("/:id", protected, applicationHandler.Get(k))
		g.Get("/:id/files/:fileType", protected, applicationHandler.GetDocument(k))
		g.Put("/:id/status", protected, applicationHandler.UpdateStatus(k))
	}
}
