package api

import (
	"net/http"

	"github.com/Rrens/greenbite/internal/api/handler"
	customMiddleware "github.com/Rrens/greenbite/internal/api/middleware"
	"github.com/Rrens/greenbite/internal/config"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const loginPath = "/login"

// Deps are the components the router wires into handlers.
// Cache, Limiter and Metrics are optional.
type Deps struct {
	Stores   *session.Stores
	Registry *marketplace.Registry
	Dialogs  *listingform.Dialogs
	Backend  handler.BackendFactory
	Listings handler.ListingLookup
	Recipes  handler.RecipeSource
	Cache    handler.CacheFlusher
	Limiter  customMiddleware.Limiter
	Metrics  *metrics.Metrics
	Ready    map[string]handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Device(cfg.Server.SecureCookies))
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	guard := session.NewGuard(
		loginPath,
		func(r *http.Request) session.TokenReader { return deps.Stores.FromContext(r.Context()) },
		func(s session.State) { deps.Metrics.GuardDecision(s.String()) },
	)

	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit
	}

	authHandler := handler.NewAuthHandler(deps.Stores, deps.Backend, deps.Registry, deps.Dialogs)
	dashboardHandler := handler.NewDashboardHandler(deps.Stores)
	marketplaceHandler := handler.NewMarketplaceHandler(handler.MarketplaceDeps{
		Registry:   deps.Registry,
		Dialogs:    deps.Dialogs,
		Stores:     deps.Stores,
		Backend:    deps.Backend,
		Listings:   deps.Listings,
		Cache:      deps.Cache,
		Metrics:    deps.Metrics,
		SettleWait: cfg.Listings.SettleWait,
	})
	checkoutHandler := handler.NewCheckoutHandler(deps.Stores, deps.Backend, deps.Listings, deps.Metrics)
	recipeHandler := handler.NewRecipeHandler(deps.Recipes)

	// Public routes
	r.Get("/", handler.Home)
	r.Get("/healthz", handler.HealthCheck)
	r.Get("/readyz", handler.ReadyCheck(deps.Ready))
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, deps.Metrics.Handler())
	}

	r.Get(loginPath, authHandler.LoginView)
	r.With(limit).Post(loginPath, authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	// Guarded routes
	r.Group(func(r chi.Router) {
		r.Use(guard.Require)
		r.Use(limit)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Index)
			r.Get("/index", dashboardHandler.Index)
			r.Get("/testoo", dashboardHandler.Page("testoo"))
			r.Get("/testooo", dashboardHandler.Page("testooo"))

			r.Route("/marketplace", func(r chi.Router) {
				r.Get("/", marketplaceHandler.View)
				r.Post("/refresh", marketplaceHandler.Refresh)
				r.Post("/reports", marketplaceHandler.Report)

				r.Route("/filters", func(r chi.Router) {
					r.Patch("/", marketplaceHandler.PatchFilters)
					r.Put("/", marketplaceHandler.ReplaceFilters)
					r.Delete("/", marketplaceHandler.ResetFilters)
				})

				r.Route("/dialogs/create", func(r chi.Router) {
					r.Get("/", marketplaceHandler.OpenCreate)
					r.Post("/", marketplaceHandler.SubmitCreate)
					r.Delete("/", marketplaceHandler.CloseCreate)
				})

				r.Route("/listings/{listingID}", func(r chi.Router) {
					r.Get("/", marketplaceHandler.Listing)
					r.Delete("/", marketplaceHandler.DeleteListing)
					r.Post("/reviews", marketplaceHandler.Review)

					r.Route("/edit", func(r chi.Router) {
						r.Get("/", marketplaceHandler.OpenEdit)
						r.Post("/", marketplaceHandler.SubmitEdit)
						r.Delete("/", marketplaceHandler.CloseEdit)
					})
				})
			})

			r.Route("/recipes", func(r chi.Router) {
				r.Get("/random", recipeHandler.Random)
				r.Get("/{recipeID}", recipeHandler.Get)
			})
		})

		r.Route("/checkout/{listingID}", func(r chi.Router) {
			r.Get("/", checkoutHandler.View)
			r.Post("/", checkoutHandler.Place)
			r.Post("/preview", checkoutHandler.Preview)
		})

		if deps.Cache != nil {
			r.Post("/cache/flush", handler.FlushCache(deps.Cache))
		}
	})

	return r
}
