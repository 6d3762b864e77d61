package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vehicle-market-api/internal/application/account"
	"github.com/vehicle-market-api/internal/application/catalog"
	"github.com/vehicle-market-api/internal/application/product"
	"github.com/vehicle-market-api/internal/config"
	"github.com/vehicle-market-api/internal/domain"
	"github.com/vehicle-market-api/internal/transport/http/handler"
	appmiddleware "github.com/vehicle-market-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accountDeps := account.ServiceDeps{
		UserRepo:     deps.UserRepo,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		Mode:         cfg.AuthMode,
		FrontendURL:  cfg.FrontendURL,
		LinkTokenTTL: cfg.LinkTokenTTL,
	}
	// A nil *Provider must stay out of the signer interface so the
	// service's nil check keeps working.
	if deps.JWTProvider != nil {
		accountDeps.Signer = deps.JWTProvider
	}
	accountSvc := account.NewService(accountDeps)
	catalogSvc := catalog.NewService(catalog.ServiceDeps{
		CategoryRepo: deps.CategoryRepo,
		BrandRepo:    deps.BrandRepo,
		ModelRepo:    deps.ModelRepo,
		ImageStore:   deps.S3Store,
	})
	productSvc := product.NewService(deps.ProductRepo)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	productH := handler.NewProductHandler(productSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Check)

		r.With(sensitiveRL.Limit).Post("/register", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/register/verify", accountH.VerifyOTP)
		r.Get("/activate/{token}", accountH.Activate)
		r.With(sensitiveRL.Limit).Post("/reactivate", accountH.Reactivate)
		r.With(sensitiveRL.Limit).Post("/login", accountH.Login)
		r.With(sensitiveRL.Limit).Post("/request-reset", accountH.RequestReset)
		r.With(sensitiveRL.Limit).Post("/reset-password", accountH.ResetPassword)

		// Read-only catalog browsing is public.
		r.Get("/categories", catalogH.ListCategories)
		r.Get("/categories/{id}", catalogH.GetCategory)
		r.Get("/brands", catalogH.ListBrands)
		r.Get("/brands/{id}", catalogH.GetBrand)
		r.Get("/models", catalogH.ListModels)
		r.Get("/models/{id}", catalogH.GetModel)
		r.Get("/products", productH.List)
		r.Get("/products/{id}", productH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/{id}", accountH.Get)
			r.Post("/products", productH.Create)

			// Superadmin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleSuperAdmin))

				r.Get("/users", accountH.List)

				r.Post("/categories", catalogH.CreateCategory)
				r.Put("/categories/{id}", catalogH.UpdateCategory)
				r.Delete("/categories/{id}", catalogH.DeleteCategory)

				r.Post("/brands", catalogH.CreateBrand)
				r.Put("/brands/{id}", catalogH.UpdateBrand)
				r.Delete("/brands/{id}", catalogH.DeleteBrand)

				r.Post("/models", catalogH.CreateModel)
				r.Put("/models/{id}", catalogH.UpdateModel)
				r.Delete("/models/{id}", catalogH.DeleteModel)

				r.Put("/products/{id}", productH.Update)
				r.Delete("/products/{id}", productH.Delete)
			})
		})
	})

	return r
}
