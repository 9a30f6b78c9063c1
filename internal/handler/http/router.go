package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curatedcode/toshi-sub000/internal/auth"
	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/service"
	"github.com/curatedcode/toshi-sub000/pkg/health"
	"github.com/curatedcode/toshi-sub000/pkg/middleware"
)

// Services bundles the service dependencies of the router.
type Services struct {
	Catalog  *service.CatalogService
	Reviews  *service.ReviewService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Users    *service.UserService
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svcs Services,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics())

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	requireAuth := middleware.Auth(tokenValidator(jwtManager))
	requireAdmin := middleware.RequireRole(domain.RoleAdmin)

	productHandler := NewProductHandler(svcs.Catalog, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	categoryHandler := NewCategoryHandler(svcs.Catalog, logger)
	cartHandler := NewCartHandler(svcs.Cart, logger)
	checkoutHandler := NewCheckoutHandler(svcs.Checkout, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	authHandler := NewAuthHandler(svcs.Users, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", productHandler.SearchProducts)
		r.Get("/{slug}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)

			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
			r.Post("/{id}/images", productHandler.AddProductImage)
		})
	})

	r.Route("/api/v1/products/{productId}/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", reviewHandler.ListReviews)
		r.Get("/summary", reviewHandler.GetSummary)
		r.With(requireAuth).Post("/", reviewHandler.CreateReview)
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", categoryHandler.ListCategories)
		r.With(requireAuth, requireAdmin).Post("/", categoryHandler.CreateCategory)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
		r.Delete("/items/{productId}", cartHandler.RemoveItem)
	})

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Get("/totals", checkoutHandler.GetTotals)
		r.Post("/", checkoutHandler.PlaceOrder)
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Get("/", orderHandler.ListOrders)
		r.Get("/{id}", orderHandler.GetOrder)
		r.With(requireAdmin).Put("/{id}/status", orderHandler.UpdateStatus)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(requireAuth).Get("/me", authHandler.GetProfile)
	})

	return r
}

// tokenValidator adapts the JWT manager to the auth middleware.
func tokenValidator(m *auth.JWTManager) middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		claims, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}
}
