package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranlabs/storefront-backend/api/controllers"
	"github.com/kiranlabs/storefront-backend/api/middleware"
	"github.com/kiranlabs/storefront-backend/internal/address"
	"github.com/kiranlabs/storefront-backend/internal/auth"
	"github.com/kiranlabs/storefront-backend/internal/cart"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	checkoutsvc "github.com/kiranlabs/storefront-backend/internal/checkout"
	"github.com/kiranlabs/storefront-backend/internal/orders"
	"github.com/kiranlabs/storefront-backend/internal/users"
	"github.com/kiranlabs/storefront-backend/internal/wishlist"
	"github.com/kiranlabs/storefront-backend/pkg/auth/session"
	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
	"github.com/kiranlabs/storefront-backend/pkg/metrics"
	pkgredis "github.com/kiranlabs/storefront-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics
	Registry prometheus.Gatherer

	Auth     auth.Service
	Users    users.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Wishlist wishlist.Service
	Address  address.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
}

// NewRouter assembles the chi router with middleware and every route.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
			Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(deps.Catalog, logg))
		r.Get("/{idOrSlug}", controllers.ProductGet(deps.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/me", controllers.ProfileGet(deps.Users, logg))
		r.Put("/me", controllers.ProfileUpdate(deps.Users, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Get("/summary", controllers.CartSummary(deps.Cart, logg))
			r.Post("/validate", controllers.CartValidate(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Post("/items/{itemId}/save", controllers.CartSaveForLater(deps.Cart, logg))
			r.Post("/items/{itemId}/move", controllers.CartMoveToCart(deps.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistGet(deps.Wishlist, logg))
			r.Post("/items", controllers.WishlistAddItem(deps.Wishlist, logg))
			r.Patch("/items/{itemId}", controllers.WishlistUpdateItem(deps.Wishlist, logg))
			r.Delete("/items/{itemId}", controllers.WishlistRemoveItem(deps.Wishlist, logg))
			r.Post("/sync", controllers.WishlistSync(deps.Wishlist, logg))
			r.Post("/items/{itemId}/move-to-cart", controllers.WishlistMoveToCart(deps.Wishlist, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(deps.Address, logg))
			r.Post("/", controllers.AddressCreate(deps.Address, logg))
			r.Get("/{addressId}", controllers.AddressGet(deps.Address, logg))
			r.Put("/{addressId}", controllers.AddressUpdate(deps.Address, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(deps.Address, logg))
			r.Post("/{addressId}/default", controllers.AddressSetDefault(deps.Address, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intent", controllers.PaymentIntent(deps.Checkout, logg))
			r.Post("/confirm", controllers.PaymentConfirm(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderRef}", controllers.OrderGet(deps.Orders, logg))
			r.Post("/{orderRef}/cancel", controllers.OrderCancel(deps.Orders, logg))
			r.Post("/{orderRef}/return", controllers.OrderRequestReturn(deps.Orders, logg))
			r.Post("/{orderRef}/return/cancel", controllers.OrderCancelReturn(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(deps.Orders, logg))
			r.Post("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
			r.Post("/{orderId}/return", controllers.AdminUpdateReturnStatus(deps.Orders, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
			r.Post("/{productId}/active", controllers.AdminSetProductActive(deps.Catalog, logg))
		})
	})

	return r
}
