package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kiranlabs/storefront-backend/api/routes"
	"github.com/kiranlabs/storefront-backend/internal/address"
	"github.com/kiranlabs/storefront-backend/internal/auth"
	"github.com/kiranlabs/storefront-backend/internal/cart"
	"github.com/kiranlabs/storefront-backend/internal/catalog"
	checkoutsvc "github.com/kiranlabs/storefront-backend/internal/checkout"
	"github.com/kiranlabs/storefront-backend/internal/coupons"
	"github.com/kiranlabs/storefront-backend/internal/orders"
	"github.com/kiranlabs/storefront-backend/internal/payments"
	"github.com/kiranlabs/storefront-backend/internal/users"
	"github.com/kiranlabs/storefront-backend/internal/wishlist"
	"github.com/kiranlabs/storefront-backend/pkg/auth/session"
	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/db"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
	"github.com/kiranlabs/storefront-backend/pkg/metrics"
	"github.com/kiranlabs/storefront-backend/pkg/migrate"
	"github.com/kiranlabs/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	wishlistRepo := wishlist.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	couponsRepo := coupons.NewRepository(conn)
	stockKeeper := catalog.NewStockKeeper()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlistRepo, dbClient, catalogRepo, cartService)
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(addressRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, stockKeeper)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway, err := payments.NewGateway(cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.Deps{
		Orders:   ordersRepo,
		Cart:     cartRepo,
		Catalog:  catalogRepo,
		Address:  addressRepo,
		Users:    usersRepo,
		Stock:    stockKeeper,
		Coupons:  coupons.NewService(couponsRepo),
		Gateway:  gateway,
		Pending:  redisClient,
		Tx:       dbClient,
		Checkout: cfg.Checkout,
		Payments: cfg.Payments,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Metrics:  httpMetrics,
			Registry: registry,
			Auth:     authService,
			Users:    usersService,
			Catalog:  catalogService,
			Cart:     cartService,
			Wishlist: wishlistService,
			Address:  addressService,
			Checkout: checkoutService,
			Orders:   ordersService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
