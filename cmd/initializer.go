package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketBack/internal/config"
	"marketBack/internal/geo"
	"marketBack/internal/handlers"
	"marketBack/internal/notify"
	"marketBack/internal/pay"
	"marketBack/internal/repositories"
	"marketBack/internal/services"
	"marketBack/utils"
)

type application struct {
	cfg    config.Config
	log    *zap.SugaredLogger
	db     *sql.DB
	tokens *utils.Manager

	userRepo *repositories.UserRepository

	userService    *services.UserService
	bookingService *services.BookingService

	userHandler      *handlers.UserHandler
	serviceHandler   *handlers.ServiceHandler
	bookingHandler   *handlers.BookingHandler
	paymentHandler   *handlers.PaymentHandler
	reviewHandler    *handlers.ReviewHandler
	dashboardHandler *handlers.DashboardHandler

	hub       *notify.Hub
	rdb       *redis.Client
	queue     *asynq.Client
	worker    *asynq.Server
	notifyMux *asynq.ServeMux
	limiter   *ipLimiter
}

func initializeApp(ctx context.Context, cfg config.Config, db *sql.DB, log *zap.SugaredLogger) (*application, error) {
	tokens, err := utils.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	if err != nil {
		return nil, err
	}

	// Repositories
	userRepo := &repositories.UserRepository{DB: db}
	serviceRepo := &repositories.ServiceRepository{DB: db}
	bookingRepo := &repositories.BookingRepository{DB: db}
	reviewRepo := &repositories.ReviewRepository{DB: db}

	app := &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		tokens:   tokens,
		userRepo: userRepo,
		hub:      notify.NewHub(log, cfg.Server.AllowedOrigins),
		limiter:  newIPLimiter(cfg.Server.RateLimit),
	}

	// Redis backs the geo cache and the notification queue. Both are optional.
	var geoCache geo.Cache
	if cfg.Redis.Addr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			log.Warnf("redis unavailable, running without cache and queue: %v", err)
			app.rdb.Close()
			app.rdb = nil
		} else {
			geoCache = geo.NewRedisCache(app.rdb, "geo:", cfg.Maps.CacheTTL)
		}
	}

	var routes geo.RouteProvider
	if cfg.Maps.APIKey != "" {
		routes = geo.NewMapsClient(cfg.Maps.BaseURL, cfg.Maps.APIKey, cfg.Maps.Timeout)
	} else {
		log.Info("maps api key not set, travel times use the distance heuristic")
	}
	estimator := geo.NewEstimator(routes, geoCache, log)

	channels := []notify.Channel{app.hub}
	if cfg.Notify.FirebaseCredentials != "" {
		push, err := notify.NewPush(ctx, cfg.Notify.FirebaseCredentials)
		if err != nil {
			log.Warnf("push notifications disabled: %v", err)
		} else {
			channels = append(channels, push)
		}
	}
	if cfg.Notify.SendGridKey != "" && cfg.Notify.SenderEmail != "" {
		channels = append(channels, notify.NewMailer(cfg.Notify.SendGridKey, cfg.Notify.SenderEmail, cfg.Notify.SenderName))
	}
	dispatcher := notify.NewDispatcher(userRepo, log, channels...)

	var enqueuer notify.Enqueuer
	if app.rdb != nil {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		app.queue = asynq.NewClient(redisOpt)
		app.worker = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 5,
			Logger:      log,
		})
		app.notifyMux = notify.NewServeMux(dispatcher)
		enqueuer = app.queue
	}
	notifier := notify.NewNotifier(dispatcher, enqueuer, log)

	var storage services.ImageStore
	if cfg.Storage.Bucket != "" {
		st, err := utils.NewStorage(utils.StorageConfig{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		storage = st
	}

	gateway := pay.NewClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, 0)

	// Services
	app.userService = &services.UserService{UserRepo: userRepo, TokenManager: tokens, RefreshTTL: cfg.Auth.RefreshTTL, Log: log}
	serviceService := &services.ServiceService{ServiceRepo: serviceRepo, Storage: storage, Log: log}
	app.bookingService = &services.BookingService{
		Bookings:   bookingRepo,
		Services:   serviceRepo,
		Estimator:  estimator,
		Notifier:   notifier,
		Log:        log,
		Location:   cfg.Location(),
		MinHours:   cfg.Booking.MinDuration,
		MaxHours:   cfg.Booking.MaxDuration,
		StaleAfter: cfg.Booking.StaleAfter,
	}
	paymentService := &services.PaymentService{Bookings: bookingRepo, Gateway: gateway, Currency: cfg.Payment.Currency, Notifier: notifier, Log: log}
	reviewService := &services.ReviewService{ReviewRepo: reviewRepo, Bookings: bookingRepo, Log: log}
	dashboardService := &services.DashboardService{Bookings: bookingRepo, Services: serviceRepo}

	// Handlers
	app.userHandler = &handlers.UserHandler{Service: app.userService, Log: log}
	app.serviceHandler = &handlers.ServiceHandler{Service: serviceService, Reviews: reviewService, Log: log}
	app.bookingHandler = &handlers.BookingHandler{Service: app.bookingService, Log: log}
	app.paymentHandler = &handlers.PaymentHandler{Service: paymentService, Log: log}
	app.reviewHandler = &handlers.ReviewHandler{Service: reviewService, Log: log}
	app.dashboardHandler = &handlers.DashboardHandler{Service: dashboardService, Log: log}

	return app, nil
}

func (app *application) close() {
	if app.queue != nil {
		app.queue.Close()
	}
	if app.rdb != nil {
		app.rdb.Close()
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	return db, nil
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
