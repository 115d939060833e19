package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tokoorders/internal/config"
	"tokoorders/internal/database"
	"tokoorders/internal/handlers"
	"tokoorders/internal/middleware"
	"tokoorders/internal/models"
	"tokoorders/internal/repositories"
	"tokoorders/internal/services"
	"tokoorders/pkg/logger"
	"tokoorders/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.App.Env, cfg.App.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app, cleanup, err := NewApp(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting server", zap.String("port", cfg.App.Port), zap.String("driver", cfg.Database.Driver))
		if err := app.Listen(cfg.App.Port); err != nil {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}

// NewApp wires storage, messaging, services and routes. The returned cleanup
// closes whatever connections were opened.
func NewApp(cfg *config.Config, log *zap.Logger) (*fiber.App, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backend, health, err := openBackend(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if health.close != nil {
		closers = append(closers, health.close)
	}

	if cfg.Database.Seed {
		if err := seedProducts(context.Background(), backend, log); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	opts := []services.Option{
		services.WithLogger(log),
		services.WithNumberGenerator(services.NewTimestampNumberGenerator(cfg.Orders.NumberPrefix, loc)),
	}

	if cfg.RabbitMQ.Enabled {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		}, log.Named("rabbitmq"))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := mq.Close(); err != nil {
				log.Warn("failed to close RabbitMQ client", zap.Error(err))
			}
		})
		opts = append(opts, services.WithEvents(mq, cfg.App.ServiceName))

		if err := mq.ConsumeOrderEvents(auditEvent(log.Named("audit"))); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	engine := services.NewReservationEngine(backend, opts...)
	guard := services.NewStatusGuard(backend, cfg.Orders.StrictTransitions, opts...)
	listing := services.NewListingService(backend, services.ListingConfig{
		OrderPageSize:   cfg.Orders.PageSize,
		ProductPageSize: cfg.Products.PageSize,
		Location:        loc,
	}, opts...)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.ServiceName,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log.Named("http")))

	apiV1 := app.Group("/api/v1")
	handlers.NewOrderHandler(engine, guard, listing).RegisterRoutes(apiV1)
	handlers.NewProductHandler(listing).RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		db := health.check(c.UserContext())
		status, code := "healthy", fiber.StatusOK
		if db["status"] != "up" {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"time":     time.Now().Format(time.RFC3339),
			"database": db,
			"rabbitmq": cfg.RabbitMQ.Enabled,
		})
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route not found"})
	})

	return app, cleanup, nil
}

type backendHealth struct {
	check func(ctx context.Context) map[string]string
	close func()
}

func openBackend(cfg config.DatabaseConfig, log *zap.Logger) (repositories.Backend, backendHealth, error) {
	if cfg.Driver == "memory" {
		store := repositories.NewMemoryStore()
		return store, backendHealth{
			check: func(ctx context.Context) map[string]string {
				if err := store.Ping(ctx); err != nil {
					return map[string]string{"status": "down", "error": err.Error()}
				}
				return map[string]string{"status": "up", "driver": "memory"}
			},
		}, nil
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, backendHealth{}, err
	}
	return repositories.NewGORMStore(db), backendHealth{
		check: func(ctx context.Context) map[string]string {
			return database.Health(ctx, db)
		},
		close: func() { closeDB(db, log) },
	}, nil
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// auditEvent logs every order event that reaches the queue.
func auditEvent(log *zap.Logger) func(env rabbitmq.Envelope) error {
	return func(env rabbitmq.Envelope) error {
		log.Info("order event received",
			zap.String("event_id", env.EventID),
			zap.String("event_type", env.EventType),
			zap.String("correlation_id", env.CorrelationID),
			zap.Time("occurred_at", env.OccurredAt),
			zap.ByteString("payload", env.Payload),
		)
		return nil
	}
}

// seedProducts fills an empty catalog with a few products.
func seedProducts(ctx context.Context, backend repositories.Backend, log *zap.Logger) error {
	count, err := backend.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	products := []models.Product{
		{Name: "Laptop", Price: decimal.RequireFromString("1200.00"), Stock: 10},
		{Name: "Keyboard", Price: decimal.RequireFromString("75.00"), Stock: 25},
		{Name: "Mouse", Price: decimal.RequireFromString("25.00"), Stock: 50},
	}
	for i := range products {
		if err := backend.CreateProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		log.Info("seeded product", zap.String("name", products[i].Name), zap.Int64("id", products[i].ID))
	}
	return nil
}
