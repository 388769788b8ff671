package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"stockroom/internal/cache"
	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/events"
	"stockroom/internal/handler"
	"stockroom/internal/repository"
	"stockroom/internal/router"
	"stockroom/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a pool sized for
// concurrent placements and the migrated schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromConnString(ctx, connStr, config.DatabaseConfig{
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// Services bundles the wired service layer over a test database.
type Services struct {
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Product  service.ProductService
	Order    service.OrderService
}

// NewServices wires repositories and services the way cmd/api does, with
// the cache and event publisher disabled.
func NewServices(testDB *TestDB) *Services {
	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, repository.DefaultTxOptions(), logger)

	return &Services{
		Products: productRepo,
		Orders:   orderRepo,
		Product:  service.NewProductService(productRepo, logger),
		Order: service.NewOrderService(
			orderRepo,
			productRepo,
			cache.NewNopOrderCache(),
			events.NewNopPublisher(),
			10*time.Second,
			logger,
		),
	}
}

// NewServer builds the full HTTP stack over svc.
func NewServer(svc *Services) http.Handler {
	logger := zerolog.Nop()
	return router.New(
		handler.NewProductHandler(svc.Product, logger),
		handler.NewOrderHandler(svc.Order, logger),
		15*time.Second,
		logger,
	)
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE order_items, orders, products"); err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// StockOf returns the current stock of a product.
func StockOf(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()

	var stock int
	if err := pool.QueryRow(context.Background(), "SELECT stock FROM products WHERE id = $1", productID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock for %s: %v", productID, err)
	}
	return stock
}
