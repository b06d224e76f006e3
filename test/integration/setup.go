package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/config"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/database"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/gateway"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
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

// SetupTestDB creates a PostgreSQL test container, a connection pool and
// the full schema.
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
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.ApplySchema(ctx, pool); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
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

// SeedProduct inserts a product row for tests.
func (db *TestDB) SeedProduct(t *testing.T, p model.Product) {
	t.Helper()

	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO products (id, name, description, category, price, image_url, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.Category, p.Price, p.ImageURL, p.Stock, p.IsActive)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", p.ID, err)
	}
}

// ProductStock reads a product's current stock.
func (db *TestDB) ProductStock(t *testing.T, productID string) int {
	t.Helper()

	var stock int
	err := db.Pool.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		t.Fatalf("failed to read stock for %s: %v", productID, err)
	}
	return stock
}

// CartItemCount counts the line items in a customer's cart.
func (db *TestDB) CartItemCount(t *testing.T, customerID string) int {
	t.Helper()

	var count int
	err := db.Pool.QueryRow(context.Background(), `
		SELECT COUNT(*)
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.customer_id = $1
	`, customerID).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count cart items: %v", err)
	}
	return count
}

// testSecret signs stub gateway callbacks.
const testSecret = "integration-secret"

// stubGateway is an in-process stand-in for the payment provider. It
// issues deterministic intents and verifies signatures with the real
// HMAC scheme.
type stubGateway struct {
	intents  int
	refunds  int
	declined bool
}

func (g *stubGateway) CreateIntent(_ context.Context, amount float64, currency, receipt string) (*gateway.Intent, error) {
	if g.declined {
		return nil, &model.GatewayError{Op: "create intent", Err: fmt.Errorf("declined")}
	}
	g.intents++
	return &gateway.Intent{
		GatewayOrderID: fmt.Sprintf("gw_order_%s", receipt),
		Amount:         gateway.MinorUnits(amount),
		Currency:       currency,
	}, nil
}

func (g *stubGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	return gateway.VerifySignature(testSecret, gatewayOrderID, gatewayPaymentID, signature)
}

func (g *stubGateway) Refund(_ context.Context, gatewayPaymentID string, amount float64) (*gateway.Refund, error) {
	if g.declined {
		return nil, &model.GatewayError{Op: "refund", Err: fmt.Errorf("declined")}
	}
	g.refunds++
	return &gateway.Refund{RefundID: fmt.Sprintf("rf_%d", g.refunds), Amount: gateway.MinorUnits(amount)}, nil
}

// acceptAllPromos satisfies coupon.Validator for pipeline tests that do
// not care about promo lists.
type acceptAllPromos struct{}

func (acceptAllPromos) Validate(context.Context, string) error { return nil }
func (acceptAllPromos) Close() error                           { return nil }

// testCheckoutConfig mirrors the production defaults.
func testCheckoutConfig() *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{
			KeyID:    "key_integration",
			Currency: "INR",
		},
		Checkout: config.CheckoutConfig{
			FreeShippingThreshold: 1999,
			FlatShippingFee:       50,
			DiscountPercent:       10,
			PendingOrderTTL:       60,
			ReconcileInterval:     300,
		},
	}
}
