package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts the order placement transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

const orderColumns = `id, order_number, customer_id,
	first_name, last_name, email, phone, address, city, state, zip, country,
	payment_method, payment_status, gateway_order_id, gateway_payment_id, gateway_signature,
	coupon_code, subtotal, discount, shipping_fee, tax, total,
	order_status, order_notes, tracking_number, stock_restored,
	created_at, updated_at, delivered_at, cancelled_at, cancelled_reason`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Shipping.FirstName,
		&o.Shipping.LastName,
		&o.Shipping.Email,
		&o.Shipping.Phone,
		&o.Shipping.Address,
		&o.Shipping.City,
		&o.Shipping.State,
		&o.Shipping.Zip,
		&o.Shipping.Country,
		&o.Payment.Method,
		&o.Payment.Status,
		&o.Payment.GatewayOrderID,
		&o.Payment.GatewayPaymentID,
		&o.Payment.GatewaySignature,
		&o.CouponCode,
		&o.Subtotal,
		&o.Discount,
		&o.ShippingFee,
		&o.Tax,
		&o.Total,
		&o.Status,
		&o.OrderNotes,
		&o.TrackingNumber,
		&o.StockRestored,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.CancelledReason,
	)
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, customer_id,
			first_name, last_name, email, phone, address, city, state, zip, country,
			payment_method, payment_status, gateway_order_id, gateway_payment_id, gateway_signature,
			coupon_code, subtotal, discount, shipping_fee, tax, total,
			order_status, order_notes, stock_restored, created_at, updated_at
		)
		VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23,
			$24, $25, $26, $27, $28
		)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.CustomerID,
		order.Shipping.FirstName, order.Shipping.LastName, order.Shipping.Email, order.Shipping.Phone,
		order.Shipping.Address, order.Shipping.City, order.Shipping.State, order.Shipping.Zip, order.Shipping.Country,
		order.Payment.Method, order.Payment.Status, order.Payment.GatewayOrderID, order.Payment.GatewayPaymentID, order.Payment.GatewaySignature,
		order.CouponCode, order.Subtotal, order.Discount, order.ShippingFee, order.Tax, order.Total,
		order.Status, order.OrderNotes, order.StockRestored, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created")

	return nil
}

// CreateItems inserts the order's snapshot items within the transaction.
func (r *orderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.ImageURL)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

// GetByID retrieves an order with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByIDForCustomer retrieves an order scoped to its owner. Missing order
// and wrong owner are indistinguishable by design.
func (r *orderRepository) GetByIDForCustomer(ctx context.Context, id uuid.UUID, customerID string) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND customer_id = $2`, id, customerID)
}

func (r *orderRepository) getOne(ctx context.Context, query string, args ...any) (*model.Order, error) {
	var order model.Order
	err := scanOrder(r.pool.QueryRow(ctx, query, args...), &order)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, quantity, unit_price, image_url
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.ImageURL)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// ListByCustomer returns the customer's orders, newest first, without items.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, customerID)
}

// List returns all orders, newest first, without items.
func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var order model.Order
		if err := scanOrder(rows, &order); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// SetGatewayOrderID stores the gateway intent reference post-commit.
func (r *orderRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	query := `
		UPDATE orders
		SET gateway_order_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, gatewayOrderID); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("gateway_order_id", gatewayOrderID).
			Msg("failed to store gateway order id")
		return fmt.Errorf("failed to store gateway order id: %w", err)
	}

	return nil
}

// SetPaymentResult records the outcome of a payment verification.
func (r *orderRepository) SetPaymentResult(ctx context.Context, id uuid.UUID, status model.PaymentStatus, paymentID, signature string, orderStatus model.OrderStatus) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
			gateway_payment_id = $3,
			gateway_signature = $4,
			order_status = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, status, paymentID, signature, orderStatus); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("payment_status", string(status)).
			Msg("failed to record payment result")
		return fmt.Errorf("failed to record payment result: %w", err)
	}

	return nil
}

// MarkCancelled moves the order into the cancelled state.
func (r *orderRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, paymentStatus model.PaymentStatus) error {
	query := `
		UPDATE orders
		SET order_status = $2,
			payment_status = $3,
			cancelled_at = CURRENT_TIMESTAMP,
			cancelled_reason = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, model.OrderStatusCancelled, paymentStatus, reason); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to cancel order")
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	return nil
}

// UpdateStatus performs an administrative status transition. The delivered
// timestamp is stamped on transition into delivered.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, trackingNumber *string, paymentStatus *model.PaymentStatus) error {
	query := `
		UPDATE orders
		SET order_status = $2,
			tracking_number = COALESCE($3, tracking_number),
			payment_status = COALESCE($4, payment_status),
			delivered_at = CASE WHEN $2 = 'delivered' THEN CURRENT_TIMESTAMP ELSE delivered_at END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, status, trackingNumber, paymentStatus); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// MarkStockRestored flips the restock guard. The condition makes restock
// idempotent across the cancel, admin-cancel and delete paths.
func (r *orderRepository) MarkStockRestored(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET stock_restored = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND NOT stock_restored
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to mark stock restored")
		return false, fmt.Errorf("failed to mark stock restored: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes the order; items go with it via ON DELETE CASCADE.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}

	return nil
}

// ListMissingIntent returns gateway-method pending orders with no gateway
// order id yet, oldest first. These are the orders stranded by a crash
// between commit and intent creation.
func (r *orderRepository) ListMissingIntent(ctx context.Context, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_method <> 'cod'
			AND order_status = 'pending'
			AND payment_status = 'pending'
			AND gateway_order_id = ''
		ORDER BY created_at
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListExpiredPending returns gateway-method orders still awaiting payment
// that were created before the cutoff.
func (r *orderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_method <> 'cod'
			AND order_status = 'pending'
			AND payment_status = 'pending'
			AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	return r.list(ctx, query, cutoff, limit)
}
