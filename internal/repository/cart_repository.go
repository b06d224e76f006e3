package repository

import (
	"context"
	"fmt"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByCustomer returns the customer's cart and its items.
func (r *cartRepository) GetByCustomer(ctx context.Context, customerID string) (*model.Cart, []model.CartItem, error) {
	cartQuery := `
		SELECT id, customer_id, created_at, updated_at
		FROM carts
		WHERE customer_id = $1
	`

	var cart model.Cart
	err := r.pool.QueryRow(ctx, cartQuery, customerID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to query cart")
		return nil, nil, fmt.Errorf("failed to query cart: %w", err)
	}

	items, err := r.queryItems(ctx, r.pool, cart.ID)
	if err != nil {
		return nil, nil, err
	}

	return &cart, items, nil
}

// GetItems returns the cart's line items within the transaction.
func (r *cartRepository) GetItems(ctx context.Context, tx pgx.Tx, customerID string) ([]model.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.added_at
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.customer_id = $1
		ORDER BY ci.added_at, ci.id
	`

	rows, err := tx.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	return scanCartItems(rows)
}

// AddItem upserts a line item, merging quantity on conflict. The cart row
// is created lazily on the first add.
func (r *cartRepository) AddItem(ctx context.Context, customerID, productID string, quantity int) error {
	cartQuery := `
		INSERT INTO carts (id, customer_id, created_at, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (customer_id)
		DO UPDATE SET updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var cartID uuid.UUID
	if err := r.pool.QueryRow(ctx, cartQuery, uuid.New(), customerID).Scan(&cartID); err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to upsert cart")
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	itemQuery := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	if _, err := r.pool.Exec(ctx, itemQuery, uuid.New(), cartID, productID, quantity); err != nil {
		r.logger.Error().Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to add cart item")
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	r.logger.Debug().
		Str("customer_id", customerID).
		Str("product_id", productID).
		Int("quantity", quantity).
		Msg("cart item added")

	return nil
}

// UpdateItemQuantity sets the absolute quantity of a line item.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, customerID, productID string, quantity int) (bool, error) {
	query := `
		UPDATE cart_items ci
		SET quantity = $3
		FROM carts c
		WHERE c.id = ci.cart_id AND c.customer_id = $1 AND ci.product_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, customerID, productID, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to update cart item")
		return false, fmt.Errorf("failed to update cart item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// RemoveItem deletes a line item from the customer's cart.
func (r *cartRepository) RemoveItem(ctx context.Context, customerID, productID string) (bool, error) {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE c.id = ci.cart_id AND c.customer_id = $1 AND ci.product_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, customerID, productID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to remove cart item")
		return false, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Clear empties the cart. The cart row itself is kept.
func (r *cartRepository) Clear(ctx context.Context, customerID string) error {
	return r.clear(ctx, r.pool, customerID)
}

// ClearTx empties the cart within the order placement transaction.
func (r *cartRepository) ClearTx(ctx context.Context, tx pgx.Tx, customerID string) error {
	return r.clear(ctx, tx, customerID)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (r *cartRepository) clear(ctx context.Context, q execer, customerID string) error {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE c.id = ci.cart_id AND c.customer_id = $1
	`

	if _, err := q.Exec(ctx, query, customerID); err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().Str("customer_id", customerID).Msg("cart cleared")
	return nil
}

func scanCartItems(rows pgx.Rows) ([]model.CartItem, error) {
	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) queryItems(ctx context.Context, pool *pgxpool.Pool, cartID uuid.UUID) ([]model.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, added_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`

	rows, err := pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	return scanCartItems(rows)
}
