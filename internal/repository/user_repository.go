package repository

import (
	"context"
	"fmt"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// userRepository implements the UserRepository interface using PostgreSQL.
// The user profile itself is owned by another system; this repository only
// touches the saved-address book.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

// SaveAddress appends a shipping address to the customer's address book.
func (r *userRepository) SaveAddress(ctx context.Context, customerID string, addr model.ShippingAddress) error {
	query := `
		INSERT INTO saved_addresses (
			id, customer_id, first_name, last_name, email, phone,
			address, city, state, zip, country, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
	`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), customerID,
		addr.FirstName, addr.LastName, addr.Email, addr.Phone,
		addr.Address, addr.City, addr.State, addr.Zip, addr.Country,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Msg("failed to save address")
		return fmt.Errorf("failed to save address: %w", err)
	}

	r.logger.Debug().Str("customer_id", customerID).Msg("address saved")
	return nil
}
