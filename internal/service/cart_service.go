package service

import (
	"context"
	"fmt"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/repository"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// Get returns the customer's cart with product details joined in. A
// customer without a cart gets an empty response, not an error.
func (s *cartService) Get(ctx context.Context, customerID string) (*model.CartResponse, error) {
	_, items, err := s.cartRepo.GetByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to get cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	resp := &model.CartResponse{
		Items:    items,
		Products: []model.Product{},
	}
	if resp.Items == nil {
		resp.Items = []model.CartItem{}
	}

	for _, item := range items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			s.logger.Error().Err(err).Str("product_id", item.ProductID).Msg("failed to get cart product")
			return nil, fmt.Errorf("failed to get cart product: %w", err)
		}
		if product != nil {
			resp.Products = append(resp.Products, *product)
		}
	}

	return resp, nil
}

// AddItem adds a product to the cart, merging quantities on repeat adds.
// The product must exist and be active; stock is only enforced at checkout.
func (s *cartService) AddItem(ctx context.Context, customerID string, req *model.AddCartItemRequest) error {
	if req == nil || req.ProductID == "" {
		return model.NewValidationError("product ID is required")
	}
	if req.Quantity <= 0 {
		return model.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", req.ProductID).Msg("failed to look up product")
		return fmt.Errorf("failed to look up product: %w", err)
	}
	if product == nil {
		return model.ErrProductNotFound
	}
	if !product.IsActive {
		return model.ErrProductUnavailable
	}

	if err := s.cartRepo.AddItem(ctx, customerID, req.ProductID, req.Quantity); err != nil {
		s.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Str("product_id", req.ProductID).
			Msg("failed to add cart item")
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	s.logger.Debug().
		Str("customer_id", customerID).
		Str("product_id", req.ProductID).
		Int("quantity", req.Quantity).
		Msg("cart item added")

	return nil
}

// UpdateItem sets the absolute quantity of a line item. Zero removes it.
func (s *cartService) UpdateItem(ctx context.Context, customerID, productID string, quantity int) error {
	if productID == "" {
		return model.NewValidationError("product ID is required")
	}
	if quantity < 0 {
		return model.ErrInvalidQuantity
	}

	if quantity == 0 {
		return s.RemoveItem(ctx, customerID, productID)
	}

	found, err := s.cartRepo.UpdateItemQuantity(ctx, customerID, productID, quantity)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to update cart item")
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if !found {
		return model.ErrCartItemNotFound
	}

	return nil
}

// RemoveItem removes a product from the cart.
func (s *cartService) RemoveItem(ctx context.Context, customerID, productID string) error {
	if productID == "" {
		return model.NewValidationError("product ID is required")
	}

	found, err := s.cartRepo.RemoveItem(ctx, customerID, productID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to remove cart item")
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if !found {
		return model.ErrCartItemNotFound
	}

	return nil
}

// Clear empties the cart.
func (s *cartService) Clear(ctx context.Context, customerID string) error {
	if err := s.cartRepo.Clear(ctx, customerID); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
