package coupon

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/rs/zerolog"
)

// validator implements Validator over the active code lists. Sets are
// read-only after initialisation, so lookups need no locking.
type validator struct {
	codeSets []CodeSet
	logger   zerolog.Logger
}

// ValidatorConfig holds configuration for the promo code validator.
type ValidatorConfig struct {
	// FilePaths is the list of code list paths to load. A code in any of
	// them is valid; multiple lists let seasonal campaigns ship separately.
	FilePaths []string
}

// NewValidator creates a new promo code validator, loading all configured
// code lists concurrently at initialisation time.
func NewValidator(ctx context.Context, config *ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	if config == nil || len(config.FilePaths) == 0 {
		return nil, fmt.Errorf("at least one promo code list is required")
	}

	logger = logger.With().Str("component", "promo-validator").Logger()

	logger.Info().
		Int("list_count", len(config.FilePaths)).
		Msg("initialising promo code validator")

	type loadResult struct {
		index int
		set   CodeSet
		err   error
	}

	resultChan := make(chan loadResult, len(config.FilePaths))
	var wg sync.WaitGroup

	for i, filePath := range config.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			set, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, set: set, err: err}
		}(i, filePath)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(config.FilePaths))
	for result := range resultChan {
		results[result.index] = result
	}

	v := &validator{
		codeSets: make([]CodeSet, 0, len(config.FilePaths)),
		logger:   logger,
	}

	totalCodes := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", config.FilePaths[i]).
				Msg("failed to load promo code list")
			return nil, fmt.Errorf("failed to load promo code list %s: %w", config.FilePaths[i], result.err)
		}
		v.codeSets = append(v.codeSets, result.set)
		totalCodes += result.set.Size()
	}

	logger.Info().
		Int("total_codes", totalCodes).
		Msg("promo code validator initialised")

	return v, nil
}

// Validate checks if a promo code is valid: between 6 and 12 characters
// and present in at least one active code list. Lookup is case-insensitive.
func (v *validator) Validate(ctx context.Context, code string) error {
	if len(code) < 6 || len(code) > 12 {
		v.logger.Debug().
			Str("code", code).
			Int("length", len(code)).
			Msg("promo code length invalid")
		return model.ErrInvalidCouponLength
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	normalised := strings.ToUpper(code)
	for _, set := range v.codeSets {
		if set.Contains(normalised) {
			v.logger.Debug().Str("code", code).Msg("promo code validated")
			return nil
		}
	}

	v.logger.Debug().Str("code", code).Msg("promo code not found in any active list")
	return model.ErrInvalidCouponCode
}

// Close releases resources held by the validator.
func (v *validator) Close() error {
	v.codeSets = nil
	v.logger.Info().Msg("promo code validator closed")
	return nil
}
