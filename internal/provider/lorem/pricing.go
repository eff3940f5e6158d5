package lorem

import (
	"context"
	"fmt"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

const (
	loremInputCostPer1K  = 0.0
	loremOutputCostPer1K = 0.0
)

// RegisterPricing registers lorem model pricing with the registry.
// Lorem models have zero cost as they are for testing purposes only.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	if err := registry.RegisterPricing(ctx, modelName, domain.PricingConfig{
		InputCostPer1K:  loremInputCostPer1K,
		OutputCostPer1K: loremOutputCostPer1K,
	}); err != nil {
		return fmt.Errorf("failed to register lorem pricing: %w", err)
	}
	return nil
}
