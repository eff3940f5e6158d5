package anthropic

import (
	"context"
	"fmt"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

const (
	// Claude 3.5 Haiku pricing per 1K tokens
	haikuInputCostPer1K  = 0.0008
	haikuOutputCostPer1K = 0.004

	// Claude Sonnet pricing per 1K tokens
	sonnetInputCostPer1K  = 0.003
	sonnetOutputCostPer1K = 0.015
)

// RegisterPricing registers Anthropic model pricing with the registry.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	models := map[string]domain.PricingConfig{
		"claude-3-5-haiku-latest": {
			InputCostPer1K:  haikuInputCostPer1K,
			OutputCostPer1K: haikuOutputCostPer1K,
		},
		"claude-sonnet-4-5": {
			InputCostPer1K:  sonnetInputCostPer1K,
			OutputCostPer1K: sonnetOutputCostPer1K,
		},
	}

	for model, pricing := range models {
		if err := registry.RegisterPricing(ctx, model, pricing); err != nil {
			return fmt.Errorf("failed to register %s pricing: %w", model, err)
		}
	}
	return nil
}
