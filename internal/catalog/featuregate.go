package catalog

import (
	"context"

	"github.com/korberlin/apigateway/pkg/feature"
)

// TierFeatureProvider adapts a Tier's static Features map (spec.md §3) to
// pkg/feature.Provider, so tier-feature gating goes through the same
// evaluation surface as any other rollout flag instead of a one-off map
// lookup (SPEC_FULL §12.3).
type TierFeatureProvider struct {
	tier Tier
}

// NewTierFeatureProvider returns a read-only feature.Provider backed by
// tier's Features map. Mutating methods are unsupported: tier features are
// administratively managed data, not runtime-toggled flags.
func NewTierFeatureProvider(tier Tier) *TierFeatureProvider {
	return &TierFeatureProvider{tier: tier}
}

func (p *TierFeatureProvider) IsEnabled(_ context.Context, flagName string) (bool, error) {
	if !p.tier.HasFeature(flagName) {
		return false, feature.ErrFlagNotFound
	}
	return true, nil
}

func (p *TierFeatureProvider) GetFlag(_ context.Context, flagName string) (*feature.Flag, error) {
	if !p.tier.HasFeature(flagName) {
		return nil, feature.ErrFlagNotFound
	}
	return &feature.Flag{Name: flagName, Enabled: true}, nil
}

func (p *TierFeatureProvider) ListFlags(_ context.Context, _ ...string) ([]*feature.Flag, error) {
	flags := make([]*feature.Flag, 0, len(p.tier.Features))
	for name, enabled := range p.tier.Features {
		if enabled {
			flags = append(flags, &feature.Flag{Name: name, Enabled: true})
		}
	}
	return flags, nil
}

func (p *TierFeatureProvider) CreateFlag(_ context.Context, _ *feature.Flag) error {
	return feature.ErrOperationFailed
}

func (p *TierFeatureProvider) UpdateFlag(_ context.Context, _ *feature.Flag) error {
	return feature.ErrOperationFailed
}

func (p *TierFeatureProvider) DeleteFlag(_ context.Context, _ string) error {
	return feature.ErrOperationFailed
}

func (p *TierFeatureProvider) Close() error { return nil }
