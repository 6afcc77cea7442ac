package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetsForNoOverrides(t *testing.T) {
	cfg := DefaultSLAConfig()

	targets := cfg.TargetsFor("whatsapp", "")
	assert.Equal(t, cfg.SLATargets, targets, "without overrides every chat gets the base targets")
}

func TestTargetsForProviderOverride(t *testing.T) {
	cfg := DefaultSLAConfig()
	cfg.ProviderOverrides = map[string]SLATargets{
		"livechat": {PickupTarget: 30},
	}

	targets := cfg.TargetsFor("livechat", "")
	assert.Equal(t, int64(30), targets.PickupTarget)
	assert.Equal(t, cfg.FirstResponseTarget, targets.FirstResponseTarget, "unset override fields inherit")

	other := cfg.TargetsFor("whatsapp", "")
	assert.Equal(t, cfg.PickupTarget, other.PickupTarget)
}

func TestTargetsForPriorityBeatsProvider(t *testing.T) {
	cfg := DefaultSLAConfig()
	cfg.ProviderOverrides = map[string]SLATargets{
		"whatsapp": {PickupTarget: 90, ResolutionTarget: 3600},
	}
	cfg.PriorityOverrides = map[string]SLATargets{
		"urgent": {PickupTarget: 15},
	}

	targets := cfg.TargetsFor("whatsapp", "urgent")
	assert.Equal(t, int64(15), targets.PickupTarget, "priority override applies last")
	assert.Equal(t, int64(3600), targets.ResolutionTarget, "provider override survives where priority is silent")
}
