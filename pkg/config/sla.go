package config

// SLATargets are compliance targets in seconds. A zero target disables the
// corresponding compliance flag.
type SLATargets struct {
	// PickupTarget bounds openedAt → pickedUpAt.
	PickupTarget int64 `yaml:"pickup_target"`

	// FirstResponseTarget bounds openedAt → first agent response.
	FirstResponseTarget int64 `yaml:"first_response_target"`

	// AvgResponseTarget bounds the mean customer → agent reply gap.
	AvgResponseTarget int64 `yaml:"avg_response_target"`

	// ResolutionTarget bounds openedAt → closedAt.
	ResolutionTarget int64 `yaml:"resolution_target"`
}

// SLAConfig holds the base targets plus optional per-provider and
// per-priority overrides. Overrides are partial: a zero field inherits the
// value it would otherwise have, so a config with no overrides degenerates
// to a single global target set.
type SLAConfig struct {
	SLATargets `yaml:",inline"`

	// CompliancePct is the fleet-level compliance goal in percent. It is
	// reported alongside the per-chat flags, not applied to them.
	CompliancePct float64 `yaml:"compliance_pct"`

	// ProviderOverrides refine targets per messaging channel
	// (whatsapp, facebook, telegram, livechat, b2cbotapi).
	ProviderOverrides map[string]SLATargets `yaml:"provider_overrides,omitempty"`

	// PriorityOverrides refine targets per chat priority label.
	PriorityOverrides map[string]SLATargets `yaml:"priority_overrides,omitempty"`
}

// DefaultSLAConfig returns the built-in service-level defaults.
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		SLATargets: SLATargets{
			PickupTarget:        120,
			FirstResponseTarget: 300,
			AvgResponseTarget:   600,
			ResolutionTarget:    7200,
		},
		CompliancePct: 90,
	}
}

// TargetsFor resolves the effective targets for one chat. Provider
// overrides apply first, then priority overrides.
func (c *SLAConfig) TargetsFor(provider, priority string) SLATargets {
	targets := c.SLATargets
	if o, ok := c.ProviderOverrides[provider]; ok {
		targets = targets.override(o)
	}
	if o, ok := c.PriorityOverrides[priority]; ok {
		targets = targets.override(o)
	}
	return targets
}

func (t SLATargets) override(o SLATargets) SLATargets {
	if o.PickupTarget > 0 {
		t.PickupTarget = o.PickupTarget
	}
	if o.FirstResponseTarget > 0 {
		t.FirstResponseTarget = o.FirstResponseTarget
	}
	if o.AvgResponseTarget > 0 {
		t.AvgResponseTarget = o.AvgResponseTarget
	}
	if o.ResolutionTarget > 0 {
		t.ResolutionTarget = o.ResolutionTarget
	}
	return t
}
