package ledger

// Tier identifies one NFT tier. The set is closed and totally ordered:
// early_bird < silver < gold < platinum.
type Tier string

const (
	TierEarlyBird Tier = "early_bird"
	TierSilver    Tier = "silver"
	TierGold      Tier = "gold"
	TierPlatinum  Tier = "platinum"
)

// TierDefinition is the static catalog entry for one tier.
type TierDefinition struct {
	Tier          Tier    `json:"tier"`
	Name          string  `json:"name"`
	XPRequirement int64   `json:"xp_requirement"` // 0 = no XP gate
	XPBonus       int64   `json:"xp_bonus"`       // credited on successful mint
	MintPriceUsd  float64 `json:"mint_price_usd"`

	MaxMintsPerUser int   `json:"max_mints_per_user"` // 0 = unlimited
	GlobalMintLimit int64 `json:"global_mint_limit"`  // 0 = unlimited; enforced off-ledger against chain supply

	// RequiresPreviousTier gates a mint on owning the immediately lower tier.
	// Supported by the evaluator but disabled in the shipped catalog.
	RequiresPreviousTier bool `json:"requires_previous_tier"`
}

// Catalog is an immutable ordered snapshot of all tier definitions.
// Configuration refreshes always build a whole new Catalog; nothing
// mutates one in place.
type Catalog struct {
	tiers []TierDefinition
	index map[Tier]int
}

// NewCatalog builds a catalog from definitions in ascending tier order.
func NewCatalog(defs []TierDefinition) Catalog {
	tiers := make([]TierDefinition, len(defs))
	copy(tiers, defs)
	index := make(map[Tier]int, len(tiers))
	for i, d := range tiers {
		index[d.Tier] = i
	}
	return Catalog{tiers: tiers, index: index}
}

// DefaultCatalog returns the shipped tier configuration.
func DefaultCatalog() Catalog {
	return NewCatalog([]TierDefinition{
		{
			Tier:            TierEarlyBird,
			Name:            "Early Bird",
			XPRequirement:   0,
			XPBonus:         50,
			MintPriceUsd:    0,
			MaxMintsPerUser: 1,
			GlobalMintLimit: 3000,
		},
		{
			Tier:            TierSilver,
			Name:            "Silver",
			XPRequirement:   1000,
			XPBonus:         300,
			MintPriceUsd:    5,
			MaxMintsPerUser: 2,
		},
		{
			Tier:          TierGold,
			Name:          "Gold",
			XPRequirement: 2500,
			XPBonus:       750,
			MintPriceUsd:  15,
		},
		{
			Tier:          TierPlatinum,
			Name:          "Platinum",
			XPRequirement: 5000,
			XPBonus:       2000,
			MintPriceUsd:  50,
		},
	})
}

// Tiers returns the definitions in ascending order.
func (c Catalog) Tiers() []TierDefinition {
	out := make([]TierDefinition, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Get looks up one tier definition.
func (c Catalog) Get(t Tier) (TierDefinition, bool) {
	i, ok := c.index[t]
	if !ok {
		return TierDefinition{}, false
	}
	return c.tiers[i], true
}

// Previous returns the immediately lower tier, if any.
func (c Catalog) Previous(t Tier) (Tier, bool) {
	i, ok := c.index[t]
	if !ok || i == 0 {
		return "", false
	}
	return c.tiers[i-1].Tier, true
}

// Entry returns the entry (free) tier — the lowest in the ordering.
func (c Catalog) Entry() Tier {
	if len(c.tiers) == 0 {
		return ""
	}
	return c.tiers[0].Tier
}

// Len reports the number of tiers in the catalog.
func (c Catalog) Len() int { return len(c.tiers) }
