package model

// ImpactTier labels the direction and size of a measured price change.
type ImpactTier struct {
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

// TierInsufficient is used when a price change could not be measured.
var TierInsufficient = ImpactTier{Label: "insufficient data", Symbol: "·"}
