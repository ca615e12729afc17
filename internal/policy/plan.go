// Package policy holds the pure access rules for subscription tiers and team roles.
// Nothing here performs I/O; the services enforce the same rules server-side.
package policy

import (
	"strings"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// Monthly AI credit allotments per tier.
const (
	CreditsFree    = 0
	CreditsPremium = 100
	CreditsPro     = 500
)

// Capabilities is the feature set unlocked by a tier.
type Capabilities struct {
	Notes       bool `json:"notes"`
	Wishlist    bool `json:"wishlist"`
	AI          bool `json:"ai"`
	FutureTasks bool `json:"futureTasks"`
	Admin       bool `json:"admin"`
}

var tierCapabilities = map[models.Plan]Capabilities{
	models.PlanFree: {
		Notes: true,
	},
	models.PlanPremium: {
		Notes:       true,
		Wishlist:    true,
		AI:          true,
		FutureTasks: true,
	},
	models.PlanPro: {
		Notes:       true,
		Wishlist:    true,
		AI:          true,
		FutureTasks: true,
		Admin:       true,
	},
}

// CreditPacks maps one-time purchase pack ids to the credits they grant.
var CreditPacks = map[string]int{
	"credits_50":  50,
	"credits_200": 200,
}

// NormalizeTier maps arbitrary input to a known plan. Unknown values become free.
func NormalizeTier(tier string) models.Plan {
	switch p := models.Plan(strings.ToLower(strings.TrimSpace(tier))); p {
	case models.PlanPremium, models.PlanPro:
		return p
	default:
		return models.PlanFree
	}
}

// IsPaidTier reports whether tier names a paid subscription.
func IsPaidTier(tier string) bool {
	return NormalizeTier(tier) != models.PlanFree
}

// CapabilitiesFor returns the capability flags of a tier.
func CapabilitiesFor(tier string) Capabilities {
	return tierCapabilities[NormalizeTier(tier)]
}

// GetAICredits returns the monthly AI credit allotment of a tier.
func GetAICredits(tier string) int {
	switch NormalizeTier(tier) {
	case models.PlanPro:
		return CreditsPro
	case models.PlanPremium:
		return CreditsPremium
	default:
		return CreditsFree
	}
}

// CanAccessAI lets paid tiers through, and free users holding purchased credits.
func CanAccessAI(tier string, purchasedCredits int) bool {
	if CapabilitiesFor(tier).AI {
		return true
	}
	return purchasedCredits > 0
}
