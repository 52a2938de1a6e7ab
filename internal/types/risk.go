package types

import (
	"fmt"
	"strings"
)

// RiskProfile steers prompt wording. The core does not otherwise validate it.
type RiskProfile string

// Supported risk profiles.
const (
	RiskLow    RiskProfile = "low"
	RiskMedium RiskProfile = "medium"
	RiskHigh   RiskProfile = "high"
)

// ParseRiskProfile converts a user-supplied string into a RiskProfile.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium, "":
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	default:
		return "", fmt.Errorf("unknown risk profile %q (want low, medium or high)", s)
	}
}

// Normalize maps unknown values to the medium profile.
func (r RiskProfile) Normalize() RiskProfile {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return r
	default:
		return RiskMedium
	}
}

// DisplayName returns the Chinese label used in file headers.
func (r RiskProfile) DisplayName() string {
	switch r.Normalize() {
	case RiskLow:
		return "低风险"
	case RiskHigh:
		return "高风险"
	default:
		return "中风险"
	}
}
