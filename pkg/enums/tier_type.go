package enums

import "fmt"

// TierType identifies the pricing tier category for an activity.
type TierType string

const (
	TierTypeAdult   TierType = "adult"
	TierTypeChild   TierType = "child"
	TierTypeVeteran TierType = "veteran"
	TierTypeSenior  TierType = "senior"
	TierTypeStudent TierType = "student"
	TierTypeGroup   TierType = "group"
	TierTypeCustom  TierType = "custom"
)

var validTierTypes = []TierType{
	TierTypeAdult,
	TierTypeChild,
	TierTypeVeteran,
	TierTypeSenior,
	TierTypeStudent,
	TierTypeGroup,
	TierTypeCustom,
}

// String implements fmt.Stringer.
func (t TierType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TierType.
func (t TierType) IsValid() bool {
	for _, candidate := range validTierTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTierType converts raw input into a TierType.
func ParseTierType(value string) (TierType, error) {
	for _, candidate := range validTierTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier type %q", value)
}
