package pricing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
)

// LineRequest asks for a quantity of one pricing tier. Age is optional and
// only checked against the tier's eligibility window when present.
type LineRequest struct {
	TierID   uuid.UUID `json:"tier_id"`
	Quantity int       `json:"quantity"`
	Age      *int      `json:"age,omitempty"`
}

// Line is one priced row of a quote.
type Line struct {
	TierID    uuid.UUID `json:"tier_id"`
	TierType  string    `json:"tier_type"`
	Label     string    `json:"label"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	LineTotal float64   `json:"line_total"`
}

// Quote is a fully itemized price for a set of tier lines. Lines keep the
// caller-supplied order so the widget can render them as submitted.
type Quote struct {
	Lines     []Line    `json:"lines"`
	Breakdown Breakdown `json:"breakdown"`
}

// BuildQuote resolves each requested line against the supplied tiers and
// totals the result at the given tax rate. Any unresolved or ineligible tier
// fails the whole quote.
func BuildQuote(tiers []models.PricingTier, requests []LineRequest, taxRate, discountAmount float64) (Quote, error) {
	if len(requests) == 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	byID := make(map[uuid.UUID]models.PricingTier, len(tiers))
	for _, tier := range tiers {
		byID[tier.ID] = tier
	}

	lines := make([]Line, 0, len(requests))
	var subtotal float64
	var partySize int

	for i, req := range requests {
		if req.Quantity <= 0 {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"line": i})
		}

		tier, ok := byID[req.TierID]
		if !ok {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "tier not found").
				WithDetails(map[string]any{"tier_id": req.TierID.String()})
		}
		if !tier.IsActive || !tier.EligibleForAge(req.Age) {
			return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "tier not eligible").
				WithDetails(map[string]any{"tier_id": req.TierID.String(), "tier_type": tier.TierType.String()})
		}
		if !IsValidPrice(tier.UnitPrice) {
			return Quote{}, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("tier %s has an invalid unit price", tier.ID))
		}

		lineTotal := tier.UnitPrice * float64(req.Quantity)
		lines = append(lines, Line{
			TierID:    tier.ID,
			TierType:  tier.TierType.String(),
			Label:     tier.Label,
			UnitPrice: tier.UnitPrice,
			Quantity:  req.Quantity,
			LineTotal: lineTotal,
		})
		subtotal += lineTotal
		partySize += req.Quantity
	}

	breakdown := totalFromSubtotal(subtotal, partySize, taxRate, discountAmount)
	return Quote{Lines: lines, Breakdown: breakdown}, nil
}

// totalFromSubtotal applies discount and tax to an already-summed subtotal.
// Shares rounding behavior with CalculateWithTax so single-tier quotes and
// multi-tier quotes agree to the cent.
func totalFromSubtotal(subtotal float64, partySize int, taxRate, discountAmount float64) Breakdown {
	afterDiscount := subtotal - discountAmount
	if afterDiscount < 0 {
		afterDiscount = 0
	}

	breakdown := Breakdown{
		PartySize: partySize,
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		Tax:       Round(afterDiscount * taxRate),
		Total:     Round(afterDiscount * (1 + taxRate)),
	}
	if partySize > 0 {
		breakdown.PricePerPerson = Round(subtotal / float64(partySize))
	}
	if discountAmount > 0 {
		applied := discountAmount
		breakdown.DiscountAmount = &applied
	}
	return breakdown
}
