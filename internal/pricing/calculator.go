package pricing

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultTaxRate applies when the caller does not supply an explicit rate.
const DefaultTaxRate = 0.08

// Breakdown is the itemized result of a price calculation. Amounts are
// dollars; Tax and Total are rounded to cents independently, Subtotal is
// exact. DiscountAmount is present only when a positive discount applied,
// which the widget uses to decide whether to render a discount line.
type Breakdown struct {
	PricePerPerson float64  `json:"pricePerPerson"`
	PartySize      int      `json:"partySize"`
	Subtotal       float64  `json:"subtotal"`
	DiscountAmount *float64 `json:"discountAmount,omitempty"`
	TaxRate        float64  `json:"taxRate"`
	Tax            float64  `json:"tax"`
	Total          float64  `json:"total"`
}

// Calculate prices a party at the default tax rate.
func Calculate(pricePerPerson float64, partySize int, discountAmount float64) Breakdown {
	return CalculateWithTax(pricePerPerson, partySize, DefaultTaxRate, discountAmount)
}

// CalculateWithTax prices a party at a caller-supplied tax rate. The rate is
// not bounds-checked; negative or >1 values multiply through unchanged.
// Excess discount is clipped at zero rather than reported as an error.
func CalculateWithTax(pricePerPerson float64, partySize int, taxRate, discountAmount float64) Breakdown {
	subtotal := pricePerPerson * float64(partySize)

	afterDiscount := subtotal - discountAmount
	if afterDiscount < 0 {
		afterDiscount = 0
	}

	breakdown := Breakdown{
		PricePerPerson: pricePerPerson,
		PartySize:      partySize,
		Subtotal:       subtotal,
		TaxRate:        taxRate,
		Tax:            Round(afterDiscount * taxRate),
		Total:          Round(afterDiscount * (1 + taxRate)),
	}
	if discountAmount > 0 {
		applied := discountAmount
		breakdown.DiscountAmount = &applied
	}
	return breakdown
}

// Round rounds a dollar amount to cents, half away from zero on the scaled
// integer. Every monetary rounding in the system goes through here so cent
// totals stay consistent end to end.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ApplyPercentageDiscount returns the discount value for a percentage promo.
func ApplyPercentageDiscount(amount, percentage float64) float64 {
	return Round(amount * percentage / 100)
}

// ApplyFixedDiscount subtracts a flat discount, clamped at zero.
func ApplyFixedDiscount(amount, discountAmount float64) float64 {
	result := amount - discountAmount
	if result < 0 {
		return 0
	}
	return result
}

// DiscountPercentage reports the whole-number percentage saved between the
// original and discounted price. A zero original price yields 0.
func DiscountPercentage(originalPrice, discountedPrice float64) int {
	if originalPrice == 0 {
		return 0
	}
	return int(math.Round((originalPrice - discountedPrice) / originalPrice * 100))
}

// IsValidPrice reports whether the value is usable as a price: finite and
// non-negative.
func IsValidPrice(price float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	return price >= 0
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders a currency amount for display (US English grouping, two
// decimals). Presentation only; never feeds back into calculations.
func Format(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	return printer.Sprint(currency.NarrowSymbol(unit.Amount(amount)))
}

// FormatNumber renders a plain amount with US English grouping and two
// decimals.
func FormatNumber(amount float64) string {
	return printer.Sprint(number.Decimal(amount,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}
