package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

// TierTypeList stores the tier types a promo code is declared against.
// Declared only: the calculation path applies discounts to the whole
// subtotal regardless of this list.
type TierTypeList []enums.TierType

// Value serializes the list to JSON.
func (l TierTypeList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan decodes JSONB into the list.
func (l *TierTypeList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded TierTypeList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}
