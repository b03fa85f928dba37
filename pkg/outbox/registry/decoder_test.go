package registry

import (
	"encoding/json"
	"testing"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventPricingUpdated, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"activityId":"f47ac10b-58cc-4372-a567-0e02b2c3d479"}`)
	output, err := reg.Decode(enums.EventPricingUpdated, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["activityId"] == "" {
		t.Fatalf("unexpected output %+v", output)
	}
}
