package analysis

import (
	"encoding/json"
	"testing"
)

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var doc struct {
		Properties map[string]struct {
			OneOf []struct {
				Properties map[string]json.RawMessage `json:"properties"`
			} `json:"oneOf"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	for _, kind := range AllKinds {
		prop, ok := doc.Properties[kind.String()]
		if !ok {
			t.Errorf("Expected property %q", kind)
			continue
		}
		if len(prop.OneOf) != 2 {
			t.Errorf("%s: expected report or failure, got %d alternatives", kind, len(prop.OneOf))
			continue
		}
		if _, ok := prop.OneOf[1].Properties["error_name"]; !ok {
			t.Errorf("%s: expected failure alternative with error_name", kind)
		}
	}

	intonation := doc.Properties["intonation"].OneOf[0].Properties
	for _, field := range []string{"status", "char_summary", "pitch_contour_char"} {
		if _, ok := intonation[field]; !ok {
			t.Errorf("Expected intonation field %q", field)
		}
	}
}
