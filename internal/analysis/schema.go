package analysis

import (
	"github.com/invopop/jsonschema"
)

// Response documents the body returned for an analysis request: one entry
// per requested module.
type Response struct {
	Intensity    *IntensityReport    `json:"intensity,omitempty"`
	SpeechRate   *SpeechRateReport   `json:"speechrate,omitempty"`
	Intonation   *IntonationReport   `json:"intonation,omitempty"`
	Articulation *ArticulationReport `json:"articulation,omitempty"`
}

// Schema returns the JSON Schema of Response in which every module entry may
// also be a Failure.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&Response{})
	schema.Title = "echo-speech analysis response"

	failure := reflector.Reflect(&Failure{})
	failure.Version = ""

	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value = &jsonschema.Schema{OneOf: []*jsonschema.Schema{pair.Value, failure}}
	}
	return schema
}
