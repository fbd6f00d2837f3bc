package di

import (
	"encoding/json"
)

// Trace captures which container fields a synchronization pass visited and
// whether each one had provider state copied.
type Trace struct {
	Container string       `json:"container"`
	Fields    []FieldTrace `json:"fields"`
}

// FieldTrace details how a single container field participated in a sync.
type FieldTrace struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Synced bool   `json:"synced"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
