package fence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/RachelAmbler/ultra-code-fence/layering"
)

// Trace captures provenance for one resolution: which layers existed, which
// preset applied, and how long the compose took. Serialisable for logging or
// transport.
type Trace struct {
	ID       string        `json:"id"`
	Preset   string        `json:"preset,omitempty"`
	Duration time.Duration `json:"duration"`
	Layers   []Provenance  `json:"layers"`
}

// Provenance details how a specific layer contributed to the resolution.
// Layers are listed strongest first. Present reports whether the layer
// supplied any configuration at all.
type Provenance struct {
	Layer   string `json:"layer"`
	Name    string `json:"name,omitempty"`
	Present bool   `json:"present"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

func newTrace(preset string) Trace {
	return Trace{
		ID:     uuid.NewString(),
		Preset: preset,
	}
}

func (t *Trace) record(layer layering.Layer, present bool) {
	name := layer.Name
	if name == layer.Level.String() {
		name = ""
	}
	t.Layers = append(t.Layers, Provenance{
		Layer:   layer.Level.String(),
		Name:    name,
		Present: present,
	})
}
