// Package circuit builds instruction sequences for cold-atom qudit devices.
//
// A circuit is an ordered list of device instructions applied to wires,
// where each wire represents one atomic species held in the trap. The
// instruction vocabulary is defined by the remote backend (load, rotation
// gates, two-qudit couplings, measure) and every circuit is validated
// against the backend configuration before submission.
//
// On the wire each instruction is a three-element JSON array:
//
//	["rlx", [0], [0.7853981633974483]]
//
// i.e. name, wire indices, float parameters. This format is fixed by the
// provider API and preserved by custom JSON marshaling on [Instruction].
package circuit

import (
	"encoding/json"
	"fmt"
)

// Instruction is a single device operation: a named gate applied to one or
// more wires with zero or more scalar parameters.
type Instruction struct {
	Name   string
	Wires  []int
	Params []float64
}

// MarshalJSON encodes the instruction as the provider's tuple format
// [name, wires, params]. Empty wire and parameter lists encode as [] rather
// than null.
func (in Instruction) MarshalJSON() ([]byte, error) {
	wires := in.Wires
	if wires == nil {
		wires = []int{}
	}
	params := in.Params
	if params == nil {
		params = []float64{}
	}
	return json.Marshal([]any{in.Name, wires, params})
}

// UnmarshalJSON decodes the provider's tuple format.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("instruction is not a JSON array: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("instruction must have 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &in.Name); err != nil {
		return fmt.Errorf("instruction name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &in.Wires); err != nil {
		return fmt.Errorf("instruction wires: %w", err)
	}
	if err := json.Unmarshal(raw[2], &in.Params); err != nil {
		return fmt.Errorf("instruction params: %w", err)
	}
	return nil
}

// Circuit is an ordered instruction sequence over a fixed number of wires.
type Circuit struct {
	NumWires     int
	Instructions []Instruction
}

// New creates an empty circuit over numWires wires.
func New(numWires int) *Circuit {
	return &Circuit{NumWires: numWires}
}

// Append adds instructions to the end of the circuit and returns the
// circuit for chaining.
func (c *Circuit) Append(ins ...Instruction) *Circuit {
	c.Instructions = append(c.Instructions, ins...)
	return c
}

// GateSpec describes one gate in a backend's vocabulary: how many wires it
// acts on and how many parameters it takes. A WireCount of 0 means "any
// subset of wires" (used by barrier and measure).
type GateSpec struct {
	WireCount  int
	ParamCount int
}

// Vocabulary maps gate names to their specs. Backends advertise their
// vocabulary in the configuration document; see provider.BackendConfig.
type Vocabulary map[string]GateSpec

// Validate checks the circuit against a backend vocabulary and wire limit.
// It reports the first violation found, in instruction order.
func (c *Circuit) Validate(vocab Vocabulary, maxWires int) error {
	if c.NumWires <= 0 {
		return fmt.Errorf("circuit has %d wires, need at least 1", c.NumWires)
	}
	if maxWires > 0 && c.NumWires > maxWires {
		return fmt.Errorf("circuit uses %d wires, backend supports %d", c.NumWires, maxWires)
	}
	for i, in := range c.Instructions {
		spec, ok := vocab[in.Name]
		if !ok {
			return fmt.Errorf("instruction %d: gate %q not supported by backend", i, in.Name)
		}
		if spec.WireCount > 0 && len(in.Wires) != spec.WireCount {
			return fmt.Errorf("instruction %d: gate %q expects %d wires, got %d",
				i, in.Name, spec.WireCount, len(in.Wires))
		}
		if len(in.Params) != spec.ParamCount {
			return fmt.Errorf("instruction %d: gate %q expects %d params, got %d",
				i, in.Name, spec.ParamCount, len(in.Params))
		}
		for _, w := range in.Wires {
			if w < 0 || w >= c.NumWires {
				return fmt.Errorf("instruction %d: wire %d out of range [0,%d)", i, w, c.NumWires)
			}
		}
	}
	return nil
}
