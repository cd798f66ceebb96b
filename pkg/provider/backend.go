package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/synqs/coldatom/pkg/circuit"
)

// BackendConfig is the configuration document the provider publishes for
// each backend.
type BackendConfig struct {
	Name                  string     `json:"backend_name"`
	Version               string     `json:"backend_version"`
	Description           string     `json:"description"`
	Simulator             bool       `json:"simulator"`
	NumWires              int        `json:"num_wires"`
	MaxShots              int        `json:"max_shots"`
	MaxExperiments        int        `json:"max_experiments"`
	WireOrder             string     `json:"wire_order"`
	SupportedInstructions []string   `json:"supported_instructions"`
	Gates                 []GateInfo `json:"gates"`
}

// GateInfo describes one gate in the backend's advertised gate set.
type GateInfo struct {
	Name        string   `json:"name"`
	Wires       int      `json:"wires"`
	Parameters  []string `json:"parameters"`
	Description string   `json:"description"`
}

// Vocabulary builds the validation vocabulary from the advertised gate set.
// Providers list measure and barrier under supported_instructions but not
// under gates, so those get default specs when absent.
func (cfg *BackendConfig) Vocabulary() circuit.Vocabulary {
	vocab := make(circuit.Vocabulary, len(cfg.Gates)+2)
	for _, g := range cfg.Gates {
		vocab[g.Name] = circuit.GateSpec{WireCount: g.Wires, ParamCount: len(g.Parameters)}
	}
	for _, name := range cfg.SupportedInstructions {
		if _, ok := vocab[name]; ok {
			continue
		}
		switch name {
		case "measure":
			vocab[name] = circuit.GateSpec{WireCount: 1, ParamCount: 0}
		case "barrier":
			vocab[name] = circuit.GateSpec{WireCount: 0, ParamCount: 0}
		}
	}
	return vocab
}

// Backend is a handle on one remote backend, bound to a client and the
// backend's fetched configuration.
type Backend struct {
	client *Client
	config *BackendConfig
}

// Name returns the backend name as advertised by the provider.
func (b *Backend) Name() string { return b.config.Name }

// Config returns the backend configuration.
func (b *Backend) Config() *BackendConfig { return b.config }

// experimentPayload is the per-experiment section of the job document.
type experimentPayload struct {
	Instructions []circuit.Instruction `json:"instructions"`
	NumWires     int                   `json:"num_wires"`
	Shots        int                   `json:"shots"`
	WireOrder    string                `json:"wire_order"`
}

// Run validates the circuit against the backend configuration, submits it
// as a single-experiment job, and returns a handle on the queued job. It
// does not wait for completion; use Job.Wait for that.
func (b *Backend) Run(ctx context.Context, circ *circuit.Circuit, shots int) (*Job, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be > 0, got %d", shots)
	}
	if b.config.MaxShots > 0 && shots > b.config.MaxShots {
		return nil, fmt.Errorf("shots %d exceeds backend limit %d", shots, b.config.MaxShots)
	}
	if err := circ.Validate(b.config.Vocabulary(), b.config.NumWires); err != nil {
		return nil, fmt.Errorf("circuit rejected: %w", err)
	}

	wireOrder := b.config.WireOrder
	if wireOrder == "" {
		wireOrder = "interleaved"
	}

	payload := map[string]experimentPayload{
		"experiment_0": {
			Instructions: circ.Instructions,
			NumWires:     circ.NumWires,
			Shots:        shots,
			WireOrder:    wireOrder,
		},
	}

	jobJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	form := url.Values{"json": {string(jobJSON)}}
	body, err := b.client.postForm(ctx, b.config.Name, "post_job", form)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}

	id := gjson.GetBytes(body, "job_id").String()
	if id == "" {
		return nil, fmt.Errorf("submit job: no job_id in response: %s", truncate(body, 256))
	}

	status := Status(gjson.GetBytes(body, "status").String())
	if status == StatusError {
		return nil, &JobFailedError{JobID: id, Detail: gjson.GetBytes(body, "detail").String()}
	}

	b.client.logger.Info("job submitted",
		"backend", b.config.Name,
		"job_id", id,
		"shots", shots,
		"instructions", len(circ.Instructions),
	)

	return &Job{id: id, backend: b.config.Name, client: b.client}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
