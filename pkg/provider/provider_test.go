package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/synqs/coldatom/pkg/circuit"
)

const testConfigJSON = `{
	"backend_name": "multiqudit",
	"backend_version": "0.2",
	"simulator": true,
	"num_wires": 4,
	"max_shots": 1000,
	"max_experiments": 15,
	"wire_order": "interleaved",
	"supported_instructions": ["load", "rlx", "rlz", "rlz2", "lzlz", "lxly", "barrier", "measure"],
	"gates": [
		{"name": "load", "wires": 1, "parameters": ["n"]},
		{"name": "rlx", "wires": 1, "parameters": ["omega"]},
		{"name": "rlz", "wires": 1, "parameters": ["delta"]},
		{"name": "rlz2", "wires": 1, "parameters": ["chi"]},
		{"name": "lzlz", "wires": 2, "parameters": ["gamma"]},
		{"name": "lxly", "wires": 2, "parameters": ["gamma"]}
	]
}`

// fakeProvider is a minimal qlued-style API for tests. Jobs advance one
// lifecycle step per status poll so Wait exercises real polling.
type fakeProvider struct {
	t         *testing.T
	jobs      map[string][]Status
	resultDoc string
	submitted []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	return &fakeProvider{
		t:    t,
		jobs: make(map[string][]Status),
		resultDoc: `{
			"backend_name": "multiqudit",
			"job_id": "%s",
			"success": true,
			"status": "finished",
			"results": [{
				"shots": 4,
				"success": true,
				"header": {"name": "experiment_0", "num_wires": 2},
				"data": {"memory": [[3, 4], [2, 5], [3, 3], [4, 4]]}
			}]
		}`,
	}
}

func (f *fakeProvider) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/multiqudit/get_config/", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r.URL.Query().Get("username"), r.URL.Query().Get("password")) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, testConfigJSON)
	})
	mux.HandleFunc("/multiqudit/post_job/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !f.authorized(r.PostFormValue("username"), r.PostFormValue("password")) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		jobJSON := r.PostFormValue("json")
		if jobJSON == "" {
			http.Error(w, "missing json field", http.StatusBadRequest)
			return
		}
		id := fmt.Sprintf("job-%d", len(f.jobs)+1)
		f.jobs[id] = []Status{StatusInitializing, StatusQueued, StatusRunning, StatusDone}
		f.submitted = append(f.submitted, jobJSON)
		fmt.Fprintf(w, `{"job_id": %q, "status": "INITIALIZING", "detail": "queued"}`, id)
	})
	mux.HandleFunc("/multiqudit/get_job_status/", func(w http.ResponseWriter, r *http.Request) {
		id := gjson.Get(r.URL.Query().Get("json"), "job_id").String()
		states, ok := f.jobs[id]
		if !ok {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		status := states[0]
		if len(states) > 1 {
			f.jobs[id] = states[1:]
		}
		fmt.Fprintf(w, `{"job_id": %q, "status": %q, "detail": ""}`, id, status)
	})
	mux.HandleFunc("/multiqudit/get_job_result/", func(w http.ResponseWriter, r *http.Request) {
		id := gjson.Get(r.URL.Query().Get("json"), "job_id").String()
		fmt.Fprintf(w, f.resultDoc, id)
	})
	return httptest.NewServer(mux)
}

func (f *fakeProvider) authorized(username, password string) bool {
	return username == "alice" && password == "token123"
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(serverURL, "alice", "token123")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func rabiCircuit() *circuit.Circuit {
	return circuit.New(1).Append(
		circuit.Load(0, 50),
		circuit.RLX(0, 0.5),
		circuit.Measure(0),
	)
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		username string
		token    string
		wantErr  bool
	}{
		{"valid", "http://localhost:8000/api/v2", "alice", "tok", false},
		{"missing url", "", "alice", "tok", true},
		{"missing username", "http://localhost:8000", "", "tok", true},
		{"missing token", "http://localhost:8000", "alice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url, tt.username, tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_BackendConfig(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)

	cfg, err := client.BackendConfig(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("BackendConfig error: %v", err)
	}
	if cfg.Name != "multiqudit" {
		t.Errorf("Name = %q, want %q", cfg.Name, "multiqudit")
	}
	if cfg.NumWires != 4 {
		t.Errorf("NumWires = %d, want 4", cfg.NumWires)
	}
	if cfg.MaxShots != 1000 {
		t.Errorf("MaxShots = %d, want 1000", cfg.MaxShots)
	}

	vocab := cfg.Vocabulary()
	if spec, ok := vocab["lxly"]; !ok || spec.WireCount != 2 || spec.ParamCount != 1 {
		t.Errorf("lxly spec = %+v, want {2 1}", spec)
	}
	if spec, ok := vocab["measure"]; !ok || spec.WireCount != 1 || spec.ParamCount != 0 {
		t.Errorf("measure spec = %+v, want {1 0}", spec)
	}
}

func TestClient_BadCredentials(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client, err := NewClient(server.URL, "alice", "wrong-token")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	_, err = client.Backend(context.Background(), "multiqudit")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBackend_Run(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	job, err := backend.Run(context.Background(), rabiCircuit(), 500)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if job.ID() == "" {
		t.Error("expected non-empty job id")
	}

	// Verify the submitted payload shape.
	if len(fake.submitted) != 1 {
		t.Fatalf("expected 1 submitted job, got %d", len(fake.submitted))
	}
	payload := fake.submitted[0]
	if got := gjson.Get(payload, "experiment_0.shots").Int(); got != 500 {
		t.Errorf("shots = %d, want 500", got)
	}
	if got := gjson.Get(payload, "experiment_0.num_wires").Int(); got != 1 {
		t.Errorf("num_wires = %d, want 1", got)
	}
	if got := gjson.Get(payload, "experiment_0.wire_order").String(); got != "interleaved" {
		t.Errorf("wire_order = %q, want %q", got, "interleaved")
	}
	if got := gjson.Get(payload, "experiment_0.instructions.1.0").String(); got != "rlx" {
		t.Errorf("second instruction = %q, want %q", got, "rlx")
	}
}

func TestBackend_Run_Rejections(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	tests := []struct {
		name    string
		circuit *circuit.Circuit
		shots   int
	}{
		{"zero shots", rabiCircuit(), 0},
		{"shots over backend limit", rabiCircuit(), 2000},
		{"unsupported gate", circuit.New(1).Append(
			circuit.Instruction{Name: "hop", Wires: []int{0}, Params: []float64{0.1}},
		), 100},
		{"too many wires", circuit.New(8).Append(circuit.Measure(0)), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := backend.Run(context.Background(), tt.circuit, tt.shots); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if len(fake.submitted) != 0 {
		t.Errorf("rejected circuits must not be submitted, got %d submissions", len(fake.submitted))
	}
}

func TestJob_Wait(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	job, err := backend.Run(context.Background(), rabiCircuit(), 100)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := job.Wait(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if result.JobID != job.ID() {
		t.Errorf("result job id = %q, want %q", result.JobID, job.ID())
	}
	if len(result.Experiments) != 1 {
		t.Fatalf("expected 1 experiment, got %d", len(result.Experiments))
	}
	if result.Experiments[0].Shots != 4 {
		t.Errorf("shots = %d, want 4", result.Experiments[0].Shots)
	}
}

func TestJob_Result_NotDone(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	job, err := backend.Run(context.Background(), rabiCircuit(), 100)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// First poll sees INITIALIZING.
	if _, err := job.Result(context.Background()); !errors.Is(err, ErrJobNotDone) {
		t.Errorf("expected ErrJobNotDone, got %v", err)
	}
}

func TestJob_Wait_Failed(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	job, err := backend.Run(context.Background(), rabiCircuit(), 100)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	fake.jobs[job.ID()] = []Status{StatusError}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = job.Wait(ctx, 10*time.Millisecond)
	var failed *JobFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *JobFailedError, got %v", err)
	}
	if failed.JobID != job.ID() {
		t.Errorf("failed job id = %q, want %q", failed.JobID, job.ID())
	}
}

func TestJob_Wait_ContextCancelled(t *testing.T) {
	fake := newFakeProvider(t)
	server := fake.server()
	defer server.Close()

	client := testClient(t, server.URL)
	backend, err := client.Backend(context.Background(), "multiqudit")
	if err != nil {
		t.Fatalf("Backend error: %v", err)
	}

	job, err := backend.Run(context.Background(), rabiCircuit(), 100)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Park the job in QUEUED forever.
	fake.jobs[job.ID()] = []Status{StatusQueued}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = job.Wait(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestResult_Memory(t *testing.T) {
	tests := []struct {
		name   string
		memory string
		want   [][]float64
	}{
		{
			name:   "nested arrays",
			memory: `[[3, 4], [2, 5]]`,
			want:   [][]float64{{3, 4}, {2, 5}},
		},
		{
			name:   "string-encoded shots",
			memory: `["[3, 4]", "[2, 5]"]`,
			want:   [][]float64{{3, 4}, {2, 5}},
		},
		{
			name:   "bare numbers for single wire",
			memory: `[3, 2, 4]`,
			want:   [][]float64{{3}, {2}, {4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fmt.Sprintf(`{
				"job_id": "j1", "success": true,
				"results": [{"shots": %d, "success": true, "data": {"memory": %s}}]
			}`, len(tt.want), tt.memory)

			res := &Result{raw: []byte(raw), Experiments: []ExperimentResult{{Shots: len(tt.want)}}}

			rows, err := res.Memory(0)
			if err != nil {
				t.Fatalf("Memory error: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i := range rows {
				if len(rows[i]) != len(tt.want[i]) {
					t.Fatalf("row %d: got %d entries, want %d", i, len(rows[i]), len(tt.want[i]))
				}
				for w := range rows[i] {
					if rows[i][w] != tt.want[i][w] {
						t.Errorf("row %d wire %d: got %v, want %v", i, w, rows[i][w], tt.want[i][w])
					}
				}
			}
		})
	}
}

func TestResult_Memory_OutOfRange(t *testing.T) {
	res := &Result{raw: []byte(`{"results": []}`)}
	if _, err := res.Memory(0); err == nil {
		t.Error("expected error for missing experiment")
	}
}

func TestClient_TrimsTrailingSlash(t *testing.T) {
	client, err := NewClient("http://localhost:8000/api/v2/", "alice", "tok")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if strings.HasSuffix(client.baseURL, "/") {
		t.Errorf("baseURL %q should not end with a slash", client.baseURL)
	}
}
