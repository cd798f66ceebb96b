package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Status is a job lifecycle state as reported by the provider.
type Status string

// Job statuses. DONE, ERROR and CANCELLED are terminal.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusQueued       Status = "QUEUED"
	StatusRunning      Status = "RUNNING"
	StatusDone         Status = "DONE"
	StatusError        Status = "ERROR"
	StatusCancelled    Status = "CANCELLED"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// JobUpdate is one status observation for a job.
type JobUpdate struct {
	JobID  string
	Status Status
	Detail string
}

// ErrJobNotDone is returned by Job.Result when the job has not reached a
// terminal state yet.
var ErrJobNotDone = errors.New("provider: job has not completed")

// JobFailedError reports a job that ended in ERROR or CANCELLED, with the
// provider's detail message.
type JobFailedError struct {
	JobID  string
	Status Status
	Detail string
}

func (e *JobFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("provider: job %s failed", e.JobID)
	}
	return fmt.Sprintf("provider: job %s failed: %s", e.JobID, e.Detail)
}

// Job is a handle on a submitted job. The id is the provider's opaque
// identifier string; jobs are never mutated locally, only observed.
type Job struct {
	id      string
	backend string
	client  *Client
}

// ID returns the provider-assigned job identifier.
func (j *Job) ID() string { return j.id }

// Status fetches the current job status from the provider.
func (j *Job) Status(ctx context.Context) (JobUpdate, error) {
	body, err := j.query(ctx, "get_job_status")
	if err != nil {
		return JobUpdate{}, err
	}

	update := JobUpdate{
		JobID:  gjson.GetBytes(body, "job_id").String(),
		Status: Status(gjson.GetBytes(body, "status").String()),
		Detail: gjson.GetBytes(body, "detail").String(),
	}
	if update.JobID == "" {
		update.JobID = j.id
	}
	if update.Status == "" {
		return JobUpdate{}, fmt.Errorf("get_job_status: no status in response: %s", truncate(body, 256))
	}
	return update, nil
}

// Result fetches the result document. It returns ErrJobNotDone if the job
// is still pending and a *JobFailedError if it ended unsuccessfully.
func (j *Job) Result(ctx context.Context) (*Result, error) {
	update, err := j.Status(ctx)
	if err != nil {
		return nil, err
	}
	switch update.Status {
	case StatusDone:
	case StatusError, StatusCancelled:
		return nil, &JobFailedError{JobID: j.id, Status: update.Status, Detail: update.Detail}
	default:
		return nil, ErrJobNotDone
	}

	body, err := j.query(ctx, "get_job_result")
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode job result: %w", err)
	}
	res.raw = body
	return &res, nil
}

// Wait polls the job status at the given interval until the job reaches a
// terminal state, then fetches and returns the result. It returns the
// context error on cancellation or deadline, so callers bound the wait
// with context.WithTimeout.
func (j *Job) Wait(ctx context.Context, pollInterval time.Duration) (*Result, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		update, err := j.Status(ctx)
		if err != nil {
			return nil, err
		}

		j.client.logger.Debug("job status",
			"backend", j.backend,
			"job_id", j.id,
			"status", string(update.Status),
		)

		if update.Status.Terminal() {
			return j.Result(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (j *Job) query(ctx context.Context, endpoint string) ([]byte, error) {
	idJSON, err := json.Marshal(map[string]string{"job_id": j.id})
	if err != nil {
		return nil, fmt.Errorf("encode job id: %w", err)
	}
	return j.client.get(ctx, j.backend, endpoint, url.Values{"json": {string(idJSON)}})
}

// Result is the provider's result document for a completed job.
type Result struct {
	BackendName    string             `json:"backend_name"`
	BackendVersion string             `json:"backend_version"`
	JobID          string             `json:"job_id"`
	Success        bool               `json:"success"`
	Status         string             `json:"status"`
	Experiments    []ExperimentResult `json:"results"`

	raw []byte
}

// ExperimentResult is the per-experiment section of a result document.
type ExperimentResult struct {
	Shots   int              `json:"shots"`
	Success bool             `json:"success"`
	Header  ExperimentHeader `json:"header"`
}

// ExperimentHeader carries experiment metadata set by the backend.
type ExperimentHeader struct {
	Name     string `json:"name"`
	NumWires int    `json:"num_wires"`
}

// Memory returns the shot memory of experiment exp as one row per shot,
// each row holding the measured occupation per wire.
//
// Backends are inconsistent about the memory encoding: some return nested
// numeric arrays, others return each shot as a string like "[3, 4]". Both
// forms are accepted.
func (r *Result) Memory(exp int) ([][]float64, error) {
	if exp < 0 || exp >= len(r.Experiments) {
		return nil, fmt.Errorf("experiment index %d out of range [0,%d)", exp, len(r.Experiments))
	}

	mem := gjson.GetBytes(r.raw, fmt.Sprintf("results.%d.data.memory", exp))
	if !mem.Exists() {
		return nil, fmt.Errorf("experiment %d has no shot memory", exp)
	}

	shots := mem.Array()
	rows := make([][]float64, 0, len(shots))
	for i, shot := range shots {
		var entries []gjson.Result
		switch {
		case shot.IsArray():
			entries = shot.Array()
		case shot.Type == gjson.String:
			parsed := gjson.Parse(shot.String())
			if !parsed.IsArray() {
				return nil, fmt.Errorf("shot %d: cannot parse memory string %q", i, shot.String())
			}
			entries = parsed.Array()
		default:
			// Single-wire backends report a bare number per shot.
			entries = []gjson.Result{shot}
		}

		row := make([]float64, len(entries))
		for w, e := range entries {
			row[w] = e.Float()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
