package delivery

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// JobState is the async job protocol's state machine: NEW is the instant
// the carrier accepts a submission, IN_PROGRESS while it processes,
// READY/ERROR are terminal.
type JobState string

const (
	JobStateNew        JobState = "NEW"
	JobStateInProgress JobState = "IN_PROGRESS"
	JobStateReady      JobState = "READY"
	JobStateError      JobState = "ERROR"
)

func (s JobState) Terminal() bool {
	return s == JobStateReady || s == JobStateError
}

// JobSubmitter submits a bulk request (e.g. a list of tracking numbers) and
// returns the carrier's job identifier.
type JobSubmitter func(ctx context.Context) (jobID string, err error)

// JobPoller fetches the current state of a previously submitted job, plus
// the raw report body once the state is READY.
type JobPoller func(ctx context.Context, jobID string) (state JobState, report []byte, err error)

// PollConfig controls the submit-then-poll loop's pacing.
type PollConfig struct {
	Interval time.Duration
	Deadline time.Duration
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Second
	}
	if c.Deadline <= 0 {
		c.Deadline = 2 * time.Minute
	}
	return c
}

// RunAsyncJob implements the submit -> poll(NEW -> IN_PROGRESS -> READY|ERROR)
// protocol generically: adapters supply the carrier-specific submit and
// poll calls, this function owns the sleep loop and the deadline.
func RunAsyncJob(ctx context.Context, submit JobSubmitter, poll JobPoller, cfg PollConfig) ([]byte, error) {
	cfg = cfg.withDefaults()

	jobID, err := submit(ctx)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(cfg.Deadline)
	for {
		state, report, err := poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch state {
		case JobStateReady:
			return report, nil
		case JobStateError:
			return nil, &CarrierError{Category: CategoryPermanent, Message: fmt.Sprintf("async job %s finished in ERROR state", jobID)}
		case JobStateNew, JobStateInProgress:
			// fall through to the wait below
		default:
			return nil, &CarrierError{Category: CategoryTransient, Message: fmt.Sprintf("async job %s: unrecognized state %q", jobID, state)}
		}

		if time.Now().After(deadline) {
			return nil, &CarrierError{Category: CategoryTransient, Message: fmt.Sprintf("async job %s did not complete before deadline", jobID)}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}

// DecodeCSVReport parses a bulk-tracking report into one []string record
// per row, stripping a header row when headerNames is non-empty and the
// first row matches it case-insensitively.
func DecodeCSVReport(report []byte, headerNames []string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(string(report)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("delivery: decoding CSV report: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if len(headerNames) > 0 && rowMatchesHeader(rows[0], headerNames) {
		return rows[1:], nil
	}
	return rows, nil
}

func rowMatchesHeader(row, headerNames []string) bool {
	if len(row) != len(headerNames) {
		return false
	}
	for i, h := range headerNames {
		if !strings.EqualFold(strings.TrimSpace(row[i]), h) {
			return false
		}
	}
	return true
}
