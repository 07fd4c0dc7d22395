// Package jobs runs employee imports in the background with bounded
// retries, a per-attempt timeout and escalating backoff.
//
// An [Executor] decides what happens after each attempt. Transports carry
// [ImportJob] payloads between the upload endpoint and the executor:
// [LocalQueue] keeps them in process, [AMQPQueue] and [AMQPWorker] move
// them through RabbitMQ.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ImportJob is the payload of one import. It is all a retry needs, so
// every attempt re-reads the file from scratch.
type ImportJob struct {
	FilePath    string `json:"file_path"`
	OwnerUserID int64  `json:"owner_user_id"`
}

// Validate reports a payload that can never succeed.
func (j ImportJob) Validate() error {
	var errs []string
	if strings.TrimSpace(j.FilePath) == "" {
		errs = append(errs, "file_path is required")
	}
	if j.OwnerUserID <= 0 {
		errs = append(errs, "owner_user_id must be positive")
	}
	if len(errs) > 0 {
		return errors.New("invalid import job: " + strings.Join(errs, "; "))
	}
	return nil
}

// Encode serializes the job for a message body.
func (j ImportJob) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeImportJob parses and validates a message body.
func DecodeImportJob(body []byte) (ImportJob, error) {
	var j ImportJob
	if err := json.Unmarshal(body, &j); err != nil {
		return ImportJob{}, fmt.Errorf("decode import job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return ImportJob{}, err
	}
	return j, nil
}

// Dispatcher queues an import for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, job ImportJob) error
}

// Handler runs one attempt of a job.
type Handler func(ctx context.Context, job ImportJob) error

// FailureHandler runs once when a job has used all of its attempts.
type FailureHandler func(ctx context.Context, job ImportJob, cause error) error
