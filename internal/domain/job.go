package domain

import (
	"encoding/json"
	"time"
)

// JobType enumerates supported asynchronous job categories.
type JobType string

const (
	JobTypeContentGeneration JobType = "content_generation"
	JobTypeMediaGeneration   JobType = "media_generation"
	JobTypeTTSGeneration     JobType = "tts_generation"
	JobTypeBatchOperation    JobType = "batch_operation"
)

// ValidJobType reports whether t is one of the known job types.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeContentGeneration, JobTypeMediaGeneration, JobTypeTTSGeneration, JobTypeBatchOperation:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ValidJobStatus reports whether s is one of the known job statuses.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// jobTransitions is the single source of truth for legal status moves.
// failed -> queued is only reachable through an explicit retry; completed is
// terminal.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed},
	JobStatusFailed:     {JobStatusQueued},
	JobStatusCompleted:  nil,
}

// CanTransition reports whether a job may move from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions except an explicit
// retry.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a persisted unit of asynchronous work. ContentID is nil for
// content-generation jobs until the worker creates the content on completion.
// DispatchMessageID is the opaque handle returned by the task dispatcher.
type Job struct {
	ID                string
	ContentID         *string
	Type              JobType
	Status            JobStatus
	DispatchMessageID *string
	InputData         json.RawMessage
	ResultData        json.RawMessage
	ErrorMessage      *string
	Progress          int
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}
