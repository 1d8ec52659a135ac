package domain

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		ok       bool
	}{
		{JobStatusQueued, JobStatusProcessing, true},
		{JobStatusQueued, JobStatusFailed, true},
		{JobStatusQueued, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusQueued, false},
		{JobStatusFailed, JobStatusQueued, true},
		{JobStatusFailed, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusCompleted, false},
		{JobStatusCompleted, JobStatusQueued, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusCompleted, JobStatusFailed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusQueued.Terminal() || JobStatusProcessing.Terminal() {
		t.Error("queued/processing must not be terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Error("completed/failed must be terminal")
	}
}

func TestValidJobType(t *testing.T) {
	for _, typ := range []JobType{JobTypeContentGeneration, JobTypeMediaGeneration, JobTypeTTSGeneration, JobTypeBatchOperation} {
		if !ValidJobType(typ) {
			t.Errorf("%s should be valid", typ)
		}
	}
	if ValidJobType("video_remux") {
		t.Error("unknown type accepted")
	}
}
