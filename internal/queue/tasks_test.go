package queue

import (
	"testing"
	"time"
)

func TestDedupKey(t *testing.T) {
	p := CheckPayload{SubmissionID: "sub-abc"}
	if got := p.DedupKey(); got != "plag-sub-abc" {
		t.Fatalf("DedupKey = %q, want %q", got, "plag-sub-abc")
	}

	// Distinct submissions never collide, so a re-upload always gets its own
	// job while duplicate enqueues of the same submission collapse.
	other := CheckPayload{SubmissionID: "sub-def"}
	if p.DedupKey() == other.DedupKey() {
		t.Fatal("distinct submissions share a dedup key")
	}
}

func TestRetryDelay(t *testing.T) {
	fn := RetryDelay(5 * time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
	}
	for _, tt := range tests {
		if got := fn(tt.attempt, nil, nil); got != tt.want {
			t.Errorf("attempt %d: delay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryDelayDefaultsBase(t *testing.T) {
	fn := RetryDelay(0)
	if got := fn(1, nil, nil); got != 5*time.Second {
		t.Fatalf("zero base: delay = %v, want 5s", got)
	}
}
