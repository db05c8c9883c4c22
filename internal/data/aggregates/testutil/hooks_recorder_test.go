package testutil

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestHooksRecorderKeepsPerOperationStatusOrder(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Courses.Enrollment.RecordMint", "success", time.Millisecond)
	h.ObserveOperation("Courses.Course.RecordCreation", "conflict", time.Millisecond)
	h.IncConflict("Courses.Course.RecordCreation")
	h.ObserveOperation("Courses.Enrollment.RecordMint", "retryable", time.Millisecond)
	h.IncRetry("Courses.Enrollment.RecordMint")

	if got := h.Statuses("Courses.Enrollment.RecordMint"); !reflect.DeepEqual(got, []string{"success", "retryable"}) {
		t.Fatalf("RecordMint statuses = %v", got)
	}
	if got := h.Statuses("Courses.Enrollment.RecordBurn"); got != nil {
		t.Fatalf("unexpected statuses for an op that never ran: %v", got)
	}
	if !reflect.DeepEqual(h.Conflicts, []string{"Courses.Course.RecordCreation"}) {
		t.Fatalf("conflicts = %v", h.Conflicts)
	}
	if !reflect.DeepEqual(h.Retries, []string{"Courses.Enrollment.RecordMint"}) {
		t.Fatalf("retries = %v", h.Retries)
	}
}

func TestHooksRecorderIsSafeForConcurrentWriters(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ObserveOperation("Courses.Enrollment.RecordBurn", "success", 0)
			h.IncConflict("Courses.Enrollment.RecordBurn")
		}()
	}
	wg.Wait()
	if n := len(h.Statuses("Courses.Enrollment.RecordBurn")); n != 16 {
		t.Fatalf("expected 16 observations, got %d", n)
	}
	if len(h.Conflicts) != 16 {
		t.Fatalf("expected 16 conflicts, got %d", len(h.Conflicts))
	}
}
