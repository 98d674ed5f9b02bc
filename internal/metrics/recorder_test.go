package metrics

import (
	"testing"
	"time"
)

func TestRecorderCollects(t *testing.T) {
	rec := NewRecorder(4)

	rec.Record(time.Millisecond, true)
	rec.Record(2*time.Millisecond, false)
	rec.Record(3*time.Millisecond, true)

	if rec.Len() != 3 {
		t.Errorf("expected 3 samples, got %d", rec.Len())
	}
	if rec.Failed() != 1 {
		t.Errorf("expected 1 failure, got %d", rec.Failed())
	}

	samples := rec.Finish()
	if len(samples) != 3 || samples[1] != 2*time.Millisecond {
		t.Errorf("unexpected samples: %v", samples)
	}
}

func TestRecorderRejectsReuse(t *testing.T) {
	rec := NewRecorder(0)
	rec.Finish()

	defer func() {
		if recover() == nil {
			t.Error("expected panic when recording after Finish")
		}
	}()
	rec.Record(time.Millisecond, true)
}

func TestRecorderFinishTwicePanics(t *testing.T) {
	rec := NewRecorder(1)
	rec.Finish()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on second Finish")
		}
	}()
	rec.Finish()
}

func TestRecorderNegativeCapacity(t *testing.T) {
	rec := NewRecorder(-1)
	rec.Record(time.Millisecond, true)

	if rec.Len() != 1 {
		t.Errorf("expected 1 sample, got %d", rec.Len())
	}
}
