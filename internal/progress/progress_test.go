package progress

import (
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

func TestRateLimitingSuppressesRapidUpdates(t *testing.T) {
	var got []Update
	tr := NewTracker("job1", 1, 3, time.Hour, func(u Update) { got = append(got, u) })

	tr.Report(ptr(0.1), nil, "start", nil)
	tr.Report(ptr(0.2), nil, "still going", nil)
	tr.Report(ptr(0.3), nil, "still going", nil)

	if len(got) != 1 {
		t.Fatalf("expected only the first update to be accepted, got %d", len(got))
	}
}

func TestTerminalUpdateNeverDropped(t *testing.T) {
	var got []Update
	tr := NewTracker("job1", 1, 3, time.Hour, func(u Update) { got = append(got, u) })

	tr.Report(ptr(0.1), nil, "start", nil)
	tr.Report(ptr(1.0), nil, "done", nil)

	if len(got) != 2 {
		t.Fatalf("expected terminal update to bypass rate limiting, got %d updates", len(got))
	}
	if got[1].Percent == nil || *got[1].Percent != 1.0 {
		t.Fatalf("expected terminal percent=1.0, got %+v", got[1])
	}
}

func TestDeriveETAsOnlyWhenBothKnown(t *testing.T) {
	var got Update
	tr := NewTracker("job1", 2, 5, 0, func(u Update) { got = u })

	tr.Report(ptr(0.25), ptr(100), "running", nil)
	if got.JobETA == nil || *got.JobETA != 75 {
		t.Fatalf("expected job_eta=75, got %v", got.JobETA)
	}
	// remaining jobs = total(5) - index(2) = 3
	if got.GlobalETA == nil || *got.GlobalETA != 75+3*100 {
		t.Fatalf("expected global_eta=375, got %v", got.GlobalETA)
	}
}

func TestDeriveETAsOmittedWhenDurationUnknown(t *testing.T) {
	var got Update
	tr := NewTracker("job1", 1, 1, 0, func(u Update) { got = u })
	tr.Report(ptr(0.5), nil, "running", nil)
	if got.JobETA != nil || got.GlobalETA != nil {
		t.Fatalf("expected no ETA when duration estimate unknown, got %+v", got)
	}
}

func TestTerminalHelperSetsFullPercent(t *testing.T) {
	var got Update
	tr := NewTracker("job1", 1, 1, time.Hour, func(u Update) { got = u })
	tr.Terminal("finished")
	if got.Percent == nil || *got.Percent != 1.0 {
		t.Fatalf("expected Terminal to report percent=1.0, got %+v", got)
	}
}
