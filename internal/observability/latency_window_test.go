package observability

import (
	"testing"
	"time"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8, nil)
	for _, ms := range []float64{500, 700, 900, 3000} {
		w.record("dispatch", ms)
	}
	w.recordOutcome("LIST_MEETINGS", true)
	w.recordOutcome("LIST_MEETINGS", true)
	w.recordOutcome("LIST_MEETINGS", false)
	w.recordOutcome("DELETE_MEETING", false)
	w.recordLowConfidence()

	snap := w.snapshot(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 || s.LastMS != 3000 || s.MaxMS != 3000 {
		t.Fatalf("Stages[0] = %+v", s)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P90MS != 3000 {
		t.Fatalf("P90MS = %.2f, want 3000", s.P90MS)
	}
	if s.BudgetMS != 2500 || !s.OverBudget {
		t.Fatalf("budget = %.0f over = %v, want 2500 true", s.BudgetMS, s.OverBudget)
	}
	if s.MeanMS != 1275 {
		t.Fatalf("MeanMS = %.2f, want 1275", s.MeanMS)
	}

	if len(snap.Dispatch) != 2 {
		t.Fatalf("len(Dispatch) = %d, want 2", len(snap.Dispatch))
	}
	if got := snap.Dispatch[0]; got.Intent != "DELETE_MEETING" || got.Failed != 1 || got.SuccessRate != 0 {
		t.Fatalf("Dispatch[0] = %+v", got)
	}
	if got := snap.Dispatch[1]; got.Success != 2 || got.Failed != 1 || got.SuccessRate != 0.67 {
		t.Fatalf("Dispatch[1] = %+v", got)
	}
	if snap.LowConfidence != 1 {
		t.Fatalf("LowConfidence = %d, want 1", snap.LowConfidence)
	}
}

func TestLatencyWindowRingOverwritesOldest(t *testing.T) {
	w := newLatencyWindow(2, map[string]float64{"classify": 100})
	for _, ms := range []float64{10, 20, 30} {
		w.record("classify", ms)
	}
	w.record("", 5)
	w.record("extract", -1)

	snap := w.snapshot(time.Now())
	if len(snap.Stages) != 1 || snap.Stages[0].Samples != 2 {
		t.Fatalf("Stages = %+v, want one stage with 2 samples", snap.Stages)
	}
	if snap.Stages[0].MeanMS != 25 || snap.Stages[0].OverBudget {
		t.Fatalf("Stages[0] = %+v, want mean 25 within budget", snap.Stages[0])
	}

	w.reset()
	if got := w.snapshot(time.Now()); len(got.Stages) != 0 || len(got.Dispatch) != 0 {
		t.Fatalf("snapshot after reset = %+v", got)
	}
}

func TestNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		pct  float64
		want float64
	}{
		{50, 5},
		{90, 9},
		{99, 10},
		{100, 10},
		{1, 1},
	}
	for _, tt := range tests {
		if got := nearestRank(sorted, tt.pct); got != tt.want {
			t.Fatalf("nearestRank(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
	if got := nearestRank(nil, 50); got != 0 {
		t.Fatalf("nearestRank(nil) = %v, want 0", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveMessage("HELP")
	m.ObserveLowConfidence()
	m.ObserveSessionEvent("created", 1)
	m.ObserveWSMessage("in", "chat")
	m.ObserveDispatch("LIST_USERS", "success", time.Millisecond)
	m.ObserveTurnStage("turn_total", time.Millisecond)
	m.ResetLatency()
	if snap := m.LatencySnapshot(); len(snap.Stages) != 0 {
		t.Fatalf("nil metrics snapshot = %+v", snap)
	}
}

func TestMetricsRecordsLatency(t *testing.T) {
	m := NewMetrics("test_observability_" + time.Now().Format("150405"))
	m.ObserveTurnStage("turn_total", 1500*time.Microsecond)
	m.ObserveDispatch("SCHEDULE_MEETING", "success", 40*time.Millisecond)

	snap := m.LatencySnapshot()
	if len(snap.Stages) != 1 || snap.Stages[0].LastMS != 1.5 {
		t.Fatalf("Stages = %+v, want turn_total 1.5ms", snap.Stages)
	}
	if len(snap.Dispatch) != 1 || snap.Dispatch[0].Intent != "SCHEDULE_MEETING" || snap.Dispatch[0].Success != 1 {
		t.Fatalf("Dispatch = %+v", snap.Dispatch)
	}
}
