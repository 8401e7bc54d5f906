package observability

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Default p90 budgets in milliseconds for the dialogue turn stages.
var defaultStageBudgets = map[string]float64{
	"classify":   5,
	"extract":    5,
	"dispatch":   2500,
	"turn_total": 3000,
}

type StageLatency struct {
	Stage      string  `json:"stage"`
	Samples    int     `json:"samples"`
	LastMS     float64 `json:"last_ms"`
	MeanMS     float64 `json:"mean_ms"`
	MaxMS      float64 `json:"max_ms"`
	P50MS      float64 `json:"p50_ms"`
	P90MS      float64 `json:"p90_ms"`
	P99MS      float64 `json:"p99_ms"`
	BudgetMS   float64 `json:"budget_ms,omitempty"`
	OverBudget bool    `json:"over_budget,omitempty"`
}

type IntentOutcomes struct {
	Intent      string  `json:"intent"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type LatencySnapshot struct {
	GeneratedAt   time.Time        `json:"generated_at"`
	WindowSize    int              `json:"window_size"`
	Stages        []StageLatency   `json:"stages"`
	Dispatch      []IntentOutcomes `json:"dispatch,omitempty"`
	LowConfidence int              `json:"low_confidence"`
}

// latencyWindow keeps the most recent samples per stage in a ring.
type latencyWindow struct {
	mu            sync.Mutex
	size          int
	budgets       map[string]float64
	rings         map[string]*ring
	outcomes      map[string]*IntentOutcomes
	lowConfidence int
}

type ring struct {
	samples []float64
	head    int
	count   int
	last    float64
}

func (r *ring) push(v float64) {
	r.samples[r.head] = v
	r.head = (r.head + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
	r.last = v
}

func newLatencyWindow(size int, budgets map[string]float64) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	if budgets == nil {
		budgets = defaultStageBudgets
	}
	return &latencyWindow{
		size:     size,
		budgets:  budgets,
		rings:    make(map[string]*ring),
		outcomes: make(map[string]*IntentOutcomes),
	}
}

func (w *latencyWindow) record(stage string, ms float64) {
	if stage == "" || ms < 0 || math.IsNaN(ms) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.rings[stage]
	if r == nil {
		r = &ring{samples: make([]float64, w.size)}
		w.rings[stage] = r
	}
	r.push(ms)
}

func (w *latencyWindow) recordOutcome(intentName string, ok bool) {
	if intentName == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	o := w.outcomes[intentName]
	if o == nil {
		o = &IntentOutcomes{Intent: intentName}
		w.outcomes[intentName] = o
	}
	if ok {
		o.Success++
	} else {
		o.Failed++
	}
}

func (w *latencyWindow) recordLowConfidence() {
	w.mu.Lock()
	w.lowConfidence++
	w.mu.Unlock()
}

func (w *latencyWindow) snapshot(now time.Time) LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := LatencySnapshot{
		GeneratedAt:   now.UTC(),
		WindowSize:    w.size,
		Stages:        make([]StageLatency, 0, len(w.rings)),
		LowConfidence: w.lowConfidence,
	}
	for stage, r := range w.rings {
		if r.count == 0 {
			continue
		}
		sorted := slices.Clone(r.samples[:r.count])
		slices.Sort(sorted)
		var total float64
		for _, v := range sorted {
			total += v
		}
		st := StageLatency{
			Stage:    stage,
			Samples:  r.count,
			LastMS:   roundMS(r.last),
			MeanMS:   roundMS(total / float64(r.count)),
			MaxMS:    roundMS(sorted[len(sorted)-1]),
			P50MS:    roundMS(nearestRank(sorted, 50)),
			P90MS:    roundMS(nearestRank(sorted, 90)),
			P99MS:    roundMS(nearestRank(sorted, 99)),
			BudgetMS: w.budgets[stage],
		}
		st.OverBudget = st.BudgetMS > 0 && st.P90MS > st.BudgetMS
		snap.Stages = append(snap.Stages, st)
	}
	slices.SortFunc(snap.Stages, func(a, b StageLatency) int {
		return strings.Compare(a.Stage, b.Stage)
	})

	for _, o := range w.outcomes {
		cp := *o
		if n := cp.Success + cp.Failed; n > 0 {
			cp.SuccessRate = roundMS(float64(cp.Success) / float64(n))
		}
		snap.Dispatch = append(snap.Dispatch, cp)
	}
	slices.SortFunc(snap.Dispatch, func(a, b IntentOutcomes) int {
		return strings.Compare(a.Intent, b.Intent)
	})
	return snap
}

func (w *latencyWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rings = make(map[string]*ring)
	w.outcomes = make(map[string]*IntentOutcomes)
	w.lowConfidence = 0
}

// nearestRank expects sorted input and pct in (0,100].
func nearestRank(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(pct/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func roundMS(v float64) float64 {
	return math.Round(v*100) / 100
}
