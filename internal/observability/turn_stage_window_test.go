package observability

import "testing"

func TestTurnStageWindowSnapshot(t *testing.T) {
	w := newTurnStageWindow(8)
	for _, ms := range []float64{100, 200, 300, 400} {
		w.Observe(StageTranscribe, ms)
	}
	w.Observe(StageGenerate, 50)

	snap := w.Snapshot()
	if len(snap.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(snap.Stages))
	}
	// Sorted by name, so generate first.
	if snap.Stages[0].Stage != StageGenerate || snap.Stages[0].Samples != 1 {
		t.Fatalf("unexpected first stage: %+v", snap.Stages[0])
	}
	tr := snap.Stages[1]
	if tr.Stage != StageTranscribe {
		t.Fatalf("unexpected second stage: %+v", tr)
	}
	if tr.Samples != 4 || tr.LastMS != 400 || tr.AvgMS != 250 || tr.P50MS != 250 {
		t.Fatalf("unexpected stats: %+v", tr)
	}
	if tr.TargetP95MS != 1200 {
		t.Fatalf("target = %v", tr.TargetP95MS)
	}
}

func TestTurnStageWindowWrapsRing(t *testing.T) {
	w := newTurnStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StageTurnTotal, float64(i*100))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %d", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("samples = %d, want window size 4", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("last = %v", s.LastMS)
	}
	// Last four observations were 600..900.
	if s.AvgMS != 750 {
		t.Fatalf("avg = %v", s.AvgMS)
	}
}

func TestTurnStageWindowIgnoresInvalid(t *testing.T) {
	w := newTurnStageWindow(4)
	w.Observe("", 100)
	w.Observe(StageGenerate, -1)
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("stages = %d, want 0", got)
	}
}
