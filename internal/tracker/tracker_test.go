package tracker

import (
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"photoflow/internal/domain"
)

func newTestTracker() *Tracker {
	return New(zerolog.New(io.Discard))
}

func TestHappyPathTransitions(t *testing.T) {
	tr := newTestTracker()
	tr.Register("img-1", "first.jpg")

	item, ok := tr.Get("img-1")
	if !ok || item.Status != domain.AnalysisPending {
		t.Fatalf("after register: %+v ok=%v", item, ok)
	}

	if err := tr.MarkAnalyzing("img-1"); err != nil {
		t.Fatalf("mark analyzing: %v", err)
	}
	result := &domain.AnalysisResult{OverallScore: 87.5, QualityTier: domain.TierGood}
	if err := tr.Complete("img-1", result); err != nil {
		t.Fatalf("complete: %v", err)
	}

	item, _ = tr.Get("img-1")
	if item.Status != domain.AnalysisCompleted {
		t.Fatalf("status = %s", item.Status)
	}
	if item.Result == nil || item.Result.OverallScore != 87.5 {
		t.Fatalf("result = %+v", item.Result)
	}
}

func TestResultPresentIffCompleted(t *testing.T) {
	tr := newTestTracker()
	tr.Register("img-1", "a.jpg")

	check := func(stage string) {
		t.Helper()
		item, _ := tr.Get("img-1")
		hasResult := item.Result != nil
		if hasResult != (item.Status == domain.AnalysisCompleted) {
			t.Fatalf("%s: status=%s result=%v violates invariant", stage, item.Status, hasResult)
		}
	}

	check("pending")
	_ = tr.MarkAnalyzing("img-1")
	check("analyzing")
	_ = tr.Complete("img-1", &domain.AnalysisResult{OverallScore: 70})
	check("completed")
	_ = tr.Reset("img-1")
	check("reset to pending")
	_ = tr.MarkAnalyzing("img-1")
	_ = tr.Fail("img-1", "boom")
	check("failed")
}

func TestInvalidTransitionsIgnored(t *testing.T) {
	tr := newTestTracker()
	tr.Register("img-1", "a.jpg")

	// completed without analyzing first
	err := tr.Complete("img-1", &domain.AnalysisResult{})
	var stateErr *domain.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want StateError", err)
	}
	item, _ := tr.Get("img-1")
	if item.Status != domain.AnalysisPending || item.Result != nil {
		t.Fatalf("item mutated by invalid transition: %+v", item)
	}

	// terminal states are not re-entered automatically
	_ = tr.MarkAnalyzing("img-1")
	_ = tr.Fail("img-1", "network down")
	if err := tr.MarkAnalyzing("img-1"); !errors.As(err, &stateErr) {
		t.Fatalf("failed -> analyzing should be rejected, got %v", err)
	}
}

func TestUnknownItem(t *testing.T) {
	tr := newTestTracker()
	if err := tr.Fail("nope", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPendingToFailedOnUploadError(t *testing.T) {
	tr := newTestTracker()
	tr.Register("img-1", "a.jpg")
	if err := tr.Fail("img-1", "upload failed: 502"); err != nil {
		t.Fatalf("pending -> failed: %v", err)
	}
	item, _ := tr.Get("img-1")
	if item.Status != domain.AnalysisFailed || item.Error != "upload failed: 502" {
		t.Fatalf("item = %+v", item)
	}
}

func TestRetryIsFreshSequence(t *testing.T) {
	tr := newTestTracker()
	tr.Register("img-1", "a.jpg")
	_ = tr.MarkAnalyzing("img-1")
	_ = tr.Fail("img-1", "remote error")

	if err := tr.Reset("img-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	item, _ := tr.Get("img-1")
	if item.Status != domain.AnalysisPending || item.Error != "" || item.Result != nil {
		t.Fatalf("after reset: %+v", item)
	}
	if err := tr.MarkAnalyzing("img-1"); err != nil {
		t.Fatalf("retry analyzing: %v", err)
	}
}

func TestSnapshotOrderAndIsolation(t *testing.T) {
	tr := newTestTracker()
	tr.Register("b", "b.jpg")
	tr.Register("a", "a.jpg")
	tr.Register("c", "c.jpg")

	snap := tr.Snapshot()
	if len(snap) != 3 || snap[0].ID != "b" || snap[1].ID != "a" || snap[2].ID != "c" {
		t.Fatalf("snapshot order = %+v", snap)
	}

	// Mutating the snapshot must not leak into the tracker.
	snap[0].Status = domain.AnalysisFailed
	item, _ := tr.Get("b")
	if item.Status != domain.AnalysisPending {
		t.Fatalf("snapshot mutation leaked: %s", item.Status)
	}
}

func TestOnChangeNotifications(t *testing.T) {
	tr := newTestTracker()
	var seen []domain.AnalysisStatus
	tr.OnChange(func(item domain.UploadedItem) {
		seen = append(seen, item.Status)
	})

	tr.Register("img-1", "a.jpg")
	_ = tr.MarkAnalyzing("img-1")
	_ = tr.Complete("img-1", &domain.AnalysisResult{})

	want := []domain.AnalysisStatus{domain.AnalysisPending, domain.AnalysisAnalyzing, domain.AnalysisCompleted}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
