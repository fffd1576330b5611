package tracking

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
)

const tolerance = 1e-9

func newTestReconciler(ease Easing) (*Reconciler, *clock.Mock) {
	mock := clock.NewMock()
	r := NewReconciler(ReconcilerOptions{
		Clock:    mock,
		Duration: 2 * time.Second,
		Ease:     ease,
		Logger:   logging.Discard(),
	})
	return r, mock
}

func near(a, b domain.Coordinate) bool {
	return math.Abs(a.Lat-b.Lat) < tolerance && math.Abs(a.Lng-b.Lng) < tolerance
}

func between(v, a, b float64) bool {
	lo, hi := math.Min(a, b), math.Max(a, b)
	return v > lo && v < hi
}

func TestReconciler_NoPositionBeforeFirstUpdate(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(nil)
	if _, ok := r.CurrentPosition(); ok {
		t.Error("expected no position before the first update")
	}
}

func TestReconciler_FirstUpdateSnaps(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(nil)
	if err := r.OnLocationUpdate(-6.8, 39.28); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, ok := r.CurrentPosition()
	if !ok {
		t.Fatal("expected a position")
	}
	if !near(pos, domain.Coordinate{Lat: -6.8, Lng: 39.28}) {
		t.Errorf("expected snap to first fix, got %+v", pos)
	}
	if r.Animating() {
		t.Error("first update must not animate")
	}
}

func TestReconciler_ConvergesAtEndOfWindow(t *testing.T) {
	t.Parallel()

	for name, ease := range map[string]Easing{"linear": Linear, "ease-out": EaseOutCubic} {
		ease := ease
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, mock := newTestReconciler(ease)
			targets := []domain.Coordinate{
				{Lat: -6.80, Lng: 39.28},
				{Lat: -6.81, Lng: 39.29},
				{Lat: -6.79, Lng: 39.27},
				{Lat: -6.82, Lng: 39.30},
			}

			for _, tgt := range targets {
				if err := r.OnLocationUpdate(tgt.Lat, tgt.Lng); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				mock.Add(2 * time.Second)
				pos, _ := r.CurrentPosition()
				if !near(pos, tgt) {
					t.Errorf("expected %+v at end of window, got %+v", tgt, pos)
				}
			}
		})
	}
}

func TestReconciler_IntermediateSamplesStayBetweenEndpoints(t *testing.T) {
	t.Parallel()

	for name, ease := range map[string]Easing{"linear": Linear, "ease-out": EaseOutCubic} {
		ease := ease
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, mock := newTestReconciler(ease)
			from := domain.Coordinate{Lat: -6.80, Lng: 39.28}
			to := domain.Coordinate{Lat: -6.70, Lng: 39.38}
			_ = r.OnLocationUpdate(from.Lat, from.Lng)
			_ = r.OnLocationUpdate(to.Lat, to.Lng)

			prev := from
			for i := 0; i < 19; i++ {
				mock.Add(100 * time.Millisecond)
				pos, _ := r.CurrentPosition()
				if !between(pos.Lat, from.Lat, to.Lat) || !between(pos.Lng, from.Lng, to.Lng) {
					t.Fatalf("sample %d out of range: %+v", i, pos)
				}
				if pos.Lat < prev.Lat || pos.Lng < prev.Lng {
					t.Fatalf("sample %d moved backwards: %+v after %+v", i, pos, prev)
				}
				prev = pos
			}
		})
	}
}

func TestReconciler_RetargetIsContinuous(t *testing.T) {
	t.Parallel()

	r, mock := newTestReconciler(EaseOutCubic)
	_ = r.OnLocationUpdate(-6.80, 39.28)
	_ = r.OnLocationUpdate(-6.70, 39.38)

	mock.Add(700 * time.Millisecond)
	before, _ := r.CurrentPosition()

	if err := r.OnLocationUpdate(-6.60, 39.48); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := r.CurrentPosition()

	if !near(before, after) {
		t.Errorf("expected retarget to start at %+v, got %+v", before, after)
	}
	if near(after, domain.Coordinate{Lat: -6.70, Lng: 39.38}) {
		t.Error("retarget must not jump to the previous target")
	}

	seg, _ := r.Segment()
	if !near(seg.From, before) || !seg.Start.Equal(mock.Now()) {
		t.Errorf("expected new segment from interpolated position at now, got %+v", seg)
	}

	mock.Add(2 * time.Second)
	end, _ := r.CurrentPosition()
	if !near(end, domain.Coordinate{Lat: -6.60, Lng: 39.48}) {
		t.Errorf("expected convergence to newest target, got %+v", end)
	}
}

func TestReconciler_IdenticalTargetIsNoop(t *testing.T) {
	t.Parallel()

	r, mock := newTestReconciler(Linear)
	_ = r.OnLocationUpdate(-6.80, 39.28)
	_ = r.OnLocationUpdate(-6.70, 39.38)
	mock.Add(time.Second)

	segBefore, _ := r.Segment()
	_ = r.OnLocationUpdate(-6.70, 39.38)
	segAfter, _ := r.Segment()

	if !segAfter.Start.Equal(segBefore.Start) {
		t.Error("identical target must not restart the animation clock")
	}

	mock.Add(time.Second)
	pos, _ := r.CurrentPosition()
	if !near(pos, domain.Coordinate{Lat: -6.70, Lng: 39.38}) {
		t.Errorf("expected original window to complete, got %+v", pos)
	}
}

func TestReconciler_RejectsMalformedCoordinates(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(nil)
	_ = r.OnLocationUpdate(-6.80, 39.28)

	bad := []struct{ lat, lng float64 }{
		{math.NaN(), 39.28},
		{-6.8, math.NaN()},
		{91, 39.28},
		{-6.8, -181},
		{math.Inf(-1), 0},
	}
	for _, b := range bad {
		if err := r.OnLocationUpdate(b.lat, b.lng); !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("(%v, %v): expected ErrInvalidCoordinate, got %v", b.lat, b.lng, err)
		}
	}

	pos, ok := r.CurrentPosition()
	if !ok || !near(pos, domain.Coordinate{Lat: -6.80, Lng: 39.28}) {
		t.Errorf("expected previous valid position to be retained, got %+v ok=%v", pos, ok)
	}
}

func TestReconciler_ResetDiscardsPosition(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(nil)
	_ = r.OnLocationUpdate(-6.80, 39.28)
	r.Reset()

	if _, ok := r.CurrentPosition(); ok {
		t.Error("expected no position after reset")
	}

	_ = r.OnLocationUpdate(-6.70, 39.38)
	if r.Animating() {
		t.Error("first update after reset must snap")
	}
}

func TestSegment_AntimeridianTakesShortWay(t *testing.T) {
	t.Parallel()

	start := time.Unix(0, 0)
	seg := Segment{
		From:     domain.Coordinate{Lat: 0, Lng: 179},
		To:       domain.Coordinate{Lat: 0, Lng: -179},
		Start:    start,
		Duration: 2 * time.Second,
		Ease:     Linear,
	}

	mid := seg.At(start.Add(time.Second))
	if math.Abs(math.Abs(mid.Lng)-180) > 1e-9 {
		t.Errorf("expected midpoint on the antimeridian, got %+v", mid)
	}
}

func TestEasing_Bounds(t *testing.T) {
	t.Parallel()

	for name, ease := range map[string]Easing{"linear": Linear, "ease-out": EaseOutCubic} {
		if ease(0) != 0 || ease(1) != 1 {
			t.Errorf("%s: expected endpoints 0 and 1", name)
		}
		prev := 0.0
		for p := 0.05; p < 1; p += 0.05 {
			v := ease(p)
			if v < prev || v > 1 {
				t.Errorf("%s: not monotonic within bounds at p=%.2f: %f", name, p, v)
			}
			prev = v
		}
	}
}
