package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunKeepsOrder(t *testing.T) {
	p := NewPool(nil, WithWorkers(4))
	items := []int{5, 1, 4, 2, 3}
	got := Run(context.Background(), p, items, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	for i, r := range got {
		if r.Index != i || r.Value != items[i]*10 || r.Err != nil {
			t.Fatalf("result %d = %+v", i, r)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	p := NewPool(nil, WithWorkers(2))
	var inFlight, peak atomic.Int32
	Run(context.Background(), p, make([]int, 10), func(ctx context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestRunPerJobErrorsAndTimeout(t *testing.T) {
	p := NewPool(nil, WithWorkers(2), WithProcessTimeout(20*time.Millisecond))
	boom := errors.New("boom")
	got := Run(context.Background(), p, []string{"ok", "fail", "slow"}, func(ctx context.Context, s string) (string, error) {
		switch s {
		case "fail":
			return "", boom
		case "slow":
			<-ctx.Done()
			return "", ctx.Err()
		}
		return s, nil
	})
	if got[0].Err != nil || got[0].Value != "ok" {
		t.Fatalf("ok job = %+v", got[0])
	}
	if !errors.Is(got[1].Err, boom) {
		t.Fatalf("fail job = %+v", got[1])
	}
	if !errors.Is(got[2].Err, context.DeadlineExceeded) {
		t.Fatalf("slow job = %+v", got[2])
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := Run(ctx, NewPool(nil), []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		return n, ctx.Err()
	})
	for _, r := range got {
		if r.Err == nil {
			t.Fatalf("result %+v should carry the cancellation", r)
		}
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run(context.Background(), NewPool(nil), []int(nil), func(ctx context.Context, n int) (int, error) { return n, nil }); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
