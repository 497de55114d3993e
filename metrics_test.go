package authstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starshipcosmos/authstore/directory"
	"github.com/starshipcosmos/authstore/session"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("expected empty snapshot when disabled")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSignOutSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricSignOutSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricSignInLatency, d)
	}
	// Only the sign-in latency histogram exists.
	m.Observe(MetricSignOutSuccess, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected only the sign-in latency histogram, got %d", len(snap.Histograms))
	}
	buckets := snap.Histograms[MetricSignInLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsLatencyRequiresFlag(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricSignInLatency, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricSignInLatency]; ok {
		t.Fatal("expected no histogram without EnableLatencyHistograms")
	}
}

func TestStoreCountsOperations(t *testing.T) {
	store := buildCompanyStore(t, session.NewMemoryBackend(), demoCompanyAuth(t), func(cfg *Config) {
		cfg.Metrics.EnableLatencyHistograms = true
	})
	ctx := context.Background()

	_, _ = store.SignIn(ctx, "", "")
	_, _ = store.SignIn(ctx, techCorpEmail, "wrong")
	if _, err := store.SignIn(ctx, techCorpEmail, directory.DemoCompanySecret); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := store.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	snap := store.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricRehydrateEmpty: 1,
		MetricSignInRejected: 1,
		MetricSignInFailure:  1,
		MetricSignInSuccess:  1,
		MetricSignOutSuccess: 1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}

	var total uint64
	for _, v := range snap.Histograms[MetricSignInLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
