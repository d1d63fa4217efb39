package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/internal/scheduler"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
)

type fakePricer struct {
	calls int
}

func (p *fakePricer) PriceAll(_ context.Context, c contracts.OptionContract) ([]*contracts.PricingResult, error) {
	p.calls++
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return []*contracts.PricingResult{{Method: contracts.MethodBinomialTree, NPV: c.Spot / 10}}, nil
}

func book() []pricingconfig.BookEntry {
	return []pricingconfig.BookEntry{
		{ID: "good", Style: "eu", Right: "call", Spot: 100, Strike: 100, Years: 1, Volatility: 0.2},
		{ID: "expired", Style: "us", Right: "put", Spot: 100, Strike: 100, Maturity: "2020-01-01", Volatility: 0.2},
		{ID: "bad-style", Style: "bermudan", Right: "put", Spot: 100, Strike: 100, Years: 1, Volatility: 0.2},
	}
}

func TestBookRepriceJob(t *testing.T) {
	pricer := &fakePricer{}
	store := NewBookStore()
	job := NewBookRepriceJob(pricer, book(), store, "", nil)
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return at }

	assert.Equal(t, "book_reprice", job.Name())
	assert.Equal(t, DefaultRepriceSchedule, job.Schedule())

	summary, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Equal(t, scheduler.RunSummary{Contracts: 3, Priced: 1, Failed: 2}, summary)

	// 실패해도 북은 게시됨, 순서 유지
	snap := store.Snapshot()
	assert.Equal(t, at, snap.UpdatedAt)
	require.Len(t, snap.Quotes, 3)

	assert.Equal(t, "good", snap.Quotes[0].ID)
	assert.Empty(t, snap.Quotes[0].Error)
	require.Len(t, snap.Quotes[0].Results, 1)
	assert.InDelta(t, 10.0, snap.Quotes[0].Results[0].NPV, 0)

	assert.Contains(t, snap.Quotes[1].Error, "expired")
	assert.NotEmpty(t, snap.Quotes[2].Error)

	// bad style never reaches the pricer
	assert.Equal(t, 2, pricer.calls)
}

func TestBookRepriceJobMetrics(t *testing.T) {
	m := metrics.New()
	job := NewBookRepriceJob(&fakePricer{}, book(), NewBookStore(), "", nil).WithMetrics(m)

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookContracts.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BookContracts.WithLabelValues(metrics.OutcomeError)))
}

func TestBookRepriceJobHistory(t *testing.T) {
	s := scheduler.New(nil)
	job := NewBookRepriceJob(&fakePricer{}, book(), NewBookStore(), "", nil)
	require.NoError(t, s.AddJob(job))

	for range 2 {
		result, err := s.RunJob(context.Background(), job.Name())
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 2, result.Summary.Failed)
	}

	stats := s.GetJobStats()[job.Name()]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, scheduler.RunSummary{Contracts: 6, Priced: 2, Failed: 4}, stats.Totals)
	assert.InDelta(t, 4.0/6.0, stats.ContractFailureRate, 1e-12)
}

func TestBookRepriceJobCancelled(t *testing.T) {
	store := NewBookStore()
	job := NewBookRepriceJob(&fakePricer{}, book(), store, "@every 1m", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Priced)
	assert.Empty(t, store.Snapshot().Quotes)
	assert.Equal(t, "@every 1m", job.Schedule())
}

func TestBookStoreSnapshotIsCopy(t *testing.T) {
	store := NewBookStore()
	store.Publish([]BookQuote{{ID: "a"}}, time.Now())

	snap := store.Snapshot()
	snap.Quotes[0].ID = "changed"
	assert.Equal(t, "a", store.Snapshot().Quotes[0].ID)
}
