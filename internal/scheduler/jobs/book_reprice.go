package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/internal/scheduler"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
)

// DefaultRepriceSchedule runs every 15 minutes (with seconds)
const DefaultRepriceSchedule = "0 */15 * * * *"

// BookPricer prices a contract with every engine of its region
type BookPricer interface {
	PriceAll(ctx context.Context, c contracts.OptionContract) ([]*contracts.PricingResult, error)
}

// BookRepriceJob reprices the configured book and publishes it to a store
// ⭐ SSOT: 북 재평가 스케줄은 이 Job에서만
type BookRepriceJob struct {
	pricer   BookPricer
	book     []pricingconfig.BookEntry
	store    *BookStore
	schedule string
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewBookRepriceJob creates a new book reprice job. An empty schedule uses
// DefaultRepriceSchedule.
func NewBookRepriceJob(pricer BookPricer, book []pricingconfig.BookEntry, store *BookStore, schedule string, log *logger.Logger) *BookRepriceJob {
	if schedule == "" {
		schedule = DefaultRepriceSchedule
	}
	return &BookRepriceJob{
		pricer:   pricer,
		book:     book,
		store:    store,
		schedule: schedule,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// WithMetrics publishes the outcome counts of every run to m
func (j *BookRepriceJob) WithMetrics(m *metrics.Metrics) *BookRepriceJob {
	j.metrics = m
	return j
}

// Name returns the job name
func (j *BookRepriceJob) Name() string {
	return "book_reprice"
}

// Schedule returns the cron schedule
func (j *BookRepriceJob) Schedule() string {
	return j.schedule
}

// Run prices every contract and publishes the book even when some fail.
// Failed contracts are reported in the returned error.
func (j *BookRepriceJob) Run(ctx context.Context) (scheduler.RunSummary, error) {
	j.logger.WithField("contracts", len(j.book)).Info("Starting scheduled book reprice")

	quotes := make([]BookQuote, 0, len(j.book))
	failed := 0
	for _, entry := range j.book {
		if err := ctx.Err(); err != nil {
			return scheduler.RunSummary{Contracts: len(j.book)}, err
		}

		quote := j.price(ctx, entry)
		if quote.Error != "" {
			failed++
			j.logger.WithFields(map[string]interface{}{
				"id":    entry.ID,
				"error": quote.Error,
			}).Warn("Book contract failed to price")
		}
		quotes = append(quotes, quote)
	}

	j.store.Publish(quotes, j.now())
	j.metrics.SetBook(len(quotes)-failed, failed)

	j.logger.WithFields(map[string]interface{}{
		"priced": len(quotes) - failed,
		"failed": failed,
	}).Info("Book repriced")

	summary := scheduler.RunSummary{
		Contracts: len(quotes),
		Priced:    len(quotes) - failed,
		Failed:    failed,
	}
	if failed > 0 {
		return summary, fmt.Errorf("%d of %d book contracts failed", failed, len(quotes))
	}
	return summary, nil
}

func (j *BookRepriceJob) price(ctx context.Context, entry pricingconfig.BookEntry) BookQuote {
	now := j.now()
	quote := BookQuote{ID: entry.ID, PricedAt: now}

	c, err := entry.Contract(now)
	if err != nil {
		quote.Error = err.Error()
		return quote
	}
	quote.Contract = c.String()

	results, err := j.pricer.PriceAll(ctx, c)
	if err != nil {
		quote.Error = err.Error()
		return quote
	}
	quote.Results = results
	return quote
}
