package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

// QuotaAction defines behavior when a provider call quota is used up.
type QuotaAction string

const (
	// QuotaActionWarn logs a warning but lets the call through.
	QuotaActionWarn QuotaAction = "warn"
	// QuotaActionReject blocks the call.
	QuotaActionReject QuotaAction = "reject"
)

// QuotaStore persists call counters so restarts and replicas share them.
type QuotaStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// window is one calendar period of call counting.
type window struct {
	name   string // "daily" or "monthly"
	layout string // time layout used in the persisted key
	limit  int64  // 0 means unlimited
	used   int64
	start  time.Time
	trunc  func(time.Time) time.Time
}

func (w *window) roll(now time.Time) {
	if cur := w.trunc(now); cur.After(w.start) {
		w.used = 0
		w.start = cur
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// QuotaTracker counts provider calls per day and month.
// Check is in-memory only; Record writes behind to the store when one is attached.
type QuotaTracker struct {
	mu       sync.Mutex
	provider string
	action   QuotaAction
	daily    window
	monthly  window
	store    QuotaStore
	logger   *zap.Logger
}

// NewQuotaTracker creates a tracker. Zero limits are unlimited.
func NewQuotaTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action QuotaAction, logger *zap.Logger,
) *QuotaTracker {
	now := time.Now().UTC()
	q := &QuotaTracker{
		provider: provider,
		action:   action,
		daily:    window{name: "daily", layout: "2006-01-02", limit: dailyLimit, trunc: truncateToDay},
		monthly:  window{name: "monthly", layout: "2006-01", limit: monthlyLimit, trunc: truncateToMonth},
		logger:   logger,
	}
	q.daily.start = truncateToDay(now)
	q.monthly.start = truncateToMonth(now)
	return q
}

// WithStore attaches a persistence store and loads the current counters.
func (q *QuotaTracker) WithStore(ctx context.Context, store QuotaStore) *QuotaTracker {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.store = store
	now := time.Now().UTC()
	for _, w := range []*window{&q.daily, &q.monthly} {
		val, err := store.Get(ctx, q.key(w, now))
		if err != nil {
			q.logger.Warn("Failed to load enrichment quota", zap.String("window", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}

	q.logger.Info("Enrichment quota loaded",
		zap.String("provider", q.provider),
		zap.Int64("daily_used", q.daily.used),
		zap.Int64("monthly_used", q.monthly.used),
	)
	return q
}

// Check reports whether another provider call is allowed.
func (q *QuotaTracker) Check(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollAll()
	if !q.daily.exceeded() && !q.monthly.exceeded() {
		return nil
	}
	if q.action == QuotaActionReject {
		return fmt.Errorf("%s: %w", q.provider, domain.ErrEnrichmentQuotaExceeded)
	}

	q.logger.Warn("Enrichment quota exceeded",
		zap.String("provider", q.provider),
		zap.Int64("daily_used", q.daily.used),
		zap.Int64("daily_limit", q.daily.limit),
		zap.Int64("monthly_used", q.monthly.used),
		zap.Int64("monthly_limit", q.monthly.limit),
	)
	return nil
}

// Record counts calls made to the provider.
func (q *QuotaTracker) Record(calls int64) {
	q.mu.Lock()
	q.rollAll()
	q.daily.used += calls
	q.monthly.used += calls
	store := q.store
	now := time.Now().UTC()
	keys := []string{q.key(&q.daily, now), q.key(&q.monthly, now)}
	q.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a cancelled search still persists its calls.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, calls); err != nil {
			q.logger.Warn("Failed to persist enrichment quota", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns calls left today (-1 if unlimited).
func (q *QuotaTracker) RemainingDaily() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollAll()
	return q.daily.remaining()
}

// RemainingMonthly returns calls left this month (-1 if unlimited).
func (q *QuotaTracker) RemainingMonthly() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollAll()
	return q.monthly.remaining()
}

// Provider returns the provider the tracker counts calls for.
func (q *QuotaTracker) Provider() string { return q.provider }

// DailyLimit returns the daily call limit (0 if unlimited).
func (q *QuotaTracker) DailyLimit() int64 { return q.daily.limit }

// MonthlyLimit returns the monthly call limit (0 if unlimited).
func (q *QuotaTracker) MonthlyLimit() int64 { return q.monthly.limit }

// DailyUsed returns calls made today.
func (q *QuotaTracker) DailyUsed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollAll()
	return q.daily.used
}

// MonthlyUsed returns calls made this month.
func (q *QuotaTracker) MonthlyUsed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollAll()
	return q.monthly.used
}

func (q *QuotaTracker) rollAll() {
	now := time.Now().UTC()
	q.daily.roll(now)
	q.monthly.roll(now)
}

func (q *QuotaTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%squota:%s:%s:%s", domain.KeyPrefix, q.provider, w.name, t.Format(w.layout))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
