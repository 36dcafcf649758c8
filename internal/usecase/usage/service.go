package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

// Period is a quota accounting window.
type Period string

// Period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("unknown period %q: %w", s, domain.ErrInvalidRequest)
	}
}

// Report is enrichment provider usage for one period.
// Limit and Remaining are 0 and -1 when the provider has no limit.
type Report struct {
	Provider    string
	Period      Period
	PeriodStart time.Time
	PeriodEnd   time.Time
	Limit       int64
	Used        int64
	Remaining   int64
	Exhausted   bool
}

// Service reports enrichment provider call usage.
type Service struct {
	quotas []QuotaReader
}

// New creates a Service. With no quotas every report list is empty.
func New(quotas ...QuotaReader) *Service {
	return &Service{quotas: quotas}
}

// GetReports builds one report per provider for the given period.
func (s *Service) GetReports(_ context.Context, period Period) []Report {
	now := time.Now().UTC()
	var start, end time.Time
	switch period {
	case PeriodDay:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
	default:
		period = PeriodMonth
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}

	out := make([]Report, 0, len(s.quotas))
	for _, q := range s.quotas {
		r := Report{Provider: q.Provider(), Period: period, PeriodStart: start, PeriodEnd: end}
		if period == PeriodDay {
			r.Limit, r.Used, r.Remaining = q.DailyLimit(), q.DailyUsed(), q.RemainingDaily()
		} else {
			r.Limit, r.Used, r.Remaining = q.MonthlyLimit(), q.MonthlyUsed(), q.RemainingMonthly()
		}
		r.Exhausted = r.Limit > 0 && r.Remaining <= 0
		out = append(out, r)
	}
	return out
}
