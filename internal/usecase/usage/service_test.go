package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

// --- Mock ---

type mockQuotaReader struct {
	provider         string
	dailyLimit       int64
	monthlyLimit     int64
	dailyUsed        int64
	monthlyUsed      int64
	remainingDaily   int64
	remainingMonthly int64
}

func (m *mockQuotaReader) Provider() string        { return m.provider }
func (m *mockQuotaReader) DailyLimit() int64       { return m.dailyLimit }
func (m *mockQuotaReader) MonthlyLimit() int64     { return m.monthlyLimit }
func (m *mockQuotaReader) DailyUsed() int64        { return m.dailyUsed }
func (m *mockQuotaReader) MonthlyUsed() int64      { return m.monthlyUsed }
func (m *mockQuotaReader) RemainingDaily() int64   { return m.remainingDaily }
func (m *mockQuotaReader) RemainingMonthly() int64 { return m.remainingMonthly }

// --- Tests ---

func TestGetReports_DailyPeriod(t *testing.T) {
	q := &mockQuotaReader{
		provider:         "yelp",
		dailyLimit:       5000,
		dailyUsed:        1200,
		remainingDaily:   3800,
		monthlyLimit:     100000,
		monthlyUsed:      50000,
		remainingMonthly: 50000,
	}
	reports := New(q).GetReports(context.Background(), PeriodDay)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !r.PeriodStart.Equal(dayStart) {
		t.Errorf("expected period start %v, got %v", dayStart, r.PeriodStart)
	}
	if !r.PeriodEnd.Equal(dayStart.Add(24 * time.Hour)) {
		t.Errorf("unexpected period end %v", r.PeriodEnd)
	}
	if r.Provider != "yelp" || r.Limit != 5000 || r.Used != 1200 || r.Remaining != 3800 {
		t.Errorf("unexpected report %+v", r)
	}
	if r.Exhausted {
		t.Error("quota should not be exhausted")
	}
}

func TestGetReports_MonthlyPeriod(t *testing.T) {
	q := &mockQuotaReader{provider: "google", monthlyLimit: 100000, monthlyUsed: 80000, remainingMonthly: 20000}
	r := New(q).GetReports(context.Background(), PeriodMonth)[0]

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !r.PeriodStart.Equal(monthStart) || !r.PeriodEnd.Equal(monthStart.AddDate(0, 1, 0)) {
		t.Errorf("unexpected period bounds %v..%v", r.PeriodStart, r.PeriodEnd)
	}
	if r.Limit != 100000 || r.Used != 80000 {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestGetReports_NoQuotas(t *testing.T) {
	if got := New().GetReports(context.Background(), PeriodDay); len(got) != 0 {
		t.Errorf("expected no reports, got %d", len(got))
	}
}

func TestGetReports_Exhausted(t *testing.T) {
	q := &mockQuotaReader{provider: "yelp", dailyLimit: 5000, dailyUsed: 5000, remainingDaily: 0}
	if r := New(q).GetReports(context.Background(), PeriodDay)[0]; !r.Exhausted {
		t.Error("quota should be exhausted when remaining is 0")
	}
}

func TestGetReports_UnlimitedNeverExhausted(t *testing.T) {
	q := &mockQuotaReader{provider: "yelp", remainingDaily: -1, dailyUsed: 99}
	if r := New(q).GetReports(context.Background(), PeriodDay)[0]; r.Exhausted {
		t.Error("unlimited quota must not be exhausted")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodMonth, false},
		{"month", PeriodMonth, false},
		{"day", PeriodDay, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("ParsePeriod(%q): expected ErrInvalidRequest, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.in, got, err)
		}
	}
}
