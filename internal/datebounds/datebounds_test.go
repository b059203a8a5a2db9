package datebounds

import (
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeInput struct {
	attrs  map[string]string
	writes int
}

func newFakeInput(attrs map[string]string) *fakeInput {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &fakeInput{attrs: attrs}
}

func (f *fakeInput) Attr(name string) (string, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

func (f *fakeInput) SetAttr(name, value string) {
	f.attrs[name] = value
	f.writes++
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func TestApplySetsMinAndMax(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(now)))
	el := newFakeInput(nil)

	c.Apply(el)

	if el.attrs["min"] != "2024-03-01" {
		t.Errorf("expected min 2024-03-01, got %q", el.attrs["min"])
	}
	if el.attrs["max"] != "2025-03-01" {
		t.Errorf("expected max 2025-03-01, got %q", el.attrs["max"])
	}
	if el.writes != 2 {
		t.Errorf("expected exactly 2 attribute writes, got %d", el.writes)
	}
}

func TestApplyUsesElapsedDurationNotCalendarYear(t *testing.T) {
	tests := []struct {
		now     time.Time
		wantMin string
		wantMax string
	}{
		// 2024 is a leap year, so 365 days from Jan 1 stops one day short.
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01", "2024-12-31"},
		{time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), "2024-02-29", "2025-02-28"},
		{time.Date(2023, 6, 15, 23, 59, 0, 0, time.UTC), "2023-06-15", "2024-06-14"},
		{time.Date(2025, 12, 31, 8, 0, 0, 0, time.UTC), "2025-12-31", "2026-12-31"},
	}

	for _, tt := range tests {
		el := newFakeInput(nil)
		New(WithClock(fixedClock(tt.now))).Apply(el)
		if el.attrs["min"] != tt.wantMin || el.attrs["max"] != tt.wantMax {
			t.Errorf("at %s: expected %s..%s, got %s..%s",
				tt.now.Format(time.RFC3339), tt.wantMin, tt.wantMax, el.attrs["min"], el.attrs["max"])
		}
	}
}

func TestApplyOverwritesPreviousBounds(t *testing.T) {
	now := time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)
	el := newFakeInput(map[string]string{"min": "1999-01-01", "max": "2099-01-01", "id": "departure_date"})

	New(WithClock(fixedClock(now))).Apply(el)

	if el.attrs["min"] != "2026-02-06" || el.attrs["max"] != "2027-02-06" {
		t.Errorf("expected bounds overwritten, got %s..%s", el.attrs["min"], el.attrs["max"])
	}
	if el.attrs["id"] != "departure_date" {
		t.Error("expected unrelated attributes untouched")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	c := New(WithClock(fixedClock(time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC))))
	el := newFakeInput(nil)

	c.Apply(el)
	first := Bounds{Min: el.attrs["min"], Max: el.attrs["max"]}
	c.Apply(el)
	second := Bounds{Min: el.attrs["min"], Max: el.attrs["max"]}

	if first != second {
		t.Errorf("expected identical bounds, got %+v then %+v", first, second)
	}
}

func TestApplyFormat(t *testing.T) {
	el := newFakeInput(nil)
	New().Apply(el)

	for _, name := range []string{"min", "max"} {
		if !isoDate.MatchString(el.attrs[name]) {
			t.Errorf("expected %s to match YYYY-MM-DD, got %q", name, el.attrs[name])
		}
	}

	lo, err := time.Parse(DateLayout, el.attrs["min"])
	if err != nil {
		t.Fatalf("parsing min: %v", err)
	}
	hi, err := time.Parse(DateLayout, el.attrs["max"])
	if err != nil {
		t.Fatalf("parsing max: %v", err)
	}
	if days := hi.Sub(lo).Hours() / 24; days != 365 {
		t.Errorf("expected 365 days between bounds, got %v", days)
	}
}

func TestApplyMissingElementWarns(t *testing.T) {
	logger, logs := observed()
	c := New(WithLogger(logger))

	c.Apply(nil)

	var typedNil *fakeInput
	c.Apply(typedNil)

	if logs.Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", logs.Len())
	}
	for _, entry := range logs.All() {
		if entry.Level != zapcore.WarnLevel {
			t.Errorf("expected warn level, got %s", entry.Level)
		}
	}
}

type emptyInput struct{ fakeInput }

func (e *emptyInput) Empty() bool { return true }

func TestApplyEmptyElementWarns(t *testing.T) {
	logger, logs := observed()
	el := &emptyInput{fakeInput{attrs: map[string]string{}}}

	New(WithLogger(logger)).Apply(el)

	if el.writes != 0 {
		t.Errorf("expected no attribute writes, got %d", el.writes)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Errorf("expected 1 warning, got %d", logs.Len())
	}
}

func TestApplyPresentElementDoesNotLog(t *testing.T) {
	logger, logs := observed()
	New(WithLogger(logger)).Apply(newFakeInput(nil))

	if logs.Len() != 0 {
		t.Errorf("expected no log entries, got %d", logs.Len())
	}
}

func TestApplyDateTimeLocal(t *testing.T) {
	now := time.Date(2026, 2, 6, 9, 41, 27, 0, time.UTC)
	el := newFakeInput(map[string]string{"type": "datetime-local"})

	New(WithClock(fixedClock(now))).Apply(el)

	if el.attrs["min"] != "2026-02-06T09:41" {
		t.Errorf("expected min 2026-02-06T09:41, got %q", el.attrs["min"])
	}
	if el.attrs["max"] != "2027-02-06T09:41" {
		t.Errorf("expected max 2027-02-06T09:41, got %q", el.attrs["max"])
	}
}

func TestApplyLocation(t *testing.T) {
	// 23:30 UTC is already the next day at UTC+2.
	now := time.Date(2026, 2, 6, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*60*60)
	el := newFakeInput(nil)

	New(WithClock(fixedClock(now)), WithLocation(loc)).Apply(el)

	if el.attrs["min"] != "2026-02-07" {
		t.Errorf("expected min 2026-02-07, got %q", el.attrs["min"])
	}
}

func TestComputeNilLocationIsUTC(t *testing.T) {
	now := time.Date(2026, 2, 6, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*60*60))
	b := Compute(now, nil, DateLayout)
	if b.Min != "2026-02-07" {
		t.Errorf("expected UTC date 2026-02-07, got %q", b.Min)
	}
}

func TestPackageApply(t *testing.T) {
	el := newFakeInput(nil)
	Apply(el)
	if !isoDate.MatchString(el.attrs["min"]) || !isoDate.MatchString(el.attrs["max"]) {
		t.Errorf("expected bounds set, got %+v", el.attrs)
	}
	Apply(nil)
}
