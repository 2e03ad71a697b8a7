package freshness

import (
	"testing"
	"time"
)

var today = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func TestClassifyAgeBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want Status
	}{
		{0, StatusCurrent},
		{7, StatusCurrent},
		{8, StatusRecent},
		{30, StatusRecent},
		{31, StatusOutdated},
		{90, StatusOutdated},
		{91, StatusStale},
		{365, StatusStale},
		{366, StatusCritical},
		{2000, StatusCritical},
	}
	for _, c := range cases {
		if got := ClassifyAge(c.days); got != c.want {
			t.Errorf("ClassifyAge(%d) = %s, want %s", c.days, got, c.want)
		}
	}
}

func TestClassifyAgeMonotonic(t *testing.T) {
	prev := ClassifyAge(0)
	for d := 1; d <= 400; d++ {
		cur := ClassifyAge(d)
		if cur < prev {
			t.Fatalf("tier went backwards at %d days: %s after %s", d, cur, prev)
		}
		if cur > StatusCritical {
			t.Fatalf("ClassifyAge(%d) produced non-age tier %s", d, cur)
		}
		prev = cur
	}
}

func TestClassifyDates(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Status
		wantAge int
	}{
		{"same day", "2024-06-15", StatusCurrent, 0},
		{"five days old", "2024-06-10", StatusCurrent, 5},
		{"datetime space separator", "2024-05-20 08:00:00", StatusRecent, 26},
		{"datetime T separator", "2024-05-20T08:00:00", StatusRecent, 26},
		{"two hundred days old", "2023-11-28", StatusStale, 200},
		{"well over a year", "2022-01-01", StatusCritical, 896},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Classify(c.raw, today)
			if got.Status != c.want {
				t.Errorf("status = %s, want %s", got.Status, c.want)
			}
			if got.AgeDays != c.wantAge {
				t.Errorf("age = %d, want %d", got.AgeDays, c.wantAge)
			}
		})
	}
}

func TestClassifyFutureDateClampsToZero(t *testing.T) {
	tomorrow := today.AddDate(0, 0, 1).Format("2006-01-02")
	got := Classify(tomorrow, today)
	if got.Status != StatusCurrent {
		t.Errorf("future date status = %s, want Current", got.Status)
	}
	if got.AgeDays != 0 {
		t.Errorf("future date age = %d, want 0", got.AgeDays)
	}
	if got.Age != "0d" {
		t.Errorf("future date age label = %q, want 0d", got.Age)
	}
}

func TestClassifyAbsentVsMalformed(t *testing.T) {
	for _, raw := range []string{"", "null", "None", "  "} {
		got := Classify(raw, today)
		if got.Status != StatusNoData {
			t.Errorf("Classify(%q) = %s, want NoData", raw, got.Status)
		}
		if got.Err != nil {
			t.Errorf("Classify(%q) carried error %v for absent value", raw, got.Err)
		}
	}

	got := Classify("not-a-date", today)
	if got.Status != StatusError {
		t.Errorf("malformed value status = %s, want Error", got.Status)
	}
	if got.Err == nil {
		t.Error("malformed value should carry the parse error")
	}
}

func TestClassifyBareYear(t *testing.T) {
	got := Classify("2023", today)
	wantAge := int(today.Sub(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	if got.AgeDays != wantAge {
		t.Errorf("year age = %d, want %d (elapsed from Jan 1)", got.AgeDays, wantAge)
	}
	if got.Status != StatusCritical {
		t.Errorf("year status = %s, want CRITICAL", got.Status)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	a := Classify("2024-03-01 12:00:00", today)
	b := Classify("2024-03-01 12:00:00", today)
	if a != b {
		t.Errorf("classification is not deterministic: %+v vs %+v", a, b)
	}
}
