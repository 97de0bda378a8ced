package schedule

import (
	"testing"
	"time"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := StrToDatetime(s)
	if err != nil {
		t.Fatalf("StrToDatetime(%q) error = %v", s, err)
	}
	return tm
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Duration
	}{
		{"minutes", "PT5M", Duration{Sign: 1, Minutes: 5}},
		{"hours seconds", "PT5H20S", Duration{Sign: 1, Hours: 5, Seconds: 20}},
		{"days", "P15D", Duration{Sign: 1, Days: 15}},
		{"years months", "P1Y2Mo", Duration{Sign: 1, Years: 1, Months: 2}},
		{"negative", "-PT30S", Duration{Sign: -1, Seconds: 30}},
		{"explicit positive", "+PT1H", Duration{Sign: 1, Hours: 1}},
		{"combined", "P1Y2Mo3DT4H5M6S", Duration{Sign: 1, Years: 1, Months: 2, Days: 3, Hours: 4, Minutes: 5, Seconds: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if err != nil {
				t.Fatalf("ParseDuration(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDuration_Malformed(t *testing.T) {
	tests := []string{"", "garbage", "P"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseDuration(in); err == nil {
				t.Errorf("ParseDuration(%q) error = nil, want error", in)
			}
		})
	}
}

func TestParseDuration_CalendarMonths(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	d, err := ParseDuration("P1Mo")
	if err != nil {
		t.Fatalf("ParseDuration error = %v", err)
	}
	got := d.Apply(start)
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) // Go's AddDate normalizes Feb 31 forward
	if !got.Equal(want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
}

func TestDurationsToDates(t *testing.T) {
	start := mustParseTime(t, "2013-05-12T08:30:50Z")
	dates, err := DurationsToDates(start, []string{"PT5M", "PT30S", "PT12H"})
	if err != nil {
		t.Fatalf("DurationsToDates() error = %v", err)
	}

	want := []string{
		"2013-05-12T08:30:50Z",
		"2013-05-12T08:35:50Z",
		"2013-05-12T08:36:20Z",
		"2013-05-12T20:36:20Z",
	}
	if len(dates) != len(want) {
		t.Fatalf("len(dates) = %d, want %d", len(dates), len(want))
	}
	for i, w := range want {
		if DttmToStr(dates[i]) != w {
			t.Errorf("dates[%d] = %s, want %s", i, DttmToStr(dates[i]), w)
		}
	}
}

func TestChooseInterval(t *testing.T) {
	start := mustParseTime(t, "2013-05-12T08:30:50Z")
	durs := []string{"PT5M", "PT30S", "PT12H"}

	tests := []struct {
		name      string
		now       string
		wantIdx   int
		wantEnded bool
	}{
		{"not started", "2013-05-12T08:22:00Z", -1, false},
		{"interval 0", "2013-05-12T08:30:50Z", 0, false},
		{"interval 1", "2013-05-12T08:35:50Z", 1, false},
		{"interval 2", "2013-05-12T08:36:20Z", 2, false},
		{"ended", "2013-05-12T20:36:20Z", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := mustParseTime(t, tt.now)
			idx, ended, err := ChooseInterval(start, durs, now)
			if err != nil {
				t.Fatalf("ChooseInterval() error = %v", err)
			}
			if ended != tt.wantEnded {
				t.Fatalf("ended = %v, want %v", ended, tt.wantEnded)
			}
			if !ended && idx != tt.wantIdx {
				t.Errorf("idx = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}

func TestChooseInterval_UnendingSentinel(t *testing.T) {
	start := mustParseTime(t, "2020-01-01T00:00:00Z")
	durs := []string{"PT1H", "PT0S"}

	now := mustParseTime(t, "2020-01-05T00:00:00Z") // long after start+1h
	idx, ended, err := ChooseInterval(start, durs, now)
	if err != nil {
		t.Fatalf("ChooseInterval() error = %v", err)
	}
	if ended {
		t.Fatal("ended = true, want false (unending interval)")
	}
	if idx != 1 {
		t.Errorf("idx = %d, want 1", idx)
	}
}

func TestChooseInterval_Monotonic(t *testing.T) {
	start := mustParseTime(t, "2013-05-12T08:30:50Z")
	durs := []string{"PT5M", "PT30S", "PT12H"}

	times := []string{
		"2013-05-12T08:22:00Z",
		"2013-05-12T08:30:50Z",
		"2013-05-12T08:35:50Z",
		"2013-05-12T08:36:20Z",
		"2013-05-12T20:36:20Z",
	}

	var prevIdx = -2
	var prevEnded bool
	for _, ts := range times {
		now := mustParseTime(t, ts)
		idx, ended, err := ChooseInterval(start, durs, now)
		if err != nil {
			t.Fatalf("ChooseInterval() error = %v", err)
		}
		if prevEnded && !ended {
			t.Fatalf("interval un-ended going forward in time at %s", ts)
		}
		if !ended && !prevEnded && idx < prevIdx {
			t.Errorf("idx decreased at %s: %d < %d", ts, idx, prevIdx)
		}
		prevIdx, prevEnded = idx, ended
	}
}

func TestRandomOffset_NoTolerance(t *testing.T) {
	tm := mustParseTime(t, "2013-05-12T08:30:50Z")
	got, err := RandomOffset(tm, nil, nil)
	if err != nil {
		t.Fatalf("RandomOffset() error = %v", err)
	}
	if !got.Equal(tm) {
		t.Errorf("RandomOffset() = %v, want %v", got, tm)
	}
}

func TestRandomOffset_Before(t *testing.T) {
	tm := mustParseTime(t, "2013-05-12T08:30:50Z")
	before := "PT10M"

	for i := 0; i < 20; i++ {
		got, err := RandomOffset(tm, &before, nil)
		if err != nil {
			t.Fatalf("RandomOffset() error = %v", err)
		}
		lower := tm.Add(-10 * time.Minute)
		if got.Before(lower) || got.After(tm) {
			t.Errorf("RandomOffset() = %v, want in [%v, %v]", got, lower, tm)
		}
	}
}

func TestRandomOffset_After(t *testing.T) {
	tm := mustParseTime(t, "2013-05-12T08:30:50Z")
	after := "PT10M"

	for i := 0; i < 20; i++ {
		got, err := RandomOffset(tm, nil, &after)
		if err != nil {
			t.Fatalf("RandomOffset() error = %v", err)
		}
		upper := tm.Add(10 * time.Minute)
		if got.Before(tm) || got.After(upper) {
			t.Errorf("RandomOffset() = %v, want in [%v, %v]", got, tm, upper)
		}
	}
}

func TestStrToDatetime_RoundTrip(t *testing.T) {
	tests := []string{
		"2013-05-12T08:30:50Z",
		"2013-05-12T08:30:50.123Z",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			tm, err := StrToDatetime(s)
			if err != nil {
				t.Fatalf("StrToDatetime(%q) error = %v", s, err)
			}
			var back string
			if len(s) > len("2013-05-12T08:30:50Z") {
				back = DttmToStrFractional(tm)
			} else {
				back = DttmToStr(tm)
			}
			if back != s {
				t.Errorf("round-trip %q -> %q", s, back)
			}
		})
	}
}
