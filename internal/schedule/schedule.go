// Package schedule implements the Schedule Engine: pure, stateless
// functions over UTC instants and durations (spec.md §4.1). Nothing here
// touches the network or the store; the Event Handler and Event Controller
// call into it to resolve which interval of an event is active.
package schedule

import (
	"math/rand"
	"regexp"
	"strconv"
	"time"

	apperrors "oadr2ven.io/ven/internal/pkg/errors"
)

// durationPattern implements the ISO-8601 duration grammar
// [+|-]P[nY][nMo][nD][T[nH][nMi][nS]], all fields optional. "Mo" (not "M")
// disambiguates calendar months from the time portion's minutes.
var durationPattern = regexp.MustCompile(
	`^([+-])?P(?:(\d+)Y)?(?:(\d+)Mo)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`,
)

// Duration is a parsed ISO-8601 duration. Years and months are calendar
// relative (not fixed-length); days/hours/minutes/seconds are fixed.
type Duration struct {
	Sign    int
	Years   int
	Months  int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// IsZero reports whether the duration represents no elapsed time at all.
// Per spec.md §4.1 a zero duration after the first interval is the
// "unending interval" sentinel.
func (d Duration) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// ParseDuration parses an ISO-8601 duration string. Fails with
// MalformedDuration when the string doesn't match the grammar or carries no
// field at all.
func ParseDuration(s string) (Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return Duration{}, apperrors.BadRequest("MalformedDuration", "not a valid ISO-8601 duration: "+s)
	}

	sign := 1
	if m[1] == "-" {
		sign = -1
	}

	vals := make([]int, 6)
	anyField := false
	for i, g := range m[2:8] {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return Duration{}, apperrors.BadRequest("MalformedDuration", "invalid numeric field in duration: "+s)
		}
		vals[i] = n
		anyField = true
	}
	if !anyField {
		return Duration{}, apperrors.BadRequest("MalformedDuration", "duration has no fields: "+s)
	}

	return Duration{
		Sign:    sign,
		Years:   vals[0],
		Months:  vals[1],
		Days:    vals[2],
		Hours:   vals[3],
		Minutes: vals[4],
		Seconds: vals[5],
	}, nil
}

// Apply returns t offset by this duration, honoring sign and treating
// years/months as calendar-relative (time.Time.AddDate) while days, hours,
// minutes, and seconds are fixed-length.
func (d Duration) Apply(t time.Time) time.Time {
	sign := d.Sign
	if sign == 0 {
		sign = 1
	}

	t = t.AddDate(sign*d.Years, sign*d.Months, 0)

	fixed := time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second
	if sign < 0 {
		fixed = -fixed
	}
	return t.Add(fixed)
}

// DurationsToDates returns the sequence [t0, t1, ..., tn] where t0 = start
// and t_{k+1} = t_k offset by durs[k] (spec.md §4.1).
func DurationsToDates(start time.Time, durs []string) ([]time.Time, error) {
	out := make([]time.Time, len(durs)+1)
	out[0] = start
	cur := start
	for i, s := range durs {
		d, err := ParseDuration(s)
		if err != nil {
			return nil, err
		}
		cur = d.Apply(cur)
		out[i+1] = cur
	}
	return out, nil
}

// ChooseInterval returns the index of the interval containing now, or
// reports ended=true when every interval has elapsed (spec.md §4.1).
//
// idx == -1 (with ended == false) means the event has not started yet.
// The ended/idx=-1 distinction is load-bearing: callers remove events that
// have ended and idle on events that have not started.
func ChooseInterval(start time.Time, durs []string, now time.Time) (idx int, ended bool, err error) {
	dates, err := DurationsToDates(start, durs)
	if err != nil {
		return 0, false, err
	}

	var currentEnd *time.Time
	for i, boundary := range dates {
		if boundary.After(now) {
			return i - 1, false, nil
		}
		// A repeated boundary (zero duration) after the first is the
		// "unending interval" sentinel: the prior interval covers all
		// time from here onward.
		if currentEnd != nil && boundary.Equal(*currentEnd) {
			return i - 1, false, nil
		}
		b := boundary
		currentEnd = &b
	}

	return 0, true, nil
}

// RandomOffset returns t unchanged when both tolerances are absent;
// otherwise it uniformly samples an instant in [t-startBefore, t+startAfter],
// treating an absent tolerance as zero (spec.md §4.1).
func RandomOffset(t time.Time, startBefore, startAfter *string) (time.Time, error) {
	if startBefore == nil && startAfter == nil {
		return t, nil
	}

	var raw string
	before := startBefore != nil
	if before {
		raw = *startBefore
	} else {
		raw = *startAfter
	}

	d, err := ParseDuration(raw)
	if err != nil {
		return t, err
	}
	d.Sign = 1 // magnitude only; direction decided by before/after below

	span := d.Apply(time.Time{}).Sub(time.Time{})
	if span < 0 {
		span = -span
	}

	// With both tolerances present, the window extends past t by startAfter.
	var afterSpan time.Duration
	if before && startAfter != nil {
		a, err := ParseDuration(*startAfter)
		if err != nil {
			return t, err
		}
		a.Sign = 1
		afterSpan = a.Apply(time.Time{}).Sub(time.Time{})
	}
	if span+afterSpan == 0 {
		return t, nil
	}

	offset := time.Duration(rand.Int63n(int64(span+afterSpan) + 1))
	if before {
		return t.Add(offset - span), nil
	}
	return t.Add(offset), nil
}

// ISO timestamp layouts: fractional-seconds and whole-seconds forms.
const (
	layoutFractional = "2006-01-02T15:04:05.000Z"
	layoutWhole       = "2006-01-02T15:04:05Z"
)

// StrToDatetime parses a VEN wire timestamp, accepting either the
// whole-seconds or fractional-seconds form.
func StrToDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(layoutFractional, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(layoutWhole, s)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("MalformedPayload", "invalid timestamp: "+s)
	}
	return t.UTC(), nil
}

// DttmToStr formats t in the whole-seconds wire form.
func DttmToStr(t time.Time) string {
	return t.UTC().Format(layoutWhole)
}

// DttmToStrFractional formats t in the fractional-seconds wire form.
func DttmToStrFractional(t time.Time) string {
	return t.UTC().Format(layoutFractional)
}
