// Package domain holds the OpenADR VEN's core types: events, signals,
// intervals, targeting, and VEN identity. These types are transport- and
// storage-agnostic; the oadr package maps them to and from XML, and the
// store package maps them to and from SQLite rows.
package domain

import "time"

// SignalType enumerates the "simple" OpenADR signal types this VEN
// recognizes. Any other signal name/type is ignored (spec.md §3).
type SignalType string

const (
	SignalLevel    SignalType = "level"
	SignalPrice    SignalType = "price"
	SignalDelta    SignalType = "delta"
	SignalSetpoint SignalType = "setpoint"
)

// SimpleSignalName is the only signal name this VEN recognizes.
const SimpleSignalName = "simple"

// Interval is one signal slot inside a Signal: a duration offset from the
// signal's previous interval boundary, an identifying uid, and the payload
// value in force during that slot.
type Interval struct {
	Duration string // raw ISO-8601 duration, parsed on demand by the schedule package
	UID      string
	Payload  float64
}

// Signal carries an ordered sequence of Intervals under one signal name/type.
type Signal struct {
	Name      string
	Type      SignalType
	Intervals []Interval
}

// Targeting is the set of identifiers an event may be scoped to. Each list
// may be empty; an event with all four empty is a broadcast event.
type Targeting struct {
	PartyIDs    []string
	GroupIDs    []string
	ResourceIDs []string
	VenIDs      []string
}

// IsSpecified reports whether any targeting list is non-empty.
func (t Targeting) IsSpecified() bool {
	return len(t.PartyIDs) > 0 || len(t.GroupIDs) > 0 || len(t.ResourceIDs) > 0 || len(t.VenIDs) > 0
}

// Matches reports whether the given identity satisfies this targeting.
// An ID list is matched when the identity's corresponding id is non-empty
// and appears in the list; any single match among the four lists accepts.
func (t Targeting) Matches(id VENIdentity) bool {
	if id.PartyID != "" && contains(t.PartyIDs, id.PartyID) {
		return true
	}
	if id.GroupID != "" && contains(t.GroupIDs, id.GroupID) {
		return true
	}
	if id.ResourceID != "" && contains(t.ResourceIDs, id.ResourceID) {
		return true
	}
	if id.VenID != "" && contains(t.VenIDs, id.VenID) {
		return true
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Event is the VEN's in-memory representation of a distributeEvent entry,
// identified by the pair (VtnID, EventID).
type Event struct {
	VtnID     string
	EventID   string
	ModNumber int
	Status    string

	MarketContext string

	ActivePeriodStart time.Time
	// StartBefore/StartAfter are the raw ISO-8601 tolerance strings (not
	// resolved durations): the Schedule Engine's RandomOffset parses them
	// directly against ActivePeriodStart. nil means absent.
	StartBefore *string
	StartAfter  *string

	Targeting Targeting
	Signals   []Signal

	// RawXML is the verbatim wire document, retained so replies and later
	// inspection are lossless (spec.md §3).
	RawXML []byte
}

// UsableSignals returns the event's signals restricted to recognized
// "simple" signals of a valid type.
func (e Event) UsableSignals() []Signal {
	var out []Signal
	for _, s := range e.Signals {
		if s.Name != SimpleSignalName {
			continue
		}
		switch s.Type {
		case SignalLevel, SignalPrice, SignalDelta, SignalSetpoint:
			out = append(out, s)
		}
	}
	return out
}

// HasUsableSignal reports whether the event carries at least one recognized
// simple signal.
func (e Event) HasUsableSignal() bool {
	return len(e.UsableSignals()) > 0
}

// IntervalDurations returns the raw duration strings of the event's first
// usable signal, in order. The Schedule Engine consumes these to compute the
// active interval.
func (e Event) IntervalDurations() []string {
	signals := e.UsableSignals()
	if len(signals) == 0 {
		return nil
	}
	durations := make([]string, len(signals[0].Intervals))
	for i, iv := range signals[0].Intervals {
		durations[i] = iv.Duration
	}
	return durations
}
