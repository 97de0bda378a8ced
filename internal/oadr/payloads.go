package oadr

import "encoding/xml"

// DistributeEvent is the inbound oadrDistributeEvent document (spec.md §6).
type DistributeEvent struct {
	XMLName   xml.Name    `xml:"oadrDistributeEvent"`
	RequestID string      `xml:"requestID"`
	VtnID     string      `xml:"vtnID"`
	Events    []OadrEvent `xml:"oadrEvent"`
}

// OadrEvent wraps one eiEvent plus its response-required hint.
type OadrEvent struct {
	ResponseRequired string  `xml:"oadrResponseRequired"`
	EiEvent          EiEvent `xml:"eiEvent"`
}

// EiEvent is the inner event carried by an OadrEvent. It is also the unit
// of storage: the Event Store persists one marshaled EiEvent per
// (vtn_id, event_id), so this struct's XMLName lets it round-trip
// standalone as well as nested inside a DistributeEvent.
type EiEvent struct {
	XMLName         xml.Name        `xml:"eiEvent"`
	EventDescriptor EventDescriptor `xml:"eventDescriptor"`
	EiActivePeriod  EiActivePeriod  `xml:"eiActivePeriod"`
	EiEventSignals  EiEventSignals  `xml:"eiEventSignals"`
	EiTarget        EiTarget        `xml:"eiTarget"`
}

// EventDescriptor carries the event's identity, status, and market context.
type EventDescriptor struct {
	EventID             string            `xml:"eventID"`
	ModificationNumber  int               `xml:"modificationNumber"`
	EventStatus         string            `xml:"eventStatus"`
	EiMarketContext     EiMarketContext   `xml:"eiMarketContext"`
}

// EiMarketContext wraps the opaque market context string.
type EiMarketContext struct {
	MarketContext string `xml:"marketContext"`
}

// EiActivePeriod carries the event's start time and start tolerance.
type EiActivePeriod struct {
	Properties ActivePeriodProperties `xml:"properties"`
}

// ActivePeriodProperties is the xcal:properties element.
type ActivePeriodProperties struct {
	DtStart   DtStart    `xml:"dtstart"`
	Tolerance *Tolerance `xml:"tolerance"`
}

// DtStart wraps the active-period start instant in wire form.
type DtStart struct {
	DateTime string `xml:"date-time"`
}

// Tolerance carries the optional start-before/start-after offsets.
type Tolerance struct {
	Tolerate ToleranceValues `xml:"tolerate"`
}

// ToleranceValues holds the raw ISO-8601 duration strings for the
// randomized start-offset window. Empty string means absent.
type ToleranceValues struct {
	StartBefore string `xml:"startbefore"`
	StartAfter  string `xml:"startafter"`
}

// EiEventSignals wraps the event's signal list.
type EiEventSignals struct {
	Signal []EiEventSignal `xml:"eiEventSignal"`
}

// EiEventSignal is one named signal with its ordered intervals. Only
// signals named "simple" with a recognized type drive control output
// (spec.md §3).
type EiEventSignal struct {
	SignalName string        `xml:"signalName"`
	SignalType string        `xml:"signalType"`
	Intervals  IntervalsWrap `xml:"intervals"`
}

// IntervalsWrap wraps the strm:intervals element.
type IntervalsWrap struct {
	Interval []IntervalXML `xml:"interval"`
}

// IntervalXML is one signal interval: duration, uid, payload value.
type IntervalXML struct {
	Duration      DurationWrap  `xml:"duration"`
	UID           UIDWrap       `xml:"uid"`
	SignalPayload SignalPayload `xml:"signalPayload"`
}

// DurationWrap wraps the xcal:duration/xcal:duration text value.
type DurationWrap struct {
	Duration string `xml:"duration"`
}

// UIDWrap wraps the xcal:uid/xcal:text text value.
type UIDWrap struct {
	Text string `xml:"text"`
}

// SignalPayload carries the interval's numeric payload value.
type SignalPayload struct {
	PayloadFloat PayloadFloat `xml:"payloadFloat"`
}

// PayloadFloat is the leaf numeric value, carried as text like the rest of
// the wire format.
type PayloadFloat struct {
	Value string `xml:"value"`
}

// EiTarget is the event's targeting lists. Each may be empty.
type EiTarget struct {
	PartyID    []string `xml:"partyID"`
	GroupID    []string `xml:"groupID"`
	ResourceID []string `xml:"resourceID"`
	VenID      []string `xml:"venID"`
}

// CreatedEvent is the outbound oadrCreatedEvent reply document. XMLName and
// Xmlns are stamped by the caller from a resolved NamespaceMap (via
// oadr.RootName/oadr.NamespaceAttrs) before marshaling; the XMLName field is
// left untagged so the stamped namespace is kept.
type CreatedEvent struct {
	XMLName        xml.Name
	Xmlns          []xml.Attr          `xml:",any,attr"`
	EiResponse     EiResponse          `xml:"eiResponse"`
	EventResponses *EventResponsesWrap `xml:"eventResponses"`
	VenID          string              `xml:"venID"`
}

// EiResponse is the top-level response code carried by every CreatedEvent.
type EiResponse struct {
	ResponseCode string `xml:"responseCode"`
	RequestID    string `xml:"requestID"`
}

// EventResponsesWrap wraps the per-event response lines.
type EventResponsesWrap struct {
	EventResponse []EventResponse `xml:"eventResponse"`
}

// EventResponse is one event's opt/status reply line.
type EventResponse struct {
	ResponseCode     string           `xml:"responseCode"`
	RequestID        string           `xml:"requestID"`
	QualifiedEventID QualifiedEventID `xml:"qualifiedEventID"`
	OptType          string           `xml:"optType"`
}

// QualifiedEventID identifies the event a response line refers to.
type QualifiedEventID struct {
	EventID             string `xml:"eventID"`
	ModificationNumber   int   `xml:"modificationNumber"`
}

// RequestEvent is the outbound oadrRequestEvent document used by pull
// transports to ask a VTN for current events. XMLName and Xmlns are
// stamped by the caller from a resolved NamespaceMap before marshaling.
type RequestEvent struct {
	XMLName    xml.Name
	Xmlns      []xml.Attr `xml:",any,attr"`
	RequestID  string     `xml:"requestID"`
	VenID      string     `xml:"venID"`
	ReplyLimit int        `xml:"replyLimit"`
}
