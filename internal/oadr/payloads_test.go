package oadr

import (
	"encoding/xml"
	"strings"
	"testing"
)

const sampleDistributeEvent = `<?xml version="1.0"?>
<oadr:oadrDistributeEvent xmlns:oadr="http://openadr.org/oadr-2.0a/2012/07"
    xmlns:pyld="http://docs.oasis-open.org/ns/energyinterop/201110/payloads"
    xmlns:ei="http://docs.oasis-open.org/ns/energyinterop/201110">
  <pyld:requestID>req-1</pyld:requestID>
  <ei:vtnID>vtn_1</ei:vtnID>
  <oadr:oadrEvent>
    <oadr:oadrResponseRequired>always</oadr:oadrResponseRequired>
    <ei:eiEvent>
      <ei:eventDescriptor>
        <ei:eventID>e_1</ei:eventID>
        <ei:modificationNumber>0</ei:modificationNumber>
        <ei:eventStatus>near</ei:eventStatus>
        <ei:eiMarketContext>
          <emix:marketContext xmlns:emix="http://docs.oasis-open.org/ns/emix/2011/06">http://enernoc.com</emix:marketContext>
        </ei:eiMarketContext>
      </ei:eventDescriptor>
      <ei:eiActivePeriod>
        <xcal:properties xmlns:xcal="urn:ietf:params:xml:ns:icalendar-2.0">
          <xcal:dtstart>
            <xcal:date-time>2013-05-12T08:30:50Z</xcal:date-time>
          </xcal:dtstart>
        </xcal:properties>
      </ei:eiActivePeriod>
      <ei:eiEventSignals>
        <ei:eiEventSignal>
          <ei:signalName>simple</ei:signalName>
          <ei:signalType>level</ei:signalType>
          <strm:intervals xmlns:strm="urn:ietf:params:xml:ns:icalendar-2.0:stream">
            <ei:interval>
              <xcal:duration xmlns:xcal="urn:ietf:params:xml:ns:icalendar-2.0">
                <xcal:duration>PT5M</xcal:duration>
              </xcal:duration>
              <xcal:uid xmlns:xcal="urn:ietf:params:xml:ns:icalendar-2.0">
                <xcal:text>0</xcal:text>
              </xcal:uid>
              <ei:signalPayload>
                <ei:payloadFloat>
                  <ei:value>1</ei:value>
                </ei:payloadFloat>
              </ei:signalPayload>
            </ei:interval>
          </strm:intervals>
        </ei:eiEventSignal>
      </ei:eiEventSignals>
      <ei:eiTarget></ei:eiTarget>
    </ei:eiEvent>
  </oadr:oadrEvent>
</oadr:oadrDistributeEvent>`

func TestDistributeEvent_Unmarshal(t *testing.T) {
	var doc DistributeEvent
	if err := xml.Unmarshal([]byte(sampleDistributeEvent), &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if doc.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", doc.RequestID)
	}
	if doc.VtnID != "vtn_1" {
		t.Errorf("VtnID = %q, want vtn_1", doc.VtnID)
	}
	if len(doc.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(doc.Events))
	}

	evt := doc.Events[0].EiEvent
	if evt.EventDescriptor.EventID != "e_1" {
		t.Errorf("EventID = %q, want e_1", evt.EventDescriptor.EventID)
	}
	if evt.EventDescriptor.EiMarketContext.MarketContext != "http://enernoc.com" {
		t.Errorf("MarketContext = %q, want http://enernoc.com", evt.EventDescriptor.EiMarketContext.MarketContext)
	}
	if evt.EiActivePeriod.Properties.DtStart.DateTime != "2013-05-12T08:30:50Z" {
		t.Errorf("DtStart = %q, want 2013-05-12T08:30:50Z", evt.EiActivePeriod.Properties.DtStart.DateTime)
	}
	if len(evt.EiEventSignals.Signal) != 1 {
		t.Fatalf("len(Signal) = %d, want 1", len(evt.EiEventSignals.Signal))
	}
	sig := evt.EiEventSignals.Signal[0]
	if sig.SignalName != "simple" || sig.SignalType != "level" {
		t.Errorf("signal = %+v, want simple/level", sig)
	}
	if len(sig.Intervals.Interval) != 1 {
		t.Fatalf("len(Interval) = %d, want 1", len(sig.Intervals.Interval))
	}
	iv := sig.Intervals.Interval[0]
	if iv.Duration.Duration != "PT5M" {
		t.Errorf("Duration = %q, want PT5M", iv.Duration.Duration)
	}
	if iv.SignalPayload.PayloadFloat.Value != "1" {
		t.Errorf("Value = %q, want 1", iv.SignalPayload.PayloadFloat.Value)
	}
}

func TestCreatedEvent_Marshal(t *testing.T) {
	doc := CreatedEvent{
		EiResponse: EiResponse{ResponseCode: "200"},
		EventResponses: &EventResponsesWrap{
			EventResponse: []EventResponse{
				{
					ResponseCode:     "200",
					RequestID:        "req-1",
					QualifiedEventID: QualifiedEventID{EventID: "e_1", ModificationNumber: 0},
					OptType:          "optIn",
				},
			},
		},
		VenID: "ven_py",
	}

	out, err := xml.Marshal(&doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var roundTrip CreatedEvent
	if err := xml.Unmarshal(out, &roundTrip); err != nil {
		t.Fatalf("round-trip Unmarshal() error = %v", err)
	}
	if roundTrip.VenID != "ven_py" {
		t.Errorf("VenID = %q, want ven_py", roundTrip.VenID)
	}
	if len(roundTrip.EventResponses.EventResponse) != 1 {
		t.Fatalf("len(EventResponse) = %d, want 1", len(roundTrip.EventResponses.EventResponse))
	}
	if roundTrip.EventResponses.EventResponse[0].OptType != "optIn" {
		t.Errorf("OptType = %q, want optIn", roundTrip.EventResponses.EventResponse[0].OptType)
	}
}

func TestCreatedEvent_MarshalStampsNamespaces(t *testing.T) {
	ns := NamespacesFor(Profile20b)
	doc := CreatedEvent{
		XMLName:    RootName(ns, "oadrCreatedEvent"),
		Xmlns:      NamespaceAttrs(ns),
		EiResponse: EiResponse{ResponseCode: "200"},
		VenID:      "ven_py",
	}

	out, err := xml.Marshal(&doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := string(out)
	if want := `xmlns="` + NS_B["oadr"] + `"`; !strings.Contains(got, want) {
		t.Errorf("marshaled document missing default oadr namespace: %s", got)
	}
	for _, prefix := range []string{"pyld", "ei", "emix", "xcal", "strm"} {
		if want := `xmlns:` + prefix + `="` + NS_B[prefix] + `"`; !strings.Contains(got, want) {
			t.Errorf("marshaled document missing xmlns:%s declaration: %s", prefix, got)
		}
	}
}

func TestNamespacesFor(t *testing.T) {
	if NamespacesFor(Profile20a)["oadr"] != NS_A["oadr"] {
		t.Error("NamespacesFor(2.0a) did not return NS_A")
	}
	if NamespacesFor(Profile20b)["oadr"] != NS_B["oadr"] {
		t.Error("NamespacesFor(2.0b) did not return NS_B")
	}
	if NamespacesFor("bogus")["oadr"] != NS_A["oadr"] {
		t.Error("NamespacesFor(bogus) did not fall back to NS_A")
	}
}
