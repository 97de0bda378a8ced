package control

import (
	"encoding/xml"
	"strconv"

	"oadr2ven.io/ven/internal/domain"
	"oadr2ven.io/ven/internal/oadr"
	"oadr2ven.io/ven/internal/schedule"
	"oadr2ven.io/ven/internal/store"
)

// decodeEvent reconstructs the domain representation of a stored event from
// its persisted raw XML. Unlike eventhandler.parseEiEvent this works off a
// store.Record directly, since the controller never sees the wire envelope.
func decodeEvent(rec store.Record) (domain.Event, bool) {
	var ei oadr.EiEvent
	if err := xml.Unmarshal(rec.RawXML, &ei); err != nil {
		return domain.Event{}, false
	}

	start, err := schedule.StrToDatetime(ei.EiActivePeriod.Properties.DtStart.DateTime)
	if err != nil {
		return domain.Event{}, false
	}

	return domain.Event{
		VtnID:             rec.VtnID,
		EventID:           rec.EventID,
		ModNumber:         rec.ModNum,
		Status:            ei.EventDescriptor.EventStatus,
		MarketContext:     ei.EventDescriptor.EiMarketContext.MarketContext,
		ActivePeriodStart: start,
		Targeting: domain.Targeting{
			PartyIDs:    ei.EiTarget.PartyID,
			GroupIDs:    ei.EiTarget.GroupID,
			ResourceIDs: ei.EiTarget.ResourceID,
			VenIDs:      ei.EiTarget.VenID,
		},
		Signals: decodeSignals(ei.EiEventSignals.Signal),
	}, true
}

func decodeSignals(signals []oadr.EiEventSignal) []domain.Signal {
	out := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		intervals := make([]domain.Interval, len(s.Intervals.Interval))
		for i, iv := range s.Intervals.Interval {
			value, _ := strconv.ParseFloat(iv.SignalPayload.PayloadFloat.Value, 64)
			intervals[i] = domain.Interval{
				Duration: iv.Duration.Duration,
				UID:      iv.UID.Text,
				Payload:  value,
			}
		}
		out = append(out, domain.Signal{
			Name:      s.SignalName,
			Type:      domain.SignalType(s.SignalType),
			Intervals: intervals,
		})
	}
	return out
}
