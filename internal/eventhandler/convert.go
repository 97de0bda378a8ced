package eventhandler

import (
	"fmt"
	"strconv"

	"oadr2ven.io/ven/internal/domain"
	"oadr2ven.io/ven/internal/oadr"
	"oadr2ven.io/ven/internal/schedule"
)

// parseEiEvent converts a wire oadr.EiEvent, scoped to vtnID, into the
// handler's domain representation. Returns an error when a required field
// is missing or malformed.
func parseEiEvent(vtnID string, ei oadr.EiEvent) (domain.Event, error) {
	desc := ei.EventDescriptor
	if desc.EventID == "" {
		return domain.Event{}, fmt.Errorf("eiEvent missing eventID")
	}

	start, err := schedule.StrToDatetime(ei.EiActivePeriod.Properties.DtStart.DateTime)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %s: %w", desc.EventID, err)
	}

	var startBefore, startAfter *string
	if tol := ei.EiActivePeriod.Properties.Tolerance; tol != nil {
		if tol.Tolerate.StartBefore != "" {
			v := tol.Tolerate.StartBefore
			startBefore = &v
		}
		if tol.Tolerate.StartAfter != "" {
			v := tol.Tolerate.StartAfter
			startAfter = &v
		}
	}

	event := domain.Event{
		VtnID:             vtnID,
		EventID:           desc.EventID,
		ModNumber:         desc.ModificationNumber,
		Status:            desc.EventStatus,
		MarketContext:     desc.EiMarketContext.MarketContext,
		ActivePeriodStart: start,
		StartBefore:       startBefore,
		StartAfter:        startAfter,
		Targeting: domain.Targeting{
			PartyIDs:    ei.EiTarget.PartyID,
			GroupIDs:    ei.EiTarget.GroupID,
			ResourceIDs: ei.EiTarget.ResourceID,
			VenIDs:      ei.EiTarget.VenID,
		},
		Signals: convertSignals(ei.EiEventSignals.Signal),
	}
	return event, nil
}

func convertSignals(signals []oadr.EiEventSignal) []domain.Signal {
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
