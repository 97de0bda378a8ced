// Package eventhandler implements the Event Handler: the OpenADR
// distributeEvent payload state machine (spec.md §4.3). It validates
// incoming events against the VEN's identity, diffs them against the Event
// Store, persists accepted mutations, and composes createdEvent replies.
package eventhandler

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oadr2ven.io/ven/internal/domain"
	"oadr2ven.io/ven/internal/oadr"
	apperrors "oadr2ven.io/ven/internal/pkg/errors"
	"oadr2ven.io/ven/internal/pkg/logger"
	"oadr2ven.io/ven/internal/schedule"
	"oadr2ven.io/ven/internal/store"
)

// Store is the subset of the Event Store the handler needs.
type Store interface {
	Get(ctx context.Context, vtnID, eventID string) (*store.Record, error)
	Upsert(ctx context.Context, vtnID, eventID string, modNum int, rawXML []byte) error
	Remove(ctx context.Context, vtnID string, eventIDs []string) (int64, error)
	GetActiveEvents(ctx context.Context) ([]store.Record, error)
}

// Handler is the Event Handler. It is safe for concurrent use: mutations
// and the implicit-cancellation pass are serialized by lock, the same lock
// the Event Controller takes for its per-tick read (spec.md §5).
type Handler struct {
	identity domain.VENIdentity
	store    Store
	ns       oadr.NamespaceMap
	lock     *sync.Mutex
}

// New constructs an Event Handler. lock must be the same mutex given to the
// Event Controller so handle_payload and Controller reads are serialized.
func New(identity domain.VENIdentity, st Store, lock *sync.Mutex) *Handler {
	return &Handler{
		identity: identity,
		store:    st,
		ns:       oadr.NamespacesFor(oadr.Profile(identity.Profile)),
		lock:     lock,
	}
}

type replyLine struct {
	eventID   string
	modNum    int
	requestID string
	opt       string
	status    string
}

// HandlePayload consumes a distributeEvent document, mutates the store, and
// returns a createdEvent reply document, or nil when no reply is warranted
// (spec.md §4.3).
func (h *Handler) HandlePayload(ctx context.Context, raw []byte) ([]byte, error) {
	var doc oadr.DistributeEvent
	if err := xml.Unmarshal(raw, &doc); err != nil {
		logger.Warn("distributeEvent failed to parse", zap.Error(err))
		return nil, apperrors.ErrMalformedPayload(err.Error())
	}

	if !h.identity.AcceptsVtn(doc.VtnID) {
		logger.Warn("rejecting payload from unaccepted vtnID", zap.String("vtn_id", doc.VtnID))
		unknownVtn := apperrors.ErrUnknownVtn(doc.VtnID)
		return h.BuildErrorResponse(doc.RequestID, strconv.Itoa(unknownVtn.HTTPStatus)), nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	var lines []replyLine
	seenEventIDs := make(map[string]struct{}, len(doc.Events))

	for _, oe := range doc.Events {
		event, err := parseEiEvent(doc.VtnID, oe.EiEvent)
		if err != nil {
			logger.Warn("skipping malformed event in distributeEvent", zap.Error(err))
			continue
		}
		seenEventIDs[event.EventID] = struct{}{}

		prior, err := h.store.Get(ctx, doc.VtnID, event.EventID)
		if err != nil {
			return nil, apperrors.ErrStoreError(err)
		}
		priorModNum := 0
		hadPrior := prior != nil
		if hadPrior {
			priorModNum = prior.ModNum
		}

		emitReply := !hadPrior || event.ModNumber != priorModNum || oe.ResponseRequired == "always"
		opt, status := h.decideOptStatus(hadPrior, priorModNum, event)

		if emitReply {
			lines = append(lines, replyLine{
				eventID:   event.EventID,
				modNum:    event.ModNumber,
				requestID: doc.RequestID,
				opt:       opt,
				status:    status,
			})
		}

		mutate := !hadPrior || event.ModNumber > priorModNum
		if !mutate {
			continue
		}

		ei := oe.EiEvent
		// Start-randomization applies only on first acceptance, not on every
		// modification, so the VEN's announced start stays stable across
		// mod bumps (spec.md §9).
		if !hadPrior && (event.StartBefore != nil || event.StartAfter != nil) {
			newStart, err := schedule.RandomOffset(event.ActivePeriodStart, event.StartBefore, event.StartAfter)
			if err != nil {
				logger.Warn("failed to randomize start offset, storing original start",
					zap.String("event_id", event.EventID), zap.Error(err))
			} else {
				ei.EiActivePeriod.Properties.DtStart.DateTime = schedule.DttmToStr(newStart)
			}
		}

		rawEvent, err := xml.Marshal(&ei)
		if err != nil {
			return nil, apperrors.ErrStoreError(fmt.Errorf("marshal event for storage: %w", err))
		}
		if err := h.store.Upsert(ctx, doc.VtnID, event.EventID, event.ModNumber, rawEvent); err != nil {
			return nil, apperrors.ErrStoreError(err)
		}
	}

	if err := h.removeImplicitlyCancelled(ctx, doc.VtnID, seenEventIDs); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, nil
	}
	return h.buildCreatedEvent(lines), nil
}

// decideOptStatus applies spec.md §4.3 step 5's first-match-wins chain. The
// numeric status for each rejection reason is sourced from the matching
// entry in the OpenADR error taxonomy (internal/pkg/errors/codes.go)
// instead of being duplicated here as a literal.
func (h *Handler) decideOptStatus(hadPrior bool, priorModNum int, event domain.Event) (opt, status string) {
	switch {
	case hadPrior && event.ModNumber < priorModNum:
		return "optOut", httpStatus(apperrors.ErrStaleModification(event.EventID))
	case event.Targeting.IsSpecified() && !event.Targeting.Matches(h.identity):
		return "optOut", httpStatus(apperrors.ErrTargetingMismatch(event.EventID))
	case !event.HasUsableSignal():
		return "optOut", httpStatus(apperrors.ErrNoUsableSignal(event.EventID))
	case len(h.identity.AcceptedMarketContexts) > 0 && !h.identity.AcceptsMarketContext(event.MarketContext):
		return "optOut", httpStatus(apperrors.ErrMarketContextMismatch(event.EventID))
	default:
		return "optIn", "200"
	}
}

func httpStatus(e *apperrors.AppError) string {
	return strconv.Itoa(e.HTTPStatus)
}

func (h *Handler) removeImplicitlyCancelled(ctx context.Context, vtnID string, seen map[string]struct{}) error {
	active, err := h.store.GetActiveEvents(ctx)
	if err != nil {
		return apperrors.ErrStoreError(err)
	}

	var cancelled []string
	for _, rec := range active {
		if rec.VtnID != vtnID {
			continue
		}
		if _, ok := seen[rec.EventID]; !ok {
			cancelled = append(cancelled, rec.EventID)
		}
	}
	if len(cancelled) == 0 {
		return nil
	}

	if _, err := h.store.Remove(ctx, vtnID, cancelled); err != nil {
		return apperrors.ErrStoreError(err)
	}
	logger.Debug("removed implicitly cancelled events", zap.Strings("event_ids", cancelled))
	return nil
}

func (h *Handler) buildCreatedEvent(lines []replyLine) []byte {
	responses := make([]oadr.EventResponse, len(lines))
	for i, l := range lines {
		responses[i] = oadr.EventResponse{
			ResponseCode: l.status,
			RequestID:    l.requestID,
			QualifiedEventID: oadr.QualifiedEventID{
				EventID:            l.eventID,
				ModificationNumber: l.modNum,
			},
			OptType: l.opt,
		}
	}

	doc := oadr.CreatedEvent{
		XMLName:        oadr.RootName(h.ns, "oadrCreatedEvent"),
		Xmlns:          oadr.NamespaceAttrs(h.ns),
		EiResponse:     oadr.EiResponse{ResponseCode: "200"},
		EventResponses: &oadr.EventResponsesWrap{EventResponse: responses},
		VenID:          h.identity.VenID,
	}

	out, err := xml.Marshal(&doc)
	if err != nil {
		logger.Error("failed to marshal createdEvent reply", zap.Error(err))
		return nil
	}
	return out
}

// BuildRequestPayload produces a requestEvent document carrying the VEN id,
// a fresh UUIDv4 request id, and a reply limit (spec.md §4.3).
func (h *Handler) BuildRequestPayload() ([]byte, error) {
	doc := oadr.RequestEvent{
		XMLName:    oadr.RootName(h.ns, "oadrRequestEvent"),
		Xmlns:      oadr.NamespaceAttrs(h.ns),
		RequestID:  uuid.NewString(),
		VenID:      h.identity.VenID,
		ReplyLimit: 99,
	}
	out, err := xml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal requestEvent: %w", err)
	}
	return out, nil
}

// BuildErrorResponse produces a createdEvent carrying a single top-level
// eiResponse with the given numeric response code (spec.md §4.3).
func (h *Handler) BuildErrorResponse(requestID, code string) []byte {
	doc := oadr.CreatedEvent{
		XMLName:    oadr.RootName(h.ns, "oadrCreatedEvent"),
		Xmlns:      oadr.NamespaceAttrs(h.ns),
		EiResponse: oadr.EiResponse{ResponseCode: code, RequestID: requestID},
		VenID:      h.identity.VenID,
	}
	out, err := xml.Marshal(&doc)
	if err != nil {
		logger.Error("failed to marshal error response", zap.Error(err))
		return nil
	}
	return out
}
