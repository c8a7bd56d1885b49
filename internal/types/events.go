package types

// EventType identifies the kind of a claim timeline event.
type EventType string

// Mail-derived events.
const (
	EventEmailReceived   EventType = "EMAIL_RECEIVED"
	EventEmailSent       EventType = "EMAIL_SENT"
	EventAttachmentAdded EventType = "ATTACHMENT_ADDED"
)

// Document events.
const (
	EventEstimateUploaded      EventType = "ESTIMATE_UPLOADED"
	EventEstimateRevised       EventType = "ESTIMATE_REVISED"
	EventDocSubmittedToCarrier EventType = "DOC_SUBMITTED_TO_CARRIER"
)

// Claim-native events.
const (
	EventNote                  EventType = "NOTE"
	EventInspectionScheduled   EventType = "INSPECTION_SCHEDULED"
	EventInspectionCompleted   EventType = "INSPECTION_COMPLETED"
	EventCoverageDetermination EventType = "COVERAGE_DETERMINATION"
	EventPaymentIssued         EventType = "PAYMENT_ISSUED"
	EventClaimClosed           EventType = "CLAIM_CLOSED"
)

// eventPriorities is the fixed type-priority table used as the timeline
// tie-break when two events share an occurred-at timestamp. Lower sorts
// earlier.
var eventPriorities = map[EventType]int{
	EventEmailReceived:         10,
	EventEmailSent:             11,
	EventAttachmentAdded:       20,
	EventEstimateUploaded:      21,
	EventEstimateRevised:       22,
	EventDocSubmittedToCarrier: 23,
	EventNote:                  30,
	EventInspectionScheduled:   40,
	EventInspectionCompleted:   41,
	EventCoverageDetermination: 50,
	EventPaymentIssued:         51,
	EventClaimClosed:           60,
}

// UnknownEventPriority sorts unrecognized event types after all known ones.
const UnknownEventPriority = 99

// Priority returns the sort priority for the event type.
func (t EventType) Priority() int {
	if p, ok := eventPriorities[t]; ok {
		return p
	}
	return UnknownEventPriority
}

// IsValid reports whether the event type is one of the known types.
func (t EventType) IsValid() bool {
	_, ok := eventPriorities[t]
	return ok
}
