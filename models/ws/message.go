package wsmodels

import (
	"encoding/json"
)

// Envelope формат сообщения по постоянному соединению, в обе стороны.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type EventType string

// Входящие типы событий сервера координации. Неизвестный тип не ошибка:
// сервер может добавлять новые типы раньше, чем обновится клиент.
const (
	EventNewOffer         EventType = "new_offer"
	EventOfferAccepted    EventType = "offer_accepted"
	EventOfferDeclined    EventType = "offer_declined"
	EventLocationUpdate   EventType = "location_update"
	EventStageChange      EventType = "stage_change"
	EventTimerStarted     EventType = "timer_started"
	EventTimerStopped     EventType = "timer_stopped"
	EventTimerResumed     EventType = "timer_resumed"
	EventPaymentRequested EventType = "payment_requested"
	EventCodeGenerated    EventType = "code_generated"
	EventJobCompleted     EventType = "job_completed"

	EventUnknown EventType = ""
)

// Локальные события самого канала, сервером не присылаются.
const (
	EventConnected        EventType = "connected"
	EventConnectionFailed EventType = "connectionFailed"
)

var knownEvents = map[string]EventType{
	string(EventNewOffer):         EventNewOffer,
	string(EventOfferAccepted):    EventOfferAccepted,
	string(EventOfferDeclined):    EventOfferDeclined,
	string(EventLocationUpdate):   EventLocationUpdate,
	string(EventStageChange):      EventStageChange,
	string(EventTimerStarted):     EventTimerStarted,
	string(EventTimerStopped):     EventTimerStopped,
	string(EventTimerResumed):     EventTimerResumed,
	string(EventPaymentRequested): EventPaymentRequested,
	string(EventCodeGenerated):    EventCodeGenerated,
	string(EventJobCompleted):     EventJobCompleted,
}

func ParseEventType(raw string) EventType {
	eventType, ok := knownEvents[raw]
	if !ok {
		return EventUnknown
	}
	return eventType
}

func NewEnvelope(eventType EventType, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:    string(eventType),
		Payload: body,
	}, nil
}
