package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a typed fact emitted by the transfer aggregate.
type Event interface {
	EventName() string
}

// Funds is one leg of a transfer. Amount is an arbitrary-precision decimal;
// never use floats for money.
type Funds struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
	Memo    string          `json:"memo,omitempty"`
	Invoice string          `json:"invoice,omitempty"`

	Rejected         bool   `json:"rejected,omitempty"`
	RejectionMessage string `json:"rejection_message,omitempty"`
}

// TransferPrepared is always the first event of a transfer aggregate. For
// unconditional transfers it also implies immediate execution.
type TransferPrepared struct {
	ID                 uuid.UUID `json:"id"`
	Ledger             string    `json:"ledger"`
	Debits             []Funds   `json:"debits"`
	Credits            []Funds   `json:"credits"`
	ExecutionCondition string    `json:"execution_condition,omitempty"`
	ExpiresAt          time.Time `json:"expires_at"`
}

func (TransferPrepared) EventName() string { return EventTransferPrepared }

type TransferExecuted struct {
	Fulfillment string `json:"fulfillment"`
}

func (TransferExecuted) EventName() string { return EventTransferExecuted }

type TransferRejected struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

func (TransferRejected) EventName() string { return EventTransferRejected }

type TransferSettled struct {
	SettlementID uuid.UUID `json:"settlement_id"`
}

func (TransferSettled) EventName() string { return EventTransferSettled }

// RecordedEvent pairs a decoded event with the store-assigned metadata the
// reducers need.
type RecordedEvent struct {
	Event          Event
	SequenceNumber int64
	Timestamp      time.Time
}

var eventDecoders = map[string]func([]byte) (Event, error){
	EventTransferPrepared: func(b []byte) (Event, error) {
		var ev TransferPrepared
		err := json.Unmarshal(b, &ev)
		return ev, err
	},
	EventTransferExecuted: func(b []byte) (Event, error) {
		var ev TransferExecuted
		err := json.Unmarshal(b, &ev)
		return ev, err
	},
	EventTransferRejected: func(b []byte) (Event, error) {
		var ev TransferRejected
		err := json.Unmarshal(b, &ev)
		return ev, err
	},
	EventTransferSettled: func(b []byte) (Event, error) {
		var ev TransferSettled
		err := json.Unmarshal(b, &ev)
		return ev, err
	},
}

// DecodeEvent rebuilds a typed event from its stored name and JSON payload.
func DecodeEvent(name string, payload []byte) (Event, error) {
	decode, ok := eventDecoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown event name %q", name)
	}
	ev, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}

// EncodeEvent serializes a typed event payload for the event store.
func EncodeEvent(ev Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return b, nil
}
