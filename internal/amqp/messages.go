package amqp

import (
	"encoding/json"
	"time"

	"parishledger/internal/batch"
)

// BatchCommittedMessage is the wire form of a commit event. Consumers use
// it to refresh derived aggregates (budget usage, per-period totals) after
// a batch lands.
type BatchCommittedMessage struct {
	batch.CommittedEvent
	Timestamp time.Time `json:"timestamp"`
}

func NewBatchCommittedMessage(event batch.CommittedEvent) *BatchCommittedMessage {
	return &BatchCommittedMessage{
		CommittedEvent: event,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *BatchCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BatchCommittedMessageFromJSON(data []byte) (*BatchCommittedMessage, error) {
	var msg BatchCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
