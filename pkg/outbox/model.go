// Package outbox relays rows written alongside aggregate changes to Kafka.
package outbox

import "time"

// Status tracks a row through the relay.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	// StatusFailed is terminal: the row used up MaxAttempts.
	StatusFailed Status = "failed"
)

// MaxAttempts bounds dispatch attempts before a row is parked as failed.
const MaxAttempts = 10

// Event is one outbox row. AggregateID is used as the Kafka key so every
// event of one order lands on the same partition.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
}

// Exhausted reports whether one more failed dispatch parks the row.
func (e Event) Exhausted() bool {
	return e.RetryCount+1 >= MaxAttempts
}
