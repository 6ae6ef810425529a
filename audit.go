package authstack

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// A Decision is the audit record of one completed authorization call.
type Decision struct {
	ID          uuid.UUID `json:"id"`
	Domain      string    `json:"domain"`
	Layer       Layer     `json:"layer,omitempty"`
	Identity    string    `json:"identity"`
	Verdict     Verdict   `json:"verdict"`
	Reason      string    `json:"reason,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// A Recorder receives the audit record of every decision a [Context]
// produces. Recording failures are logged by the context but never affect
// the decision itself.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
	Close() error
}
