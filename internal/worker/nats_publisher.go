package worker

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// wireEvent is the JSON envelope published for out-of-process coordinators.
type wireEvent struct {
	Kind       EventKind `json:"kind"`
	BuildID    string    `json:"build_id,omitempty"`
	Total      int       `json:"total,omitempty"`
	Index      int       `json:"index,omitempty"`
	ErrorCount int       `json:"error_count,omitempty"`
	Detail     *Failure  `json:"detail,omitempty"`
}

// NATSPublisher mirrors progress events to a NATS subject as JSON, for
// coordinators running outside the build process.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("sitewright-progress"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Sink returns a progress sink that publishes each event. Publish failures
// are logged and never fail the build.
func (p *NATSPublisher) Sink() Sink {
	return func(e Event) {
		env := wireEvent{Kind: e.Kind()}
		switch ev := e.(type) {
		case Started:
			env.BuildID = ev.BuildID
			env.Total = ev.Total
		case Completed:
			env.BuildID = ev.BuildID
			env.Index = ev.Index
			env.ErrorCount = ev.ErrorCount
			env.Detail = ev.Detail
		default:
			return
		}

		data, err := json.Marshal(env)
		if err != nil {
			slog.Warn("Failed to marshal progress event", "error", err)
			return
		}
		if err := p.conn.Publish(p.subject, data); err != nil {
			slog.Warn("Failed to publish progress event", "subject", p.subject, "error", err)
		}
	}
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
