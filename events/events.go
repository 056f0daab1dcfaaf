// Package events publishes report lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectReportCreated       = "reports.created"
	SubjectReportStatusChanged = "reports.status_changed"
	SubjectReportCommented     = "reports.commented"
)

// Event is the JSON payload of every notification
type Event struct {
	ReportID     uuid.UUID  `json:"reportId"`
	ActorID      uuid.UUID  `json:"actorId"`
	District     string     `json:"district,omitempty"`
	Municipality string     `json:"municipality,omitempty"`
	Department   string     `json:"department,omitempty"`
	Status       string     `json:"status,omitempty"`
	FromStatus   string     `json:"fromStatus,omitempty"`
	CommentID    *uuid.UUID `json:"commentId,omitempty"`
	OccurredAt   time.Time  `json:"occurredAt"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, event Event) error
}

// Nop discards every event
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, string, Event) error { return nil }

// NATSPublisher publishes events on a core NATS connection
type NATSPublisher struct {
	conn   *nats.Conn
	closed chan struct{}
}

// drainTimeout bounds how long Close waits for buffered events to reach the server
const drainTimeout = 5 * time.Second

// ConnectNATS dials url and returns a publisher on the new connection
func ConnectNATS(url string) (*NATSPublisher, error) {
	closed := make(chan struct{})
	conn, err := nats.Connect(url,
		nats.Name("civicreport-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
		nats.DrainTimeout(drainTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: conn, closed: closed}, nil
}

// Publish implements Publisher
func (p *NATSPublisher) Publish(_ context.Context, subject string, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and blocks until the connection is closed.
// Drain returns before the flush completes, so Close waits on the closed
// handler instead.
func (p *NATSPublisher) Close() {
	if err := p.conn.Flush(); err != nil {
		log.Printf("nats: flush: %v", err)
	}
	if err := p.conn.Drain(); err != nil {
		log.Printf("nats: drain: %v", err)
		p.conn.Close()
	}
	select {
	case <-p.closed:
	case <-time.After(drainTimeout + time.Second):
		log.Printf("nats: close timed out after %s", drainTimeout)
		p.conn.Close()
	}
}
