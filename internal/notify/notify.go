// AngelaMos | 2026
// notify.go

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	RequestSubmitted Kind = "request_submitted"
	Approved         Kind = "approved"
	Deleted          Kind = "deleted"
)

// Event describes a reservation change worth telling someone about.
type Event struct {
	Kind   Kind
	ID     uint64
	Name   string
	Author string
	Rooms  uint8
	Begin  time.Time
	End    time.Time
}

type Message struct {
	To      string
	Subject string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	ApproverEmail string
	QueueSize     int
	SendTimeout   time.Duration
}

// Notifier turns events into messages and delivers them from a bounded
// queue on a single goroutine. Delivery failures are logged and dropped.
type Notifier struct {
	sender   Sender
	approver string
	timeout  time.Duration
	logger   *slog.Logger

	queue     chan Message
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func New(sender Sender, cfg Config, logger *slog.Logger) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	n := &Notifier{
		sender:   sender,
		approver: cfg.ApproverEmail,
		timeout:  cfg.SendTimeout,
		logger:   logger.With("component", "notify"),
		queue:    make(chan Message, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	go n.run()

	return n
}

// Notify queues the message for e. It never blocks; when the queue is
// full or the notifier is closed the message is dropped.
func (n *Notifier) Notify(ctx context.Context, e Event) {
	msg, ok := n.compose(e)
	if !ok {
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.logger.WarnContext(ctx, "notifier closed, dropping message",
			"kind", e.Kind, "reservation", e.ID)
		return
	}

	select {
	case n.queue <- msg:
	default:
		n.logger.WarnContext(ctx, "notification queue full, dropping message",
			"kind", e.Kind, "reservation", e.ID)
	}
}

// Close stops accepting events and waits until queued messages are sent
// or ctx ends.
func (n *Notifier) Close(ctx context.Context) error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}

func (n *Notifier) run() {
	defer close(n.done)

	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		if err := n.sender.Send(ctx, msg); err != nil {
			n.logger.Error("send notification",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
		}
		cancel()
	}
}

func (n *Notifier) compose(e Event) (Message, bool) {
	where := roomsText(e.Rooms)
	from := e.Begin.UTC().Format(time.RFC3339)
	to := e.End.UTC().Format(time.RFC3339)

	switch e.Kind {
	case RequestSubmitted:
		if n.approver == "" {
			return Message{}, false
		}
		return Message{
			To:      n.approver,
			Subject: "Approval Request",
			Text: fmt.Sprintf(
				"%s would like to reserve %s from %s to %s for %q (reservation %d).",
				e.Author, where, from, to, e.Name, e.ID,
			),
		}, true
	case Approved:
		return Message{
			To:      e.Author,
			Subject: "Approval of your booking of auditorium",
			Text: fmt.Sprintf(
				"Your reservation of %s from %s to %s has been approved!",
				where, from, to,
			),
		}, true
	case Deleted:
		return Message{
			To:      e.Author,
			Subject: "Your booking of auditorium was removed",
			Text: fmt.Sprintf(
				"Your reservation of %s from %s to %s has been removed.",
				where, from, to,
			),
		}, true
	default:
		return Message{}, false
	}
}

func roomsText(rooms uint8) string {
	switch rooms {
	case 1:
		return "Auditorium North"
	case 2:
		return "Auditorium South"
	default:
		return "Auditorium South and Auditorium North"
	}
}
