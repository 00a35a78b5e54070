package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// Event names published to provider and patient channels
const (
	EventNewAppointment     = "new_appointment"
	EventAppointmentUpdated = "appointment_updated"
	EventPatientCheckedIn   = "patient_checked_in"
	EventPatientCalled      = "patient_called"
	EventQueueUpdated       = "queue_updated"
)

const sinkDeliveryTimeout = 5 * time.Second

// Publisher is the fire-and-forget event capability used by the usecases
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any)
}

// Message is one event on its way to the sinks
type Message struct {
	Channel   string    `json:"channel"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink delivers messages to a transport such as the websocket hub or Redis pub/sub
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

func ProviderChannel(providerID uuid.UUID) string {
	return "provider:" + providerID.String()
}

func PatientChannel(patientID uuid.UUID) string {
	return "patient:" + patientID.String()
}

// EventNotifier queues events in a bounded buffer and delivers them from a
// single worker. A full buffer drops the event. Call Stop during graceful shutdown.
type EventNotifier struct {
	log   *logrus.Logger
	sinks []Sink
	queue chan Message

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewEventNotifier(log *logrus.Logger, bufferSize int, sinks ...Sink) *EventNotifier {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	n := &EventNotifier{
		log:   log,
		sinks: sinks,
		queue: make(chan Message, bufferSize),
		done:  make(chan struct{}),
	}

	go n.worker()
	return n
}

// Publish enqueues the event without blocking
func (n *EventNotifier) Publish(_ context.Context, channel, event string, payload any) {
	msg := Message{
		Channel:   channel,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.stopped {
		n.log.Warnf("Notifier stopped, dropping %s event for %s", event, channel)
		return
	}

	select {
	case n.queue <- msg:
	default:
		n.log.Warnf("Notifier queue full, dropping %s event for %s", event, channel)
	}
}

// Stop drains queued events and waits for the worker. Safe to call multiple times.
func (n *EventNotifier) Stop() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	n.log.Info("EventNotifier stopped")
}

func (n *EventNotifier) worker() {
	defer close(n.done)

	for msg := range n.queue {
		n.deliver(msg)
	}
}

func (n *EventNotifier) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkDeliveryTimeout)
	defer cancel()

	var wg conc.WaitGroup
	for _, sink := range n.sinks {
		wg.Go(func() {
			if err := sink.Deliver(ctx, msg); err != nil {
				n.log.Warnf("Failed to deliver %s event to %s: %+v", msg.Event, msg.Channel, err)
			}
		})
	}

	// conc.WaitGroup re-raises sink panics from Wait
	defer func() {
		if r := recover(); r != nil {
			n.log.Errorf("Sink panicked delivering %s event: %v", msg.Event, r)
		}
	}()
	wg.Wait()
}
