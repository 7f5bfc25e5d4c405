// Package session holds the live-capture session state: a bounded ring
// of recently decoded packets, subscriber fan-out, and optional sinks
// (analyser, logger, Redis publisher). A late-joining subscriber gets
// the full ring history on attach, then per-packet events.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

// State is the session lifecycle state machine.
type State int

const (
	StateConstructed State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Mode distinguishes live capture from a pre-populated replay view.
type Mode int

const (
	ModeLive Mode = iota
	ModeView
)

// Sink receives every successfully decoded packet. Each registered sink
// is served by its own worker goroutine reading from an ordered channel,
// so sinks run concurrently with each other and with subscriber delivery
// but every sink still observes packets in decode order. Sink failures
// are logged, never propagated up the publish path.
type Sink interface {
	Observe(nasa.Packet)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(nasa.Packet)

func (f SinkFunc) Observe(p nasa.Packet) { f(p) }

// EventKind distinguishes the three push envelope shapes.
type EventKind int

const (
	EventInit EventKind = iota
	EventPacket
	EventHistory
)

// Event is delivered to every subscriber. For EventInit and
// EventHistory, Packets holds the bulk payload; for EventPacket, Packet
// holds the single decoded packet.
type Event struct {
	Kind     EventKind
	ViewMode bool
	Packet   nasa.Packet
	Packets  []nasa.Packet
}

const defaultSubscriberBuffer = 256

// Config controls a Session's ring capacity and subscriber buffering.
type Config struct {
	HistoryCapacity  int // default 1000 if zero
	SubscriberBuffer int // default 256 if zero
	ShutdownTimeout  time.Duration
	Sinks            []Sink
}

func (c Config) normalized() Config {
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = 1000
	}
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = defaultSubscriberBuffer
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

type subscriber struct {
	id uint64
	ch chan Event
}

// sinkWorker serializes delivery to one sink. The channel preserves
// decode order; the worker goroutine drains it until Close.
type sinkWorker struct {
	sink Sink
	ch   chan nasa.Packet
}

// Session is the live-capture session: it owns the packet-history ring,
// fans decoded packets out to sinks and subscribers, and replays a
// bounded history to late joiners.
type Session struct {
	cfg Config

	mu          sync.RWMutex
	state       State
	mode        Mode
	history     *ring[nasa.Packet]
	subscribers map[uint64]*subscriber
	nextSubID   uint64
	sinks       []Sink
	workers     []*sinkWorker

	metrics MetricsHook

	wg sync.WaitGroup
}

// MetricsHook lets callers observe session-internal events (subscriber
// drops, published packets) without the session package depending on any
// particular metrics library.
type MetricsHook interface {
	SubscriberDropped()
	PacketPublished()
}

// New creates a live-mode Session. Sinks in cfg are registered
// immediately.
func New(cfg Config) *Session {
	cfg = cfg.normalized()
	s := &Session{
		cfg:         cfg,
		state:       StateConstructed,
		mode:        ModeLive,
		history:     newRing[nasa.Packet](cfg.HistoryCapacity),
		subscribers: make(map[uint64]*subscriber),
	}
	s.sinks = append(s.sinks, cfg.Sinks...)
	return s
}

// NewView creates a view-mode Session pre-populated from packets (a
// persisted export, loaded by internal/capture). No live decodes occur;
// the session starts directly in Running state since there is no
// pipeline to start.
func NewView(packets []nasa.Packet, cfg Config) *Session {
	cfg = cfg.normalized()
	s := &Session{
		cfg:         cfg,
		state:       StateRunning,
		mode:        ModeView,
		history:     newRing[nasa.Packet](cfg.HistoryCapacity),
		subscribers: make(map[uint64]*subscriber),
	}
	for _, p := range packets {
		s.history.Push(p)
	}
	return s
}

// SetMetricsHook installs the metrics hook used for subscriber-drop and
// publish counters. Must be called before Start.
func (s *Session) SetMetricsHook(h MetricsHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = h
}

// AddSink registers an additional sink. Must be called before Start:
// sink workers are created only by Start, so a sink added afterwards
// never observes any packet.
func (s *Session) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

var (
	// ErrNotRunning is returned by Publish when the session isn't live
	// and running.
	ErrNotRunning = errors.New("session: not running")
	// ErrViewMode is returned by mutating operations while in view mode.
	ErrViewMode = errors.New("session: mutating operation rejected in view mode")
	// ErrStopping is returned by Subscribe once shutdown has begun.
	ErrStopping = errors.New("session: stopping, subscribers rejected")
)

// Start transitions Constructed -> Running and spawns one worker
// goroutine per registered sink. Idempotent if already Running.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateConstructed:
		for _, sink := range s.sinks {
			w := &sinkWorker{sink: sink, ch: make(chan nasa.Packet, s.cfg.SubscriberBuffer)}
			s.workers = append(s.workers, w)
			s.wg.Add(1)
			go s.runSink(w)
		}
		s.state = StateRunning
		return nil
	case StateRunning:
		return nil
	default:
		return fmt.Errorf("session: cannot start from state %s", s.state)
	}
}

// runSink drains one sink's ordered channel until Close. A panicking
// sink loses that one packet, not the worker.
func (s *Session) runSink(w *sinkWorker) {
	defer s.wg.Done()
	for p := range w.ch {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("session: sink panicked: %v", r)
				}
			}()
			w.sink.Observe(p)
		}()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Publish hands a newly decoded packet to the ring, every sink, and
// every subscriber, in that order, preserving decode order for each
// subscriber's own projection. Publish is only valid in live mode while
// Running.
func (s *Session) Publish(p nasa.Packet) error {
	s.mu.Lock()
	if s.mode != ModeLive {
		s.mu.Unlock()
		return ErrViewMode
	}
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}

	s.history.Push(p)
	metrics := s.metrics

	if metrics != nil {
		metrics.PacketPublished()
	}

	// Blocking sends keep every sink's projection in decode order; a
	// slow sink backpressures the capture loop rather than reordering.
	// Holding s.mu across the fan-out also keeps Close from closing a
	// worker channel under an in-flight send.
	for _, w := range s.workers {
		w.ch <- p
	}

	event := Event{Kind: EventPacket, Packet: p}
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- event:
		default:
			if metrics != nil {
				metrics.SubscriberDropped()
			}
			log.Printf("session: subscriber %d buffer full, dropping packet", sub.id)
		}
	}

	s.mu.Unlock()
	return nil
}

// Subscribe attaches a new subscriber. The returned channel immediately
// receives an EventInit carrying the current mode flag and a snapshot of
// the full history, taken under the same critical section as enrollment
// so the subscriber can neither miss a packet decoded before the
// snapshot nor see one twice.
func (s *Session) Subscribe() (id uint64, events <-chan Event, cancel func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopping || s.state == StateStopped {
		return 0, nil, nil, ErrStopping
	}

	s.nextSubID++
	id = s.nextSubID
	ch := make(chan Event, s.cfg.SubscriberBuffer)
	sub := &subscriber{id: id, ch: ch}
	s.subscribers[id] = sub

	snapshot := s.history.Snapshot()
	ch <- Event{Kind: EventInit, ViewMode: s.mode == ModeView, Packets: snapshot}

	return id, ch, func() { s.unsubscribe(id) }, nil
}

// unsubscribe detaches a subscriber. Silent and idempotent.
func (s *Session) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// Resend pushes the full current history to one subscriber as a single
// EventHistory, the bulk-resend envelope.
func (s *Session) Resend(id uint64) error {
	s.mu.RLock()
	sub, ok := s.subscribers[id]
	snapshot := s.history.Snapshot()
	metrics := s.metrics
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("session: unknown subscriber %d", id)
	}

	select {
	case sub.ch <- Event{Kind: EventHistory, Packets: snapshot}:
	default:
		if metrics != nil {
			metrics.SubscriberDropped()
		}
		return fmt.Errorf("session: subscriber %d buffer full", id)
	}
	return nil
}

// SubscriberCount returns the current number of attached subscribers.
func (s *Session) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// HistoryLen returns the current number of packets held in the history
// ring without copying it, for cheap metrics scraping.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}

// History returns a snapshot of the current history ring, oldest first.
func (s *Session) History() []nasa.Packet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Snapshot()
}

// Reset clears the history ring. Rejected in view mode, where mutating
// operations are disallowed.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeLive {
		return ErrViewMode
	}
	s.history.Reset()
	return nil
}

// Close transitions Running -> Stopping -> Stopped. During Stopping, new
// subscribers are rejected and the sink workers are given up to
// cfg.ShutdownTimeout to drain before Close returns regardless.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	for _, sub := range s.subscribers {
		close(sub.ch)
	}
	s.subscribers = make(map[uint64]*subscriber)
	for _, w := range s.workers {
		close(w.ch)
	}
	s.workers = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		log.Printf("session: shutdown timeout exceeded, forcing close")
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}
