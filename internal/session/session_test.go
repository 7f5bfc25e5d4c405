package session

import (
	"sync"
	"testing"
	"time"

	"github.com/Aranyalma2/samsung-nasa-sniffer/internal/nasa"
)

func testPacket(n byte) nasa.Packet {
	return nasa.Packet{
		Source:      nasa.Address{Class: nasa.ClassIndoor},
		Destination: nasa.Address{Class: nasa.ClassOutdoor},
		Command:     nasa.Command{PacketNumber: n},
		Timestamp:   time.Now(),
	}
}

func TestStateMachine(t *testing.T) {
	s := New(Config{})
	if s.State() != StateConstructed {
		t.Fatalf("initial state = %s, want Constructed", s.State())
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start() = %v, want idempotent nil", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, want Running", s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("state = %s, want Stopped", s.State())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() = %v, want idempotent nil", err)
	}
	if err := s.Start(); err == nil {
		t.Fatalf("Start() after Close should fail")
	}
}

func TestPublishBeforeStartRejected(t *testing.T) {
	s := New(Config{})
	if err := s.Publish(testPacket(1)); err != ErrNotRunning {
		t.Fatalf("Publish before Start = %v, want ErrNotRunning", err)
	}
}

func TestSubscriberReceivesInitThenPackets(t *testing.T) {
	s := New(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	if err := s.Publish(testPacket(1)); err != nil {
		t.Fatalf("Publish = %v", err)
	}

	_, events, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer cancel()

	init := <-events
	if init.Kind != EventInit {
		t.Fatalf("first event kind = %v, want EventInit", init.Kind)
	}
	if init.ViewMode {
		t.Fatalf("live session reported ViewMode=true")
	}
	if len(init.Packets) != 1 || init.Packets[0].Command.PacketNumber != 1 {
		t.Fatalf("init snapshot = %+v, want the one published packet", init.Packets)
	}

	if err := s.Publish(testPacket(2)); err != nil {
		t.Fatalf("Publish = %v", err)
	}
	ev := <-events
	if ev.Kind != EventPacket || ev.Packet.Command.PacketNumber != 2 {
		t.Fatalf("live event = %+v, want packet 2", ev)
	}
}

func TestSnapshotAndLiveEventsDisjoint(t *testing.T) {
	s := New(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	// Publish concurrently with a subscriber attaching: every packet must
	// arrive exactly once, either in the init snapshot or as a live event.
	const total = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_ = s.Publish(testPacket(byte(i)))
		}
	}()

	_, events, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer cancel()
	wg.Wait()

	seen := make(map[byte]int)
	init := <-events
	if init.Kind != EventInit {
		t.Fatalf("first event kind = %v, want EventInit", init.Kind)
	}
	for _, p := range init.Packets {
		seen[p.Command.PacketNumber]++
	}
	count := len(init.Packets)
	for count < total {
		ev := <-events
		if ev.Kind != EventPacket {
			continue
		}
		seen[ev.Packet.Command.PacketNumber]++
		count++
	}

	for n, c := range seen {
		if c != 1 {
			t.Fatalf("packet %d delivered %d times, want exactly once", n, c)
		}
	}
	if len(seen) != total {
		t.Fatalf("saw %d distinct packets, want %d", len(seen), total)
	}
}

func TestHistoryRingEviction(t *testing.T) {
	s := New(Config{HistoryCapacity: 3})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Publish(testPacket(byte(i))); err != nil {
			t.Fatalf("Publish = %v", err)
		}
	}

	h := s.History()
	if len(h) != 3 {
		t.Fatalf("history holds %d packets, want 3", len(h))
	}
	if h[0].Command.PacketNumber != 2 || h[2].Command.PacketNumber != 4 {
		t.Fatalf("history = [%d..%d], want oldest evicted first", h[0].Command.PacketNumber, h[2].Command.PacketNumber)
	}
}

func TestSinksObserveInDecodeOrder(t *testing.T) {
	var mu sync.Mutex
	var observed []byte
	done := make(chan struct{})

	const total = 50
	sink := SinkFunc(func(p nasa.Packet) {
		mu.Lock()
		observed = append(observed, p.Command.PacketNumber)
		if len(observed) == total {
			close(done)
		}
		mu.Unlock()
	})

	s := New(Config{Sinks: []Sink{sink}})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	for i := 0; i < total; i++ {
		if err := s.Publish(testPacket(byte(i))); err != nil {
			t.Fatalf("Publish = %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sink saw %d of %d packets before timeout", len(observed), total)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range observed {
		if n != byte(i) {
			t.Fatalf("sink observed packet %d at position %d, want decode order", n, i)
		}
	}
}

func TestSinksDrainedOnClose(t *testing.T) {
	var mu sync.Mutex
	var count int
	sink := SinkFunc(func(nasa.Packet) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	s := New(Config{Sinks: []Sink{sink}})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := s.Publish(testPacket(byte(i))); err != nil {
			t.Fatalf("Publish = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 20 {
		t.Fatalf("sink observed %d packets after Close, want all 20 drained", count)
	}
}

func TestSubscribeRejectedWhileStopping(t *testing.T) {
	s := New(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, _, _, err := s.Subscribe(); err != ErrStopping {
		t.Fatalf("Subscribe after Close = %v, want ErrStopping", err)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := New(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	_, _, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	cancel()
	cancel() // silent second detach

	if n := s.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount() = %d, want 0", n)
	}
}

func TestViewMode(t *testing.T) {
	packets := []nasa.Packet{testPacket(1), testPacket(2)}
	s := NewView(packets, Config{})

	if s.State() != StateRunning {
		t.Fatalf("view session state = %s, want Running", s.State())
	}

	_, events, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer cancel()

	init := <-events
	if !init.ViewMode {
		t.Fatalf("init event ViewMode = false, want true")
	}
	if len(init.Packets) != 2 {
		t.Fatalf("init snapshot holds %d packets, want 2", len(init.Packets))
	}

	if err := s.Publish(testPacket(3)); err != ErrViewMode {
		t.Fatalf("Publish in view mode = %v, want ErrViewMode", err)
	}
	if err := s.Reset(); err != ErrViewMode {
		t.Fatalf("Reset in view mode = %v, want ErrViewMode", err)
	}
}

func TestResend(t *testing.T) {
	s := New(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Close()

	if err := s.Publish(testPacket(7)); err != nil {
		t.Fatalf("Publish = %v", err)
	}

	id, events, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer cancel()
	<-events // drain init

	if err := s.Resend(id); err != nil {
		t.Fatalf("Resend = %v", err)
	}
	ev := <-events
	if ev.Kind != EventHistory || len(ev.Packets) != 1 {
		t.Fatalf("resend event = %+v, want EventHistory with 1 packet", ev)
	}

	if err := s.Resend(9999); err == nil {
		t.Fatalf("Resend for unknown subscriber should fail")
	}
}

func TestRing(t *testing.T) {
	r := newRing[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	if got := r.Snapshot(); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("ring snapshot = %v, want [2 3]", got)
	}
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", r.Len())
	}

	unbounded := newRing[int](0)
	for i := 0; i < 100; i++ {
		unbounded.Push(i)
	}
	if unbounded.Len() != 100 {
		t.Fatalf("unbounded ring len = %d, want 100", unbounded.Len())
	}
}
