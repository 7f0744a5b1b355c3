package eventbus

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tutor-voice-server/internal/platform/logging"
	testutil "tutor-voice-server/internal/platform/testing"
)

func TestAsyncDelivery(t *testing.T) {
	bus := NewAsyncEventBus(2, 10, logging.NewNop())
	bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var got []SpeakEventData
	if err := bus.Subscribe(EventSpeakCompleted, func(d SpeakEventData) {
		mu.Lock()
		got = append(got, d)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		bus.PublishAsync(EventSpeakCompleted, SpeakEventData{CacheKey: "k", LatencyMs: int64(i)})
	}
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 5 {
		t.Fatalf("delivered %d events, want 5", len(got))
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	bus := NewAsyncEventBus(1, 1, logging.NewNop())
	// Workers not started: the queue holds one event and drops the rest.
	bus.PublishAsync(EventSpeakFailed, SpeakEventData{})
	bus.PublishAsync(EventSpeakFailed, SpeakEventData{})
	bus.PublishAsync(EventSpeakFailed, SpeakEventData{})

	if bus.Dropped() != 2 {
		t.Fatalf("Dropped() = %d, want 2", bus.Dropped())
	}
	bus.Start()
	bus.WaitAsync()
	bus.Stop()
}

func TestStopDrainsQueue(t *testing.T) {
	bus := NewAsyncEventBus(1, 10, logging.NewNop())
	var n atomic.Int32
	_ = bus.Subscribe(EventListenCompleted, func(ListenEventData) {
		time.Sleep(time.Millisecond)
		n.Add(1)
	})
	for i := 0; i < 5; i++ {
		bus.PublishAsync(EventListenCompleted, ListenEventData{})
	}
	bus.Start()
	bus.Stop()

	if n.Load() != 5 {
		t.Fatalf("handled %d events before stop, want 5", n.Load())
	}

	bus.PublishAsync(EventListenCompleted, ListenEventData{})
	if bus.Dropped() != 1 {
		t.Fatalf("publish after stop must be dropped")
	}
	bus.Stop()
}

func TestPanickingHandlerDoesNotKillWorker(t *testing.T) {
	bus := NewAsyncEventBus(1, 10, logging.NewNop())
	bus.Start()
	defer bus.Stop()

	var calls atomic.Int32
	_ = bus.Subscribe(EventCacheWriteFailed, func(CacheEventData) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})
	bus.PublishAsync(EventCacheWriteFailed, CacheEventData{})
	bus.PublishAsync(EventCacheWriteFailed, CacheEventData{})
	bus.WaitAsync()

	if calls.Load() != 2 {
		t.Fatalf("worker stopped after panic, calls=%d", calls.Load())
	}
}

func TestLogHandlerRegister(t *testing.T) {
	bus := NewAsyncEventBus(1, 10, logging.NewNop())
	if err := NewLogHandler(testutil.SetupTestLogger(t)).Register(bus); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for _, topic := range []string{EventSpeakCompleted, EventSpeakFailed, EventLipSyncDegraded, EventCacheWriteFailed, EventListenCompleted} {
		if !bus.HasCallback(topic) {
			t.Fatalf("no subscriber for %s", topic)
		}
	}
	bus.Start()
	bus.PublishAsync(EventSpeakFailed, SpeakEventData{CacheKey: "k", ErrorKind: "dependency"})
	bus.WaitAsync()
	bus.Stop()
}

func TestLogHandlerWritesStructuredFields(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.New(logging.Config{Level: "info", Dir: dir, Filename: "events.log"})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	h := NewLogHandler(logger)

	h.handleSpeakCompleted(SpeakEventData{CacheKey: "abc123", CacheHit: true, Voice: "nova", LatencyMs: 12})
	h.handleSpeakFailed(SpeakEventData{CacheKey: "def456", ErrorKind: "dependency", Error: "upstream 100% busy"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "events.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(raw)
	for _, want := range []string{
		`"cache_key":"abc123"`,
		`"cache_hit":true`,
		`"voice":"nova"`,
		`"error_kind":"dependency"`,
		`"error":"upstream 100% busy"`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("log is missing %s:\n%s", want, content)
		}
	}
}
