package monitor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock advances instantly and records every sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// fakeElement is a trivial ElementHandle.
type fakeElement struct {
	text string
}

func (e *fakeElement) Text() string { return e.text }

// cycleScript drives one check cycle of a fakeSession.
type cycleScript struct {
	navErr      error
	findMissing bool
	elements    []string
	pageText    string
}

// fakeSession replays one cycleScript per Navigate call; the last script is
// sticky so extra cycles repeat it.
type fakeSession struct {
	mu      sync.Mutex
	scripts []cycleScript
	cycle   int
	closed  bool
}

func (s *fakeSession) current() cycleScript {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.cycle - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	return s.scripts[idx]
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error {
	s.mu.Lock()
	s.cycle++
	s.mu.Unlock()
	return s.current().navErr
}

func (s *fakeSession) FindByText(_ context.Context, substring string, _ time.Duration) (ElementHandle, error) {
	if s.current().findMissing {
		return nil, ErrElementNotFound
	}
	return &fakeElement{text: substring}, nil
}

func (s *fakeSession) ListInteractiveElements(_ context.Context) ([]ElementHandle, error) {
	texts := s.current().elements
	handles := make([]ElementHandle, 0, len(texts))
	for _, text := range texts {
		handles = append(handles, &fakeElement{text: text})
	}
	return handles, nil
}

func (s *fakeSession) Click(_ context.Context, _ ElementHandle) error {
	return nil
}

func (s *fakeSession) PageText(_ context.Context) (string, error) {
	return s.current().pageText, nil
}

func (s *fakeSession) CurrentURL(_ context.Context) (string, error) {
	return "https://particulares.cliente.edp.pt/beneficios/detalhe/1197", nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeFactory pops one outcome per NewSession call; the last outcome is
// sticky.
type fakeFactory struct {
	mu       sync.Mutex
	sessions []PageSession
	errs     []error
	calls    int
}

func (f *fakeFactory) NewSession(_ context.Context) (PageSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if len(f.sessions) == 0 {
		return nil, errors.New("no session scripted")
	}
	if idx >= len(f.sessions) {
		idx = len(f.sessions) - 1
	}
	return f.sessions[idx], nil
}

// sentMessage is one recorded notification.
type sentMessage struct {
	topic   string
	title   string
	message string
}

// fakeNotifier records every send.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, topic, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{topic: topic, title: title, message: message})
	return n.err
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.title)
	}
	return out
}

func (n *fakeNotifier) countTitle(title string) int {
	count := 0
	for _, t := range n.titles() {
		if t == title {
			count++
		}
	}
	return count
}
