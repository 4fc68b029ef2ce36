package alert

import (
	"context"
	"sync"
)

// Sent is one message recorded by FakeNotifier.
type Sent struct {
	Subject string
	Body    string
}

// FakeNotifier records messages for test assertions. It is safe for
// concurrent use because alerts are sent off the main loop.
type FakeNotifier struct {
	mu    sync.Mutex
	sent  []Sent
	Err   error
	calls chan struct{}
}

// NewFakeNotifier creates a FakeNotifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{calls: make(chan struct{}, 64)}
}

// Notify records the message and returns Err.
func (f *FakeNotifier) Notify(_ context.Context, subject, body string) error {
	f.mu.Lock()
	f.sent = append(f.sent, Sent{Subject: subject, Body: body})
	err := f.Err
	f.mu.Unlock()

	select {
	case f.calls <- struct{}{}:
	default:
	}
	return err
}

// Calls signals once per Notify call.
func (f *FakeNotifier) Calls() <-chan struct{} {
	return f.calls
}

// Sent returns a copy of the recorded messages.
func (f *FakeNotifier) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}
