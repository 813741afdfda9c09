package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifier is an in-memory Notifier standing in for *pq.Listener.
type fakeNotifier struct {
	mu        sync.Mutex
	ch        chan *pq.Notification
	listening map[string]bool
	closed    bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		ch:        make(chan *pq.Notification, 8),
		listening: make(map[string]bool),
	}
}

func (f *fakeNotifier) Listen(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening[channel] = true
	return nil
}

func (f *fakeNotifier) Unlisten(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listening, channel)
	return nil
}

func (f *fakeNotifier) NotificationChannel() <-chan *pq.Notification {
	return f.ch
}

func (f *fakeNotifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func (f *fakeNotifier) isListening(channel string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening[channel]
}

func (f *fakeNotifier) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeNotifier) publish(table, payload string) {
	f.ch <- &pq.Notification{Channel: feedPrefix + table, Extra: payload}
}

func newTestChannel(t *testing.T) (*Channel, *fakeNotifier, *Bridge) {
	t.Helper()
	b, _, _ := newTestBridge(t)
	require.NoError(t, b.Init(context.Background()))
	n := newFakeNotifier()
	return NewChannel(n, b), n, b
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestChannel_SubscribeListensWithPrefix(t *testing.T) {
	ch, n, b := newTestChannel(t)
	defer b.Shutdown()

	require.NoError(t, ch.Subscribe("ledger_entries", func(Event) {}))
	assert.True(t, n.isListening("agrobook_changes_ledger_entries"))
}

func TestChannel_DuplicateSubscribeRejected(t *testing.T) {
	ch, _, b := newTestChannel(t)
	defer b.Shutdown()

	require.NoError(t, ch.Subscribe("ledger_entries", func(Event) {}))
	err := ch.Subscribe("ledger_entries", func(Event) {})
	assert.Error(t, err, "one underlying subscription per table")
}

func TestChannel_DispatchesDecodedEvent(t *testing.T) {
	ch, n, b := newTestChannel(t)
	defer b.Shutdown()

	events := make(chan Event, 1)
	require.NoError(t, ch.Subscribe("ledger_entries", func(ev Event) {
		events <- ev
	}))

	n.publish("ledger_entries", `{"action":"INSERT","record":{"id":7}}`)

	ev := waitEvent(t, events)
	assert.Equal(t, "INSERT", ev.Kind)
	assert.Equal(t, "ledger_entries", ev.Table)
	assert.JSONEq(t, `{"id":7}`, string(ev.Record))
}

func TestChannel_KindFallsBackToWildcard(t *testing.T) {
	ch, n, b := newTestChannel(t)
	defer b.Shutdown()

	events := make(chan Event, 1)
	require.NoError(t, ch.Subscribe("ledger_entries", func(ev Event) {
		events <- ev
	}))

	// No action/eventType/type key: wildcard kind, whole payload as record.
	n.publish("ledger_entries", `{"id":7,"memo":"sem tipo"}`)

	ev := waitEvent(t, events)
	assert.Equal(t, "*", ev.Kind)
	assert.JSONEq(t, `{"id":7,"memo":"sem tipo"}`, string(ev.Record))
}

func TestChannel_AlternateKindKeys(t *testing.T) {
	ch, n, b := newTestChannel(t)
	defer b.Shutdown()

	events := make(chan Event, 2)
	require.NoError(t, ch.Subscribe("ledger_entries", func(ev Event) {
		events <- ev
	}))

	n.publish("ledger_entries", `{"eventType":"UPDATE","record":{"id":1}}`)
	assert.Equal(t, "UPDATE", waitEvent(t, events).Kind)

	n.publish("ledger_entries", `{"type":"DELETE","record":{"id":1}}`)
	assert.Equal(t, "DELETE", waitEvent(t, events).Kind)
}

func TestChannel_IgnoresUnsubscribedTable(t *testing.T) {
	ch, n, b := newTestChannel(t)
	defer b.Shutdown()

	events := make(chan Event, 2)
	require.NoError(t, ch.Subscribe("ledger_entries", func(ev Event) {
		events <- ev
	}))

	n.ch <- &pq.Notification{Channel: feedPrefix + "other_table", Extra: `{"action":"INSERT"}`}
	n.ch <- nil // pq emits nil after reconnect
	n.publish("ledger_entries", `{"action":"INSERT","record":{"id":1}}`)

	ev := waitEvent(t, events)
	assert.Equal(t, "ledger_entries", ev.Table, "only the subscribed table is dispatched")
	select {
	case extra := <-events:
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannel_ShutdownUnsubscribes(t *testing.T) {
	ch, n, b := newTestChannel(t)

	require.NoError(t, ch.Subscribe("ledger_entries", func(Event) {}))
	b.Shutdown()

	assert.False(t, n.isListening("agrobook_changes_ledger_entries"))
	assert.True(t, n.isClosed(), "notifier should be closed on shutdown")
}
