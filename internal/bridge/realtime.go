package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Event is one remote row mutation delivered by the change feed.
type Event struct {
	// Kind is the change kind (INSERT, UPDATE, DELETE), or "*" when the
	// notification did not specify one.
	Kind string
	// Table is the remote table the change happened on.
	Table string
	// Record is the raw changed row as published by the backend.
	Record json.RawMessage
}

// Callback receives one change event. It runs on its own goroutine.
type Callback func(Event)

// Notifier is the LISTEN/NOTIFY surface the channel consumes.
// *pq.Listener satisfies it.
type Notifier interface {
	Listen(channel string) error
	Unlisten(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// feedPrefix namespaces the Postgres notification channels the backend
// triggers publish on: one channel per table, all event kinds.
const feedPrefix = "agrobook_changes_"

// Channel is the realtime change feed: one underlying subscription per
// table per process lifetime, each event dispatched to the
// application-supplied callback on a fresh goroutine.
//
// Dispatch is fire-and-forget: there is no ordering guarantee between
// overlapping callback invocations and no backpressure when callbacks
// run slower than events arrive. Known limitation; a bounded worker
// pool is the eventual fix.
type Channel struct {
	notifier Notifier

	mu        sync.Mutex
	callbacks map[string]Callback // table -> callback
	started   bool
}

// NewChannel wraps a notifier. The channel registers its
// unsubscriptions with the bridge so Shutdown tears the feed down
// within the shutdown budget.
func NewChannel(notifier Notifier, b *Bridge) *Channel {
	ch := &Channel{
		notifier:  notifier,
		callbacks: make(map[string]Callback),
	}
	b.RegisterCleanup(ch.unsubscribeAll)
	return ch
}

// NewListener dials a pq.Listener suitable for NewChannel.
func NewListener(dsn string) *pq.Listener {
	return pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("change feed listener event", "event", int(ev), "err", err)
		}
	})
}

// Subscribe starts the feed for a table. Exactly one underlying
// subscription exists per table: a second Subscribe for the same table
// is rejected.
func (c *Channel) Subscribe(table string, fn Callback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.callbacks[table]; dup {
		return fmt.Errorf("change feed: already subscribed to %s", table)
	}
	if err := c.notifier.Listen(feedPrefix + table); err != nil {
		return fmt.Errorf("change feed: listen %s: %w", table, err)
	}
	c.callbacks[table] = fn

	if !c.started {
		c.started = true
		go c.loop()
	}
	return nil
}

// loop drains notifications and dispatches callbacks. The loop itself
// never runs callback work, so slow callbacks cannot stall event
// processing.
func (c *Channel) loop() {
	for n := range c.notifier.NotificationChannel() {
		if n == nil {
			// pq delivers nil after a reconnect; nothing to dispatch.
			continue
		}
		table := strings.TrimPrefix(n.Channel, feedPrefix)

		c.mu.Lock()
		fn := c.callbacks[table]
		c.mu.Unlock()
		if fn == nil {
			continue
		}

		ev := decodeEvent(table, []byte(n.Extra))
		go fn(ev)
	}
}

// decodeEvent extracts the change kind and record from the
// notification payload, falling back to the wildcard kind when the
// payload carries none.
func decodeEvent(table string, payload []byte) Event {
	var body struct {
		Action    string          `json:"action"`
		EventType string          `json:"eventType"`
		Type      string          `json:"type"`
		Record    json.RawMessage `json:"record"`
	}
	ev := Event{Kind: "*", Table: table, Record: payload}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ev
	}
	switch {
	case body.Action != "":
		ev.Kind = body.Action
	case body.EventType != "":
		ev.Kind = body.EventType
	case body.Type != "":
		ev.Kind = body.Type
	}
	if len(body.Record) > 0 {
		ev.Record = body.Record
	}
	return ev
}

// unsubscribeAll unlistens every table and closes the notifier.
// Invoked by Bridge.Shutdown inside the shutdown budget.
func (c *Channel) unsubscribeAll(ctx context.Context) error {
	c.mu.Lock()
	tables := make([]string, 0, len(c.callbacks))
	for t := range c.callbacks {
		tables = append(tables, t)
	}
	c.callbacks = make(map[string]Callback)
	c.mu.Unlock()

	var firstErr error
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.notifier.Unlisten(feedPrefix + t); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.notifier.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
