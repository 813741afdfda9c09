// Package bridge serializes all remote work through one background
// worker. Any number of synchronous callers submit operations and
// block only on their own operation's completion; the worker owns the
// single remote session for the process lifetime. The realtime channel
// built on top of it pushes remote row changes to local callbacks.
package bridge
