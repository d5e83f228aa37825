// Package relay implements Prism's store-and-forward relay: the HTTP client
// used by peers, the mux-routed server, and the mailbox queues behind it.
//
// Mailboxes are named by the recipient's public-key fingerprint. The relay
// only ever handles opaque wire strings; it never sees plaintext, private
// keys or even sender identities.
//
// HTTP API
//
//	POST /mailbox/{box}
//	    Enqueue an Envelope for {box}. A zero Timestamp is filled with the
//	    server's clock in Unix milliseconds. Replies 202.
//
//	GET /mailbox/{box}?limit=N
//	    Return up to N queued Envelopes, oldest first. A missing or zero
//	    limit returns everything queued.
//
//	POST /mailbox/{box}/ack { "count": N }
//	    Drop the first N queued envelopes. Replies 204.
//
// Two queues are provided: MemoryQueue, lost on exit, and RedisQueue, which
// keeps each mailbox in a Redis list.
//
// All client requests accept a context for cancellation and deadlines.
// Non-2xx statuses are returned as errors with the HTTP method, path and
// status text to aid diagnostics.
package relay
