// Package main runs the Prism store-and-forward relay. It queues opaque
// envelopes per recipient mailbox until the recipient fetches and
// acknowledges them. See package prism/internal/relay for the HTTP API.
//
// Behaviour
//
//   - Without --redis, state is held in memory and lost on process exit.
//   - With --redis, each mailbox is a Redis list and survives restarts.
//   - Each request is written to the access log with method, path, status
//     and duration.
//   - The default listen address is :8080.
//
// The relay never sees plaintext, private keys or sender identities; it only
// stores ciphertext addressed to key fingerprints.
package main
