// Package app wires application dependencies for the CLI.
//
// It builds the crypto provider, the keyring and contact stores, the
// protocol codecs and the identity, session and message services from
// Config, exposing them via the Wire struct for commands to use.
package app
