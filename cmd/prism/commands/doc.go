// Package commands defines the prism CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - whoami         Print the public key and fingerprint
//   - contact        Add and list named peers
//   - write          Seal a one-off message packet for a peer
//   - read           Open a message packet addressed to us
//   - chat           Handshake with a peer and chat through a relay
//   - retire         Forget the identity superseded by a readdress
//
// # Implementation
//
// The root command builds the dependency graph (stores, services, relay
// client) from the persistent flags before any subcommand runs. Session keys
// live only in memory, so relayed conversations happen inside a single chat
// process; write and read work offline on individual packets.
package commands
