// Package message sends and receives protocol traffic through a relay.
//
// Handshakes travel as message packets; text messages and readdress
// announcements travel as transport packets encrypted under the
// conversation's session keys. Receive drains the mailboxes of the current
// and any superseded identity, dispatches each envelope by kind and packet
// type, and acks everything it fetched: a packet that fails to open is
// logged and dropped, never retried.
package message
