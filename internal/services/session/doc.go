// Package session establishes and tracks per-peer conversations.
//
// Each conversation moves through
//
//	Uninitialized -> Established -> (Readdressing -> Established)*
//
// The handshake is two message packets. handshake-init carries the
// initiator's ephemeral exchange key and its signature over the responder's
// identity key and that exchange key. handshake-response carries the
// responder's exchange key, the matching signature, and a confirmation
// subkey of the responder's receive key. The initiator checks both before
// moving to Established.
//
// Session keys live only in memory. Readdress announcements and acceptances
// also pass through here so the trusted key of a peer only changes after its
// old key has signed off on the new one.
package session
