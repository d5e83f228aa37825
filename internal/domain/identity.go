package domain

// Identity is a party's long-term key pair. Values are immutable: rotation
// produces a new Identity whose Supersedes names the key it replaces.
type Identity struct {
	Public     PublicKey  `json:"publicKey"`
	Private    PrivateKey `json:"privateKey"`
	Supersedes *PublicKey `json:"supersedes,omitempty"`
}

// Keyring holds the current identity and, during a readdress, the identity it
// superseded. The previous identity is kept only until in-flight exchanges
// drain.
type Keyring struct {
	Current  Identity  `json:"current"`
	Previous *Identity `json:"previous,omitempty"`
}

// Fingerprint is a short identifier for public keys presented to users and
// used to name relay mailboxes.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }
