package client

import (
	"murmur/crypto/key25519"
	"murmur/protocol/doubleratchet"
	"murmur/protocol/x3dh/bob"
)

// Directory is the per-client bookkeeping: the long-term identity pair, the
// prekey ring (current and previous signed prekey plus unused one-time
// prekeys), and the ratchet sessions keyed by relay-minted session id. All
// operations on one session are serialized by the owning client; sessions are
// independent of each other.
type Directory struct {
	Identity key25519.Pair
	Ring     *bob.PrekeyRing
	sessions map[string]*doubleratchet.DoubleRatchet
}

func NewDirectory(identity key25519.Pair) *Directory {
	return &Directory{
		Identity: identity,
		Ring:     bob.NewPrekeyRing(identity),
		sessions: make(map[string]*doubleratchet.DoubleRatchet),
	}
}

// Register owns the session under its id for the lifetime of the client.
func (d *Directory) Register(sid string, session *doubleratchet.DoubleRatchet) {
	d.sessions[sid] = session
}

// Session looks up the ratchet session for a session id.
func (d *Directory) Session(sid string) (*doubleratchet.DoubleRatchet, bool) {
	session, ok := d.sessions[sid]
	return session, ok
}
