package alice

import (
	"errors"

	"murmur/crypto/key25519"
	"murmur/crypto/xeddsa"
)

var (
	ErrInvalidBundleSignature = errors.New("invalid bundle signature")
)

// PeerBundle is the prekey bundle Alice fetched from the relay: Bob's signed
// prekey with its signature and one popped one-time prekey.
type PeerBundle struct {
	IdentityKey     key25519.PublicKey
	SignedPrekey    key25519.PublicKey
	SignedPrekeySig []byte
	OneTimePrekey   key25519.PublicKey
}

// Verify checks the signed-prekey signature against the bundle's identity key.
func (b *PeerBundle) Verify() error {
	if !xeddsa.Verify(b.IdentityKey, b.SignedPrekey[:], b.SignedPrekeySig) {
		return ErrInvalidBundleSignature
	}
	return nil
}

// InitialMessage carries everything the responder needs to mirror the
// handshake, plus the first ratchet-encrypted frame.
type InitialMessage struct {
	// IdentityKey is Alice's identity public, reused as her first ratchet key.
	IdentityKey key25519.PublicKey
	// PeerKey is Bob's identity public, naming the addressee.
	PeerKey key25519.PublicKey
	// SignedPrekey echoes which of Bob's signed prekeys the handshake used.
	SignedPrekey key25519.PublicKey
	EphemeralKey key25519.PublicKey
	OneTimeKey   key25519.PublicKey
	Header       []byte
	Payload      []byte
}
