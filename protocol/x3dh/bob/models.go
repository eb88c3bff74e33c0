package bob

import (
	"crypto/rand"
	"errors"
	"io"

	"murmur/crypto/key25519"
	"murmur/crypto/xeddsa"
)

var (
	ErrUnknownSignedPrekey  = errors.New("unknown signed prekey")
	ErrUnknownOneTimePrekey = errors.New("unknown one-time prekey")
)

// SignedPrekey is a prekey pair together with the identity signature over its
// public half.
type SignedPrekey struct {
	Pair      key25519.Pair
	Signature []byte
}

// PrekeyRing is Bob's long-term key material: the identity pair, the current
// and immediately previous signed prekey, and the unused one-time prekeys
// keyed by their public bytes.
type PrekeyRing struct {
	IdentityKey          key25519.Pair
	SignedPrekey         *SignedPrekey
	PreviousSignedPrekey *SignedPrekey
	OneTimePrekeys       map[key25519.PublicKey]key25519.PrivateKey
}

// PublicBundle is the publishable projection of the ring after a rotation.
type PublicBundle struct {
	IdentityKey     key25519.PublicKey
	SignedPrekey    key25519.PublicKey
	SignedPrekeySig []byte
	OneTimeKeys     []key25519.PublicKey
}

func NewPrekeyRing(identity key25519.Pair) *PrekeyRing {
	return &PrekeyRing{
		IdentityKey:    identity,
		OneTimePrekeys: make(map[key25519.PublicKey]key25519.PrivateKey),
	}
}

// Rotate retires the current signed prekey to the previous slot (discarding
// anything older), signs a fresh one with the identity key, and mints n new
// one-time prekeys. In-flight handshakes addressed to the retired prekey keep
// working until the next rotation.
func (r *PrekeyRing) Rotate(n int) (*PublicBundle, error) {
	if r.SignedPrekey != nil {
		r.PreviousSignedPrekey = r.SignedPrekey
	}

	pair, err := key25519.NewPair()
	if err != nil {
		return nil, err
	}
	random := make([]byte, xeddsa.RandomSize)
	if _, err := io.ReadFull(rand.Reader, random); err != nil {
		return nil, err
	}
	sig, err := xeddsa.Sign(r.IdentityKey.Priv, pair.Pub[:], random)
	if err != nil {
		return nil, err
	}
	r.SignedPrekey = &SignedPrekey{Pair: pair, Signature: sig}

	oneTime := make([]key25519.PublicKey, 0, n)
	for i := 0; i < n; i++ {
		otp, err := key25519.NewPair()
		if err != nil {
			return nil, err
		}
		r.OneTimePrekeys[otp.Pub] = otp.Priv
		oneTime = append(oneTime, otp.Pub)
	}

	return &PublicBundle{
		IdentityKey:     r.IdentityKey.Pub,
		SignedPrekey:    r.SignedPrekey.Pair.Pub,
		SignedPrekeySig: r.SignedPrekey.Signature,
		OneTimeKeys:     oneTime,
	}, nil
}

// signedPrekeyFor resolves which signed prekey private the sender addressed.
func (r *PrekeyRing) signedPrekeyFor(pub key25519.PublicKey) (*SignedPrekey, error) {
	if r.SignedPrekey != nil && r.SignedPrekey.Pair.Pub == pub {
		return r.SignedPrekey, nil
	}
	if r.PreviousSignedPrekey != nil && r.PreviousSignedPrekey.Pair.Pub == pub {
		return r.PreviousSignedPrekey, nil
	}
	return nil, ErrUnknownSignedPrekey
}
