package key25519

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/curve25519"
)

const (
	// KeySize is the byte length of both private and public Curve25519 keys.
	KeySize = 32
)

type (
	// PrivateKey is a clamped 32-byte Curve25519 scalar.
	PrivateKey [KeySize]byte
	// PublicKey is a 32-byte Curve25519 point.
	PublicKey [KeySize]byte
	Pair      struct {
		Priv PrivateKey
		Pub  PublicKey
	}
)

// New generates a fresh private key.
func New() (PrivateKey, error) {
	var priv PrivateKey
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return PrivateKey{}, err
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	return priv, nil
}

// Public derives the public half of the key.
func (priv PrivateKey) Public() (PublicKey, error) {
	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return PublicKey{}, err
	}
	var pub PublicKey
	copy(pub[:], pubBytes)
	return pub, nil
}

// NewPair generates a keypair.
func NewPair() (Pair, error) {
	priv, err := New()
	if err != nil {
		return Pair{}, err
	}
	pub, err := priv.Public()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Priv: priv, Pub: pub}, nil
}

// PublicFromBytes copies b into a PublicKey. It reports false when b is not
// exactly KeySize bytes.
func PublicFromBytes(b []byte) (PublicKey, bool) {
	if len(b) != KeySize {
		return PublicKey{}, false
	}
	var pub PublicKey
	copy(pub[:], b)
	return pub, true
}

// PrivateFromBytes copies b into a PrivateKey. It reports false when b is not
// exactly KeySize bytes.
func PrivateFromBytes(b []byte) (PrivateKey, bool) {
	if len(b) != KeySize {
		return PrivateKey{}, false
	}
	var priv PrivateKey
	copy(priv[:], b)
	return priv, true
}
