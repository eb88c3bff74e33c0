package dh25519

import (
	"golang.org/x/crypto/curve25519"

	"murmur/crypto/key25519"
)

// GetSecret performs Curve25519 scalar multiplication of the private key with
// the peer's public key. The all-zero shared secret is rejected.
func GetSecret(priv key25519.PrivateKey, pub key25519.PublicKey) ([32]byte, error) {
	var out [32]byte
	secret, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	return out, nil
}
