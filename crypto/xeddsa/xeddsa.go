package xeddsa

import (
	"bytes"
	"crypto/sha512"
	"errors"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"

	"murmur/crypto/key25519"
)

// https://signal.org/docs/specifications/xeddsa/
//
// The same Curve25519 key that performs X25519 agreements also signs. The
// Montgomery private scalar is mapped onto the twisted Edwards curve, the sign
// bit of the derived public point is forced to zero by negating the scalar,
// and verification reconstructs the Edwards public key from the Montgomery u
// coordinate via y = (u-1)/(u+1).

const (
	// SignatureSize is the byte length of a signature.
	SignatureSize = 64
	// RandomSize is the number of random bytes one signing operation consumes.
	RandomSize = 64
)

var (
	ErrInvalidRandomLength = errors.New("invalid random length")

	// hash_1 domain separator: 2^256 - 2, little-endian.
	signPrefix = append([]byte{0xfe}, bytes.Repeat([]byte{0xff}, 31)...)
)

// Sign signs msg with the Curve25519 private key, consuming exactly 64 random
// bytes. The result is a 64-byte signature R || s.
func Sign(priv key25519.PrivateKey, msg []byte, random []byte) ([]byte, error) {
	if len(random) != RandomSize {
		return nil, ErrInvalidRandomLength
	}

	a, err := new(edwards25519.Scalar).SetBytesWithClamping(priv[:])
	if err != nil {
		return nil, err
	}
	aPub := new(edwards25519.Point).ScalarBaseMult(a)
	aPubBytes := aPub.Bytes()
	if aPubBytes[31]&0x80 != 0 {
		a.Negate(a)
		aPubBytes[31] &= 0x7f
	}

	h := sha512.New()
	h.Write(signPrefix)
	h.Write(a.Bytes())
	h.Write(msg)
	h.Write(random)
	r, err := new(edwards25519.Scalar).SetUniformBytes(h.Sum(nil))
	if err != nil {
		return nil, err
	}
	rPubBytes := new(edwards25519.Point).ScalarBaseMult(r).Bytes()

	h.Reset()
	h.Write(rPubBytes)
	h.Write(aPubBytes)
	h.Write(msg)
	k, err := new(edwards25519.Scalar).SetUniformBytes(h.Sum(nil))
	if err != nil {
		return nil, err
	}

	s := new(edwards25519.Scalar).MultiplyAdd(k, a, r)

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, rPubBytes...)
	sig = append(sig, s.Bytes()...)
	return sig, nil
}

// Verify reports whether sig is a valid signature of msg by the Curve25519
// public key. Verification is deterministic.
func Verify(pub key25519.PublicKey, msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}

	aPubBytes, ok := edwardsFromMontgomery(pub)
	if !ok {
		return false
	}
	aPub, err := new(edwards25519.Point).SetBytes(aPubBytes)
	if err != nil {
		return false
	}
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	h := sha512.New()
	h.Write(sig[:32])
	h.Write(aPubBytes)
	h.Write(msg)
	k, err := new(edwards25519.Scalar).SetUniformBytes(h.Sum(nil))
	if err != nil {
		return false
	}

	// Check R == s*B - k*A.
	negA := new(edwards25519.Point).Negate(aPub)
	rCheck := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(k, negA, s)
	return bytes.Equal(rCheck.Bytes(), sig[:32])
}

// edwardsFromMontgomery maps the Montgomery u coordinate onto the Edwards
// curve with a zero sign bit.
func edwardsFromMontgomery(pub key25519.PublicKey) ([]byte, bool) {
	u, err := new(field.Element).SetBytes(pub[:])
	if err != nil {
		return nil, false
	}
	one := new(field.Element).One()
	denom := new(field.Element).Add(u, one)
	if denom.Equal(new(field.Element).Zero()) == 1 {
		return nil, false
	}
	y := new(field.Element).Multiply(
		new(field.Element).Subtract(u, one),
		new(field.Element).Invert(denom),
	)
	return y.Bytes(), true
}
