package alice

import (
	"bytes"

	"murmur/crypto"
	"murmur/crypto/dh25519"
	"murmur/crypto/hkdf"
	"murmur/crypto/key25519"
	"murmur/protocol/doubleratchet"
)

// https://signal.org/docs/specifications/x3dh/
// Terminology:
// - Alice: sender
// - Bob: receiver

// CreateInitialMessage performs Alice's half of the handshake: verify the
// fetched bundle, run the four DHs, derive the seed keys, start the ratchet
// with Alice's identity keypair as her first ratchet key, and encrypt the
// first plaintext.
func CreateInitialMessage(idPair key25519.Pair, bundle *PeerBundle, info, plaintext []byte) (*InitialMessage, *doubleratchet.DoubleRatchet, error) {
	// 1. Alice verifies Bob's signature
	if err := bundle.Verify(); err != nil {
		return nil, nil, err
	}

	// 2. Alice generates an ephemeral key pair
	eph, err := key25519.NewPair()
	if err != nil {
		return nil, nil, err
	}

	// 3. Alice computes the shared secrets
	dh1, err := dh25519.GetSecret(idPair.Priv, bundle.SignedPrekey)
	if err != nil {
		return nil, nil, err
	}
	dh2, err := dh25519.GetSecret(eph.Priv, bundle.IdentityKey)
	if err != nil {
		return nil, nil, err
	}
	dh3, err := dh25519.GetSecret(eph.Priv, bundle.SignedPrekey)
	if err != nil {
		return nil, nil, err
	}
	dh4, err := dh25519.GetSecret(eph.Priv, bundle.OneTimePrekey)
	if err != nil {
		return nil, nil, err
	}

	// 4. Alice derives the seed keys
	sk, err := SeedFromDHs(dh1, dh2, dh3, dh4, info)
	if err != nil {
		return nil, nil, err
	}

	// 5. Associated data is initiator identity || responder identity
	ad := AssociatedData(idPair.Pub, bundle.IdentityKey)

	// 6. Init the ratchet and encrypt the first frame
	ratchet, err := doubleratchet.InitAlice(ad, info, &idPair, bundle.SignedPrekey, sk)
	if err != nil {
		return nil, nil, err
	}
	hdr, payload, err := ratchet.Encrypt(plaintext)
	if err != nil {
		return nil, nil, err
	}

	return &InitialMessage{
		IdentityKey:  idPair.Pub,
		PeerKey:      bundle.IdentityKey,
		SignedPrekey: bundle.SignedPrekey,
		EphemeralKey: eph.Pub,
		OneTimeKey:   bundle.OneTimePrekey,
		Header:       hdr,
		Payload:      payload,
	}, ratchet, nil
}

// SeedFromDHs expands the four DH outputs, prefixed by 32 bytes of 0xFF, into
// the three 32-byte seed keys the ratchet consumes. Both sides run this over
// the same material.
func SeedFromDHs(dh1, dh2, dh3, dh4 [32]byte, info []byte) (doubleratchet.SeedKeys, error) {
	var sk doubleratchet.SeedKeys

	ikm := make([]byte, 0, 5*32)
	ikm = append(ikm, bytes.Repeat([]byte{0xff}, 32)...)
	ikm = append(ikm, dh1[:]...)
	ikm = append(ikm, dh2[:]...)
	ikm = append(ikm, dh3[:]...)
	ikm = append(ikm, dh4[:]...)

	okm := make([]byte, 96)
	if _, err := hkdf.KDF(crypto.DefaultHashFunc, ikm, nil, info, okm); err != nil {
		return sk, err
	}
	for i := range sk {
		copy(sk[i][:], okm[i*32:(i+1)*32])
	}
	return sk, nil
}

// AssociatedData fixes the per-session byte string mixed into every MAC:
// initiator identity public followed by responder identity public.
func AssociatedData(initiator, responder key25519.PublicKey) []byte {
	ad := make([]byte, 0, 2*key25519.KeySize)
	ad = append(ad, initiator[:]...)
	return append(ad, responder[:]...)
}
