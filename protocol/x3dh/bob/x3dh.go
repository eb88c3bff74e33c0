package bob

import (
	"murmur/crypto/dh25519"
	"murmur/protocol/doubleratchet"
	"murmur/protocol/x3dh/alice"
)

// https://signal.org/docs/specifications/x3dh/
// Terminology:
// - Alice: sender
// - Bob: receiver

// AcceptInitialMessage performs Bob's half of the handshake: resolve the
// signed prekey and one-time prekey the sender addressed, mirror the four
// DHs, start the responder ratchet with the selected signed prekey as its
// ratchet keypair, and decrypt the first frame. The one-time prekey is
// removed only once the decrypt succeeded; removal is the single-use commit.
func AcceptInitialMessage(ring *PrekeyRing, msg *alice.InitialMessage, info []byte) ([]byte, *doubleratchet.DoubleRatchet, error) {
	// 1. Select the signed prekey the sender used
	spk, err := ring.signedPrekeyFor(msg.SignedPrekey)
	if err != nil {
		return nil, nil, err
	}

	// 2. Locate the one-time prekey
	opkPriv, ok := ring.OneTimePrekeys[msg.OneTimeKey]
	if !ok {
		return nil, nil, ErrUnknownOneTimePrekey
	}

	// 3. Bob computes the mirror shared secrets
	dh1, err := dh25519.GetSecret(spk.Pair.Priv, msg.IdentityKey)
	if err != nil {
		return nil, nil, err
	}
	dh2, err := dh25519.GetSecret(ring.IdentityKey.Priv, msg.EphemeralKey)
	if err != nil {
		return nil, nil, err
	}
	dh3, err := dh25519.GetSecret(spk.Pair.Priv, msg.EphemeralKey)
	if err != nil {
		return nil, nil, err
	}
	dh4, err := dh25519.GetSecret(opkPriv, msg.EphemeralKey)
	if err != nil {
		return nil, nil, err
	}

	// 4. Bob derives the same seed keys
	sk, err := alice.SeedFromDHs(dh1, dh2, dh3, dh4, info)
	if err != nil {
		return nil, nil, err
	}

	// 5. Associated data is built from the message's identity key and Bob's own
	ad := alice.AssociatedData(msg.IdentityKey, ring.IdentityKey.Pub)

	// 6. Init the responder ratchet and decrypt the first frame
	ratchet, err := doubleratchet.InitBob(ad, info, &spk.Pair, sk)
	if err != nil {
		return nil, nil, err
	}
	plaintext, err := ratchet.Decrypt(msg.Header, msg.Payload)
	if err != nil {
		return nil, nil, err
	}

	delete(ring.OneTimePrekeys, msg.OneTimeKey)
	return plaintext, ratchet, nil
}
