package doubleratchet

import (
	"murmur/crypto/key25519"
)

type (
	MsgIndex uint32
	Key      [32]byte
	MsgKey   [32]byte
)

// SeedKeys are the three 32-byte secrets produced by the X3DH handshake, in
// order: root key seed, initiator header key, responder next header key.
type SeedKeys [3]Key

// SkippedKey is one buffered message key for an out-of-order message,
// remembered together with the header key of its epoch.
type SkippedKey struct {
	HeaderKey Key
	N         MsgIndex
	MsgKey    MsgKey
}

// State ref: https://signal.org/docs/specifications/doubleratchet/#state-variables
// (header-encryption variant).
type State struct {
	// Ad is the associated data fixed at session init:
	// initiator identity pub || responder identity pub.
	Ad []byte
	// Info is the domain-separation label for every KDF invocation.
	Info []byte
	// Dhs is the DH ratchet key pair (the "sending" or "self" ratchet key).
	Dhs key25519.Pair
	// Dhr is the DH ratchet public key (the "received" or "remote" key).
	// Not initialized at the beginning for Bob.
	Dhr *key25519.PublicKey
	// Rk is the 32-byte root key.
	Rk Key
	// Cks and Ckr are 32-byte chain keys for sending and receiving.
	// Cks is not initialized at the beginning for Bob;
	// Ckr is not initialized at the beginning for both Bob and Alice.
	Cks, Ckr *Key
	// Ns and Nr are message numbers for sending and receiving.
	Ns, Nr MsgIndex
	// Pn is the number of messages in the previous sending chain.
	Pn MsgIndex
	// Hks and Hkr are the current header keys. Hks is set at init for Alice
	// and by the first DH ratchet step for Bob; Hkr is nil until the first
	// successful decrypt.
	Hks, Hkr *Key
	// Nhks and Nhkr are the next header keys, rotated in on each DH step.
	Nhks, Nhkr Key
	// Skipped is the ordered buffer of message keys for skipped-over
	// messages: append on skip, linear scan on decrypt, remove on hit.
	Skipped []SkippedKey
}

// clone copies the state so a decrypt can proceed on a shadow object and
// commit only on full success. Key pointers are never written through, only
// replaced, so a shallow copy plus a fresh skipped slice is enough.
func (s *State) clone() *State {
	sc := *s
	sc.Skipped = append([]SkippedKey(nil), s.Skipped...)
	return &sc
}
