package doubleratchet

import (
	"errors"

	"murmur/crypto/key25519"
	"murmur/protocol/authcrypt"
	"murmur/protocol/header"
)

const (
	// MaxSkip is the maximum number of message keys a single decrypt may skip.
	MaxSkip = 10
)

// https://signal.org/docs/specifications/doubleratchet/#double-ratchet-with-header-encryption
type DoubleRatchet struct {
	CurrentState *State
}

func newDoubleRatchet(initState *State) *DoubleRatchet {
	return &DoubleRatchet{CurrentState: initState}
}

// InitAlice initializes the session for the handshake initiator. The remote
// ratchet public is known up front, so the first sending chain and the send
// header key exist immediately.
func InitAlice(ad, info []byte, own *key25519.Pair, remoteRatchetPub key25519.PublicKey, sk SeedKeys) (*DoubleRatchet, error) {
	pair, err := ownOrFreshPair(own)
	if err != nil {
		return nil, err
	}

	remote := remoteRatchetPub
	st := &State{
		Ad:   ad,
		Info: info,
		Dhs:  pair,
		Dhr:  &remote,
		Rk:   sk[0],
	}

	dhOut, err := dh(st.Dhs.Priv, *st.Dhr)
	if err != nil {
		return nil, err
	}
	rk, cks, nhks, err := kdfRk(st.Rk, dhOut, info)
	if err != nil {
		return nil, err
	}
	st.Rk = rk
	st.Cks = &cks
	st.Nhks = nhks

	hks := sk[1]
	st.Hks = &hks
	st.Nhkr = sk[2]

	return newDoubleRatchet(st), nil
}

// InitBob initializes the session for the handshake responder. Bob cannot
// send until his first successful decrypt performs a DH ratchet step and
// creates the sending chain.
func InitBob(ad, info []byte, own *key25519.Pair, sk SeedKeys) (*DoubleRatchet, error) {
	pair, err := ownOrFreshPair(own)
	if err != nil {
		return nil, err
	}

	st := &State{
		Ad:   ad,
		Info: info,
		Dhs:  pair,
		Rk:   sk[0],
		Nhkr: sk[1],
		Nhks: sk[2],
	}
	return newDoubleRatchet(st), nil
}

// RatchetPub returns the session's current ratchet public key, so the
// initiator can embed it in its first header.
func (dr *DoubleRatchet) RatchetPub() key25519.PublicKey {
	return dr.CurrentState.Dhs.Pub
}

// Encrypt performs a symmetric-key ratchet step, encrypts the header under
// the current send header key and the plaintext under the resulting message
// key. The payload is bound to the associated data and to the encrypted
// header bytes.
func (dr *DoubleRatchet) Encrypt(plaintext []byte) (encHeader, payload []byte, err error) {
	s := dr.CurrentState
	if s.Cks == nil || s.Hks == nil {
		return nil, nil, ErrNotReady
	}

	ck, mk := kdfCk(*s.Cks)

	h := header.Header{
		RatchetPub: s.Dhs.Pub,
		PN:         uint32(s.Pn),
		N:          uint32(s.Ns),
	}
	encHeader, err = header.Seal(h, s.Hks[:], s.Info)
	if err != nil {
		return nil, nil, err
	}
	payload, err = authcrypt.Encrypt(mk[:], s.Info, payloadNonce(s.Ad, encHeader), plaintext)
	if err != nil {
		return nil, nil, err
	}

	s.Cks = &ck
	s.Ns++
	return encHeader, payload, nil
}

// Decrypt tries, in order: the skipped-key buffer, the current receive header
// key, and the next receive header key (which implies a DH ratchet step). Any
// failure leaves the session state untouched; all mutations of a non-skipped
// decrypt happen on a shadow state that is swapped in only after the payload
// decrypted successfully.
func (dr *DoubleRatchet) Decrypt(encHeader, payload []byte) ([]byte, error) {
	s := dr.CurrentState

	// 1. Is the message one of the skipped?
	for i := range s.Skipped {
		entry := s.Skipped[i]
		h, err := header.Open(encHeader, entry.HeaderKey[:], s.Info)
		if err != nil || MsgIndex(h.N) != entry.N {
			continue
		}
		plaintext, err := authcrypt.Decrypt(entry.MsgKey[:], s.Info, payloadNonce(s.Ad, encHeader), payload)
		if err != nil {
			return nil, err
		}
		s.Skipped = append(append([]SkippedKey(nil), s.Skipped[:i]...), s.Skipped[i+1:]...)
		return plaintext, nil
	}

	// 2. Current epoch.
	if s.Hkr != nil {
		h, err := header.Open(encHeader, s.Hkr[:], s.Info)
		if err == nil {
			return dr.commitDecrypt(s.clone(), h, encHeader, payload)
		}
		if errors.Is(err, header.ErrBadHeaderLayout) {
			return nil, err
		}
	}

	// 3. Next epoch: a successful open under Nhkr announces a DH ratchet step.
	h, err := header.Open(encHeader, s.Nhkr[:], s.Info)
	if err != nil {
		if errors.Is(err, header.ErrBadHeaderLayout) {
			return nil, err
		}
		return nil, ErrHeaderDecryptFailed
	}

	sc := s.clone()
	if err := sc.skip(MsgIndex(h.PN)); err != nil {
		return nil, err
	}
	if err := sc.dhRatchet(h); err != nil {
		return nil, err
	}
	return dr.commitDecrypt(sc, h, encHeader, payload)
}

// commitDecrypt advances the shadow state up to the message key, decrypts the
// payload, and swaps the shadow in if and only if everything succeeded.
func (dr *DoubleRatchet) commitDecrypt(sc *State, h header.Header, encHeader, payload []byte) ([]byte, error) {
	if err := sc.skip(MsgIndex(h.N)); err != nil {
		return nil, err
	}
	ck, mk := kdfCk(*sc.Ckr)
	sc.Ckr = &ck
	sc.Nr++

	plaintext, err := authcrypt.Decrypt(mk[:], sc.Info, payloadNonce(sc.Ad, encHeader), payload)
	if err != nil {
		return nil, err
	}

	dr.CurrentState = sc
	return plaintext, nil
}

// skip derives and buffers the message keys of the receiving chain up to, but
// excluding, until.
func (s *State) skip(until MsgIndex) error {
	if s.Nr+MaxSkip < until {
		return ErrTooManySkipped
	}
	if s.Ckr == nil {
		// No receiving chain yet. This only happens on the very first
		// receive; the real skip work runs after the DH step.
		return nil
	}
	for s.Nr < until {
		ck, mk := kdfCk(*s.Ckr)
		s.Ckr = &ck
		s.Skipped = append(s.Skipped, SkippedKey{HeaderKey: *s.Hkr, N: s.Nr, MsgKey: mk})
		s.Nr++
	}
	return nil
}

// dhRatchet replaces the receiving and sending chains after a new remote
// ratchet key arrived, rotating the header keys along the way.
func (s *State) dhRatchet(h header.Header) error {
	s.Pn = s.Ns
	s.Ns = 0
	s.Nr = 0
	remote := h.RatchetPub
	s.Dhr = &remote

	hks := s.Nhks
	hkr := s.Nhkr
	s.Hks = &hks
	s.Hkr = &hkr

	dhOut, err := dh(s.Dhs.Priv, *s.Dhr)
	if err != nil {
		return err
	}
	rk, ckr, nhkr, err := kdfRk(s.Rk, dhOut, s.Info)
	if err != nil {
		return err
	}
	s.Rk = rk
	s.Ckr = &ckr
	s.Nhkr = nhkr

	pair, err := key25519.NewPair()
	if err != nil {
		return err
	}
	s.Dhs = pair

	dhOut, err = dh(s.Dhs.Priv, *s.Dhr)
	if err != nil {
		return err
	}
	rk, cks, nhks, err := kdfRk(s.Rk, dhOut, s.Info)
	if err != nil {
		return err
	}
	s.Rk = rk
	s.Cks = &cks
	s.Nhks = nhks
	return nil
}

func ownOrFreshPair(own *key25519.Pair) (key25519.Pair, error) {
	if own != nil {
		return *own, nil
	}
	return key25519.NewPair()
}
