package header

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"murmur/crypto/key25519"
	"murmur/protocol/authcrypt"
)

const (
	// Size is the cleartext header length: ratchet pub (32) || PN (4) || N (4).
	Size = key25519.KeySize + 4 + 4
	// NonceSize is the length of the random nonce appended to each encrypted header.
	NonceSize = 16
)

var (
	ErrBadHeaderLayout = errors.New("bad header layout")
)

// Header is the cleartext ratchet header carried, encrypted, with every message.
type Header struct {
	RatchetPub key25519.PublicKey
	// PN is the number of messages in the previous sending chain.
	PN uint32
	// N is the message number within the current chain.
	N uint32
}

// Marshal encodes the header into its fixed 40-byte big-endian layout.
func (h Header) Marshal() []byte {
	out := make([]byte, Size)
	copy(out, h.RatchetPub[:])
	binary.BigEndian.PutUint32(out[key25519.KeySize:], h.PN)
	binary.BigEndian.PutUint32(out[key25519.KeySize+4:], h.N)
	return out
}

// Unmarshal parses a fixed-layout header.
func Unmarshal(data []byte) (Header, error) {
	if len(data) != Size {
		return Header{}, ErrBadHeaderLayout
	}
	var h Header
	copy(h.RatchetPub[:], data[:key25519.KeySize])
	h.PN = binary.BigEndian.Uint32(data[key25519.KeySize:])
	h.N = binary.BigEndian.Uint32(data[key25519.KeySize+4:])
	return h, nil
}

// Seal encrypts the header under the header key hk and appends the random
// nonce so the decrypter can split it off before verification. The nonce only
// feeds the MAC; the AES IV comes from the key derivation.
func Seal(h Header, hk, info []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed, err := authcrypt.Encrypt(hk, info, nonce, h.Marshal())
	if err != nil {
		return nil, err
	}
	return append(sealed, nonce...), nil
}

// Open splits off the trailing nonce, decrypts the header under hk and parses
// it. A wrong key surfaces as authcrypt.ErrInvalidTag; a header that decrypts
// but does not parse surfaces as ErrBadHeaderLayout.
func Open(wire, hk, info []byte) (Header, error) {
	if len(wire) <= NonceSize {
		return Header{}, authcrypt.ErrInvalidTag
	}
	sealed := wire[:len(wire)-NonceSize]
	nonce := wire[len(wire)-NonceSize:]

	cleartext, err := authcrypt.Decrypt(hk, info, nonce, sealed)
	if err != nil {
		return Header{}, err
	}
	return Unmarshal(cleartext)
}
