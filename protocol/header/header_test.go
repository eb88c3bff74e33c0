package header

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"murmur/crypto/key25519"
	"murmur/protocol/authcrypt"
)

func TestMarshalUnmarshal(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	h := Header{RatchetPub: pair.Pub, PN: 7, N: 42}
	data := h.Marshal()
	assert.Len(t, data, Size)

	parsed, err := Unmarshal(data)
	assert.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestUnmarshalRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, Size - 1, Size + 1} {
		_, err := Unmarshal(make([]byte, n))
		assert.ErrorIs(t, err, ErrBadHeaderLayout, "length %d", n)
	}
}

func TestSealOpen(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	hk := []byte("0123456789abcdef0123456789abcdef")
	info := []byte("test-info")
	h := Header{RatchetPub: pair.Pub, PN: 3, N: 11}

	wire, err := Seal(h, hk, info)
	assert.NoError(t, err)

	opened, err := Open(wire, hk, info)
	assert.NoError(t, err)
	assert.Equal(t, h, opened)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	info := []byte("test-info")
	wire, err := Seal(Header{RatchetPub: pair.Pub}, []byte("0123456789abcdef0123456789abcdef"), info)
	assert.NoError(t, err)

	_, err = Open(wire, []byte("fedcba9876543210fedcba9876543210"), info)
	assert.ErrorIs(t, err, authcrypt.ErrInvalidTag)
}

func TestOpenRejectsTamperedWire(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	hk := []byte("0123456789abcdef0123456789abcdef")
	info := []byte("test-info")
	wire, err := Seal(Header{RatchetPub: pair.Pub, PN: 1, N: 2}, hk, info)
	assert.NoError(t, err)

	// The tag binds the nonce, so flipping any byte of either must fail.
	for i := len(wire) - authcrypt.TagSize - NonceSize; i < len(wire); i++ {
		tampered := append([]byte{}, wire...)
		tampered[i] ^= 0x01
		_, err := Open(tampered, hk, info)
		assert.Error(t, err, "byte %d", i)
	}
}
