package xeddsa

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"murmur/crypto/key25519"
)

func TestSignAndVerify(t *testing.T) {
	privKey, err := key25519.New()
	assert.NoError(t, err)
	pubKey, err := privKey.Public()
	assert.NoError(t, err)

	tests := []struct {
		name string
		msg  []byte
	}{
		{"Valid message", []byte("test message")},
		{"Empty message", []byte("")},
		{"Another valid message", []byte("another test message")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			random := make([]byte, RandomSize)
			_, err := io.ReadFull(rand.Reader, random)
			assert.NoError(t, err)

			sig, err := Sign(privKey, tt.msg, random)
			assert.NoError(t, err)
			assert.Len(t, sig, SignatureSize)

			assert.True(t, Verify(pubKey, tt.msg, sig))

			// Wrong message
			assert.False(t, Verify(pubKey, []byte("wrong message"), sig))

			// Tampered signature
			tampered := append([]byte{}, sig...)
			tampered[0] ^= 0xff
			assert.False(t, Verify(pubKey, tt.msg, tampered))
			tampered = append([]byte{}, sig...)
			tampered[SignatureSize-1] ^= 0x01
			assert.False(t, Verify(pubKey, tt.msg, tampered))

			// Wrong key
			otherPriv, err := key25519.New()
			assert.NoError(t, err)
			otherPub, err := otherPriv.Public()
			assert.NoError(t, err)
			assert.False(t, Verify(otherPub, tt.msg, sig))
		})
	}
}

func TestSignIsRandomized(t *testing.T) {
	privKey, err := key25519.New()
	assert.NoError(t, err)
	pubKey, err := privKey.Public()
	assert.NoError(t, err)

	msg := []byte("same message")
	r1 := make([]byte, RandomSize)
	r2 := make([]byte, RandomSize)
	r2[0] = 1

	sig1, err := Sign(privKey, msg, r1)
	assert.NoError(t, err)
	sig2, err := Sign(privKey, msg, r2)
	assert.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
	assert.True(t, Verify(pubKey, msg, sig1))
	assert.True(t, Verify(pubKey, msg, sig2))
}

func TestSignRejectsShortRandom(t *testing.T) {
	privKey, err := key25519.New()
	assert.NoError(t, err)

	_, err = Sign(privKey, []byte("msg"), make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidRandomLength)
}
