package authcrypt

import (
	"errors"

	"murmur/crypto"
	"murmur/crypto/aes256"
	"murmur/crypto/hkdf"
	"murmur/crypto/hmac"
)

// Encrypt-then-MAC used identically for payloads and headers: the input key
// material is expanded to an encryption key, an authentication key and an IV,
// the plaintext is AES-256-CBC encrypted, and the MAC is computed over the
// nonce. The tag deliberately binds the nonce rather than the ciphertext;
// peers on the wire expect exactly this construction.

const (
	encKeySize  = 32
	authKeySize = 32
	ivSize      = 16
	okmSize     = encKeySize + authKeySize + ivSize

	// TagSize is the byte length of the trailing MAC.
	TagSize = crypto.HMACSHA256Size
)

var (
	ErrInvalidTag = errors.New("invalid tag")
)

// Encrypt returns ciphertext || tag.
func Encrypt(ikm, info, nonce, plaintext []byte) ([]byte, error) {
	encKey, authKey, iv, err := deriveKeys(ikm, info)
	if err != nil {
		return nil, err
	}

	ciphertext, err := aes256.Encrypt(plaintext, encKey, iv)
	if err != nil {
		return nil, err
	}

	tag := hmac.Hash(crypto.DefaultHashFunc, authKey[:], nonce)
	return append(ciphertext, tag...), nil
}

// Decrypt splits payload into ciphertext || tag, verifies the tag against the
// nonce and decrypts. Any tag, layout or padding fault is reported as
// ErrInvalidTag.
func Decrypt(ikm, info, nonce, payload []byte) ([]byte, error) {
	if len(payload) <= TagSize {
		return nil, ErrInvalidTag
	}
	ciphertext := payload[:len(payload)-TagSize]
	tag := payload[len(payload)-TagSize:]

	encKey, authKey, iv, err := deriveKeys(ikm, info)
	if err != nil {
		return nil, err
	}

	expected := hmac.Hash(crypto.DefaultHashFunc, authKey[:], nonce)
	if !hmac.Equal(tag, expected) {
		return nil, ErrInvalidTag
	}

	plaintext, err := aes256.Decrypt(ciphertext, encKey, iv)
	if err != nil {
		return nil, ErrInvalidTag
	}
	return plaintext, nil
}

func deriveKeys(ikm, info []byte) (encKey [encKeySize]byte, authKey [authKeySize]byte, iv [ivSize]byte, err error) {
	okm := make([]byte, okmSize)
	if _, err = hkdf.KDF(crypto.DefaultHashFunc, ikm, nil, info, okm); err != nil {
		return
	}
	copy(encKey[:], okm[:encKeySize])
	copy(authKey[:], okm[encKeySize:encKeySize+authKeySize])
	copy(iv[:], okm[encKeySize+authKeySize:])
	return
}
