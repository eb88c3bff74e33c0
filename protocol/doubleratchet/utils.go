package doubleratchet

import (
	"murmur/crypto"
	"murmur/crypto/dh25519"
	"murmur/crypto/hkdf"
	"murmur/crypto/hmac"
	"murmur/crypto/key25519"
)

// kdfRk advances the root chain: 96 bytes of HKDF output keyed by the current
// root key over a Diffie-Hellman output, split into the new root key, a chain
// key and the next header key.
func kdfRk(rk Key, dhOut [32]byte, info []byte) (newRk, chainKey, nextHeaderKey Key, err error) {
	buffer := make([]byte, 96)
	if _, err = hkdf.KDF(crypto.DefaultHashFunc, dhOut[:], rk[:], info, buffer); err != nil {
		return
	}
	copy(newRk[:], buffer[:32])
	copy(chainKey[:], buffer[32:64])
	copy(nextHeaderKey[:], buffer[64:])
	return
}

// kdfCk performs one symmetric-key ratchet step: the message key is the HMAC
// of the chain key over 0x01, the next chain key over 0x02.
func kdfCk(ck Key) (chainKey Key, messageKey MsgKey) {
	copy(messageKey[:], hmac.Hash(crypto.DefaultHashFunc, ck[:], []byte{0x01}))
	copy(chainKey[:], hmac.Hash(crypto.DefaultHashFunc, ck[:], []byte{0x02}))
	return
}

func dh(priv key25519.PrivateKey, pub key25519.PublicKey) ([32]byte, error) {
	return dh25519.GetSecret(priv, pub)
}

// payloadNonce binds each payload to the session's associated data and to its
// own encrypted header.
func payloadNonce(ad, encHeader []byte) []byte {
	nonce := make([]byte, 0, len(ad)+len(encHeader))
	nonce = append(nonce, ad...)
	return append(nonce, encHeader...)
}
