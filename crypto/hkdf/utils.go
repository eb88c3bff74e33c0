package hkdf

import (
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KDF fills buffer with RFC 5869 extract-and-expand output. A nil salt is
// replaced by 32 zero bytes so that chained invocations may still pass an
// explicit salt.
func KDF(hash func() hash.Hash, keyMaterial []byte, salt []byte, info []byte, buffer []byte) (int, error) {
	if salt == nil {
		salt = make([]byte, 32)
	}
	hkdfReader := hkdf.New(hash, keyMaterial, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}
