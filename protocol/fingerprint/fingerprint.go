package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"

	"murmur/crypto/key25519"
)

// Fingerprint impl mimics what Signal app actually does
func Fingerprint(pubKey key25519.PublicKey, userIdentifier []byte) (*[30]int, error) {
	digest := append(pubKey[:], userIdentifier...)
	hash := sha512.New()
	for i := 0; i < 5200; i++ {
		_, err := hash.Write(digest)
		if err != nil {
			return nil, err
		}
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var result [30]byte
	copy(result[:], digest[:30])

	var finalResult [30]int
	for i := 0; i < 6; i++ {
		chunk := result[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			finalResult[i*5+j] = int(num % 10)
			num /= 10
		}
	}

	return &finalResult, nil
}

// SafetyNumber renders the two peers' fingerprints as the 60-digit string the
// UI shows, lower identity key first so both sides display the same number.
func SafetyNumber(a, b key25519.PublicKey, aID, bID []byte) (string, error) {
	first, firstID, second, secondID := a, aID, b, bID
	if strings.Compare(string(b[:]), string(a[:])) < 0 {
		first, firstID, second, secondID = b, bID, a, aID
	}

	f1, err := Fingerprint(first, firstID)
	if err != nil {
		return "", err
	}
	f2, err := Fingerprint(second, secondID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, f := range [2]*[30]int{f1, f2} {
		for j, d := range f {
			if (i*30+j)%5 == 0 && (i+j) > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", d)
		}
	}
	return sb.String(), nil
}
