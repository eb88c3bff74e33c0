package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"murmur/crypto/key25519"
)

func TestFingerprintIsStable(t *testing.T) {
	pair, err := key25519.NewPair()
	assert.NoError(t, err)

	f1, err := Fingerprint(pair.Pub, []byte("user"))
	assert.NoError(t, err)
	f2, err := Fingerprint(pair.Pub, []byte("user"))
	assert.NoError(t, err)
	assert.Equal(t, f1, f2)

	f3, err := Fingerprint(pair.Pub, []byte("other"))
	assert.NoError(t, err)
	assert.NotEqual(t, f1, f3)

	for _, d := range f1 {
		assert.GreaterOrEqual(t, d, 0)
		assert.Less(t, d, 10)
	}
}

func TestSafetyNumberSymmetric(t *testing.T) {
	a, err := key25519.NewPair()
	assert.NoError(t, err)
	b, err := key25519.NewPair()
	assert.NoError(t, err)

	n1, err := SafetyNumber(a.Pub, b.Pub, a.Pub[:], b.Pub[:])
	assert.NoError(t, err)
	n2, err := SafetyNumber(b.Pub, a.Pub, b.Pub[:], a.Pub[:])
	assert.NoError(t, err)

	// Both peers display the same number.
	assert.Equal(t, n1, n2)
	assert.Len(t, strings.ReplaceAll(n1, " ", ""), 60)
}
