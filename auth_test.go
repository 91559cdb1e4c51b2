package tarantool

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedScramble(password string, salt20 []byte) []byte {
	step1 := sha1.Sum([]byte(password))
	step2 := sha1.Sum(step1[:])
	h := sha1.New()
	h.Write(salt20)
	h.Write(step2[:])
	step3 := h.Sum(nil)

	out := make([]byte, sha1.Size)
	for i := range out {
		out[i] = step1[i] ^ step3[i]
	}
	return out
}

func TestChapSha1ScrambleMatchesAlgorithm(t *testing.T) {
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = 0x00
	}

	got, err := ChapSha1Authenticator{}.Scramble(salt, Credentials{Username: "admin", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, expectedScramble("password", salt), got)
}

func TestChapSha1ScrambleVariesWithSalt(t *testing.T) {
	saltA := make([]byte, 20)
	saltB := make([]byte, 20)
	saltB[0] = 0x01

	a, err := ChapSha1Authenticator{}.Scramble(saltA, Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	b, err := ChapSha1Authenticator{}.Scramble(saltB, Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChapSha1ScrambleRejectsShortSalt(t *testing.T) {
	_, err := ChapSha1Authenticator{}.Scramble(make([]byte, 10), Credentials{Username: "u", Password: "p"})
	require.Error(t, err)
}

func TestSelectAuthenticatorNoMatch(t *testing.T) {
	_, err := selectAuthenticator("gssapi", Credentials{Username: "u", Password: "p"})
	require.Error(t, err)
	var nsa *NoSuitableAuthenticator
	require.ErrorAs(t, err, &nsa)
}

func TestSelectAuthenticatorMatch(t *testing.T) {
	a, err := selectAuthenticator(MechanismChapSha1, Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, MechanismChapSha1, a.Mechanism())
}
