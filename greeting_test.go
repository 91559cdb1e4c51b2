package tarantool

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGreeting(version string, salt32 []byte) []byte {
	buf := make([]byte, greetingSize)
	copy(buf[:64], []byte(version))
	for i := len(version); i < 64; i++ {
		buf[i] = ' '
	}
	encoded := base64.StdEncoding.EncodeToString(salt32)
	copy(buf[64:108], []byte(encoded))
	return buf
}

func TestParseGreetingExtractsVersionAndSalt(t *testing.T) {
	salt32 := bytes.Repeat([]byte{0x01}, 32)
	buf := buildGreeting("Tarantool 2.11.0 abcdef", salt32)

	g, err := parseGreeting(buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.Version, "Tarantool 2.11.0"))
	assert.Len(t, g.Salt, 20)
	assert.Equal(t, salt32[:20], g.Salt)
}

func TestParseGreetingRejectsWrongSize(t *testing.T) {
	_, err := parseGreeting(make([]byte, 10))
	require.Error(t, err)
}

func TestParseGreetingRejectsShortSalt(t *testing.T) {
	buf := make([]byte, greetingSize)
	copy(buf[:64], []byte("Tarantool"))
	for i := 9; i < 64; i++ {
		buf[i] = ' '
	}
	// "AAAA" decodes to 3 bytes, well under the required 20
	copy(buf[64:108], []byte("AAAA"+strings.Repeat(" ", 44-4)))

	_, err := parseGreeting(buf)
	require.Error(t, err)
}

func TestReadGreetingFromReader(t *testing.T) {
	salt32 := bytes.Repeat([]byte{0x02}, 32)
	buf := buildGreeting("Tarantool 3.0.0", salt32)

	g, err := readGreeting(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, salt32[:20], g.Salt)
}
