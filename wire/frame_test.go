package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	header := map[int]interface{}{
		KeyCode: uint64(0),
		KeySync: uint64(42),
	}
	body := map[int]interface{}{
		KeyData: []interface{}{"hello", uint64(1)},
	}

	frame, err := Encode(header, body)
	require.NoError(t, err)

	gotHeader, gotBody, err := Decode(bufio.NewReader(bytes.NewReader(frame)))
	require.NoError(t, err)

	assert.EqualValues(t, 42, gotHeader[KeySync])
	data, ok := gotBody[KeyData].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "hello", data[0])
}

func TestDecodeShortRead(t *testing.T) {
	header := map[int]interface{}{KeyCode: uint64(0), KeySync: uint64(1)}
	body := map[int]interface{}{}
	frame, err := Encode(header, body)
	require.NoError(t, err)

	truncated := frame[:len(frame)-1]
	_, _, err = Decode(bufio.NewReader(bytes.NewReader(truncated)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestDecodeMultipleFramesFromSameStream(t *testing.T) {
	var buf bytes.Buffer
	for i := uint64(0); i < 3; i++ {
		frame, err := Encode(map[int]interface{}{KeySync: i}, map[int]interface{}{})
		require.NoError(t, err)
		buf.Write(frame)
	}

	r := bufio.NewReader(&buf)
	for i := uint64(0); i < 3; i++ {
		header, _, err := Decode(r)
		require.NoError(t, err)
		assert.EqualValues(t, i, header[KeySync])
	}
}
