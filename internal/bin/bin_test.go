package bin_test

import (
	"bytes"
	"io"
	"testing"

	"deedles.dev/wlkit/internal/bin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	assert.Equal(t, int32(-2), bin.Value[int32](bin.Bytes(int32(-2))))
	assert.Equal(t, uint32(0xdeadbeef), bin.Value[uint32](bin.Bytes(uint32(0xdeadbeef))))

	buf := bin.Append(nil, uint32(1))
	buf = bin.Append(buf, int32(-1))
	assert.Len(t, buf, 8)

	r := bytes.NewReader(buf)
	u, err := bin.Read[uint32](r)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), u)
	i, err := bin.Read[int32](r)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i)

	_, err = bin.Read[uint32](r)
	assert.ErrorIs(t, err, io.EOF)
	_, err = bin.Read[uint32](bytes.NewReader([]byte{1, 2}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bin.Write(&buf, uint32(7)))
	require.NoError(t, bin.Write(&buf, int32(8)))
	assert.Equal(t, bin.Append(bin.Append(nil, uint32(7)), int32(8)), buf.Bytes())
}
