package objstore_test

import (
	"testing"

	"deedles.dev/wlkit/internal/objstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlloc(t *testing.T) {
	s := objstore.New[string](10, 12)

	id, ok := s.Alloc("a")
	require.True(t, ok)
	assert.Equal(t, uint32(10), id)

	require.True(t, s.Add(11, "b"))
	id, ok = s.Alloc("c")
	require.True(t, ok)
	assert.Equal(t, uint32(12), id)

	_, ok = s.Alloc("d")
	assert.False(t, ok, "range should be exhausted")

	s.Delete(10)
	id, ok = s.Alloc("e")
	require.True(t, ok)
	assert.Equal(t, uint32(10), id)
}

func TestAdd(t *testing.T) {
	s := objstore.New[int](100, 200)
	assert.False(t, s.Add(0, 1))
	assert.True(t, s.Add(1, 1))
	assert.False(t, s.Add(1, 2))

	v, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.False(t, s.InRange(1))
	assert.True(t, s.InRange(150))
}

func TestAllDescending(t *testing.T) {
	s := objstore.New[int](100, 200)
	for _, id := range []uint32{3, 1, 2} {
		s.Add(id, int(id))
	}

	var got []uint32
	for id := range s.All() {
		got = append(got, id)
		s.Delete(id - 1)
	}
	assert.Equal(t, []uint32{3}, got[:1])
	assert.NotContains(t, got, uint32(2))
}
