package set_test

import (
	"cmp"
	"testing"

	"deedles.dev/wlkit/internal/set"
	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := set.New(3, 1, 2, 1)
	assert.Len(t, s, 3)
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(4))

	assert.True(t, s.Add(4))
	assert.False(t, s.Add(4))
	assert.True(t, s.Delete(1))
	assert.False(t, s.Delete(1))

	assert.ElementsMatch(t, []int{2, 3, 4}, s.Slice())
	assert.Equal(t, []int{2, 3, 4}, set.Sorted(s, cmp.Compare[int]))
}
