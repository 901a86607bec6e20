package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFixtures(t *testing.T) {
	tests := []struct {
		in   int
		want uint32
	}{
		{in: 0, want: 0},
		{in: 1, want: 824515495},
		{in: 2, want: 1722258072},
		{in: 4, want: 3444516145},
		{in: 42, want: 4147366645},
		{in: 1000, want: 4040455147},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Hash(tt.in), "Hash(%d)", tt.in)
	}
}

func TestHashIsStable(t *testing.T) {
	first := Hash(42)
	for range 100 {
		assert.Equal(t, first, Hash(42))
	}
}

func TestPickStaysInRange(t *testing.T) {
	for x := -50; x < 500; x++ {
		for _, n := range []int{1, 3, 7, 8, 32} {
			got := pick(x, n)
			assert.GreaterOrEqual(t, got, 0)
			assert.Less(t, got, n)
		}
	}
}
