package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorf(t *testing.T) {
	orig := errors.New("dial tcp: connection refused")
	err := WrapErrorf(orig, ErrUnavailable, "routing backend %s", "localhost")

	assert.Equal(t, "routing backend localhost: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, orig)
	assert.Equal(t, ErrUnavailable, ErrorCode(err))
	assert.Nil(t, ErrorCode(orig))
}

func TestClamp(t *testing.T) {
	testCases := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{name: "inside", v: 5, lo: 0, hi: 10, want: 5},
		{name: "below", v: -1, lo: 0, hi: 10, want: 0},
		{name: "above", v: 11, lo: 0, hi: 10, want: 10},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.v, tt.lo, tt.hi))
		})
	}
	assert.Equal(t, 14, MaxG(3, 14))
}
