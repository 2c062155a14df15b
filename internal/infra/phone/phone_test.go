//go:build !integration

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votelab/internal/domain"
)

func TestNormalizer_E164(t *testing.T) {
	n := NewNormalizer("GH")

	cases := map[string]string{
		"0244123456":     "+233244123456",
		"+233244123456":  "+233244123456",
		"233244123456":   "+233244123456",
		" 024 412 3456 ": "+233244123456",
	}
	for in, want := range cases {
		got, err := n.E164(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := n.E164("")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = n.E164("12")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
