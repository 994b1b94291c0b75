package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemberNormalize(t *testing.T) {
	nm := NewMember{Name: "  Ada Lovelace ", Email: " ada@example.com ", Phone: ""}
	require.NoError(t, nm.Normalize())
	assert.Equal(t, "Ada Lovelace", nm.Name)
	assert.Equal(t, ptr("ada@example.com"), nm.EmailValue())
	assert.Nil(t, nm.PhoneValue())

	blank := NewMember{Name: "  "}
	assert.ErrorIs(t, blank.Normalize(), ErrInvalidName)
}
