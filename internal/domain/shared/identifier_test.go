package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalID_Canonical(t *testing.T) {
	id := NewExternalID(SystemCommerce, "order", "1001")
	assert.Equal(t, "commerce/order/1001", id.Canonical())
	assert.Equal(t, id.Canonical(), id.String())
	assert.False(t, id.IsZero())
	assert.True(t, ExternalID{}.IsZero())
}

func TestParseExternalID(t *testing.T) {
	t.Run("round trips the canonical encoding", func(t *testing.T) {
		id := NewExternalID(SystemAccounting, "invoice", "inv-1")
		parsed, err := ParseExternalID(id.Canonical())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("raw id may contain slashes", func(t *testing.T) {
		parsed, err := ParseExternalID("commerce/order/gid://shop/Order/1001")
		require.NoError(t, err)
		assert.Equal(t, "gid://shop/Order/1001", parsed.RawID)
	})

	t.Run("rejects malformed encodings", func(t *testing.T) {
		for _, s := range []string{"", "commerce", "commerce/order", "commerce//1001", "/order/1001"} {
			_, err := ParseExternalID(s)
			assert.ErrorIs(t, err, ErrInvalidInput, s)
		}
	})
}
