package sequence_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza-damra/sales-management-backend/internal/sequence"
)

func TestCounter_StrictlyIncreasing(t *testing.T) {
	var c sequence.Counter
	prev := c.Next()
	for i := 0; i < 100; i++ {
		next := c.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNewSnowflake_RejectsInvalidNode(t *testing.T) {
	_, err := sequence.NewSnowflake(-1)
	assert.Error(t, err)

	_, err = sequence.NewSnowflake(1024)
	assert.Error(t, err)
}

func TestSnowflake_StrictlyIncreasing(t *testing.T) {
	gen, err := sequence.NewSnowflake(1)
	require.NoError(t, err)

	prev := gen.Next()
	for i := 0; i < 50; i++ {
		next := gen.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNumber_Format(t *testing.T) {
	var c sequence.Counter
	pattern := regexp.MustCompile(`^SALE-\d+-\d+-[A-Z0-9]{4}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		n := sequence.Number("SALE", &c)
		assert.Regexp(t, pattern, n)
		_, dup := seen[n]
		require.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}
}
