package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat-backend/pkg/constants"
)

func TestParse_Defaults(t *testing.T) {
	params, err := Parse("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, constants.DefaultPageSize, params.Limit)
	assert.Zero(t, params.Offset)
}

func TestParse_OffsetWalksBackward(t *testing.T) {
	params, err := Parse("3", "20")
	require.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 40, params.Offset)
}

func TestParse_ClampsLimit(t *testing.T) {
	params, err := Parse("1", "500")
	require.NoError(t, err)
	assert.Equal(t, constants.MaxPageSize, params.Limit)

	params, err = Parse("1", "0")
	require.NoError(t, err)
	assert.Equal(t, constants.MinPageSize, params.Limit)
}

func TestParse_InvalidInput(t *testing.T) {
	_, err := Parse("abc", "")
	assert.Error(t, err)

	_, err = Parse("", "xyz")
	assert.Error(t, err)
}

func TestParse_NonPositivePageFallsBackToFirst(t *testing.T) {
	params, err := Parse("-2", "10")
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Zero(t, params.Offset)
}

func TestNormalize(t *testing.T) {
	params := Normalize(0, 0)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, constants.DefaultPageSize, params.Limit)

	params = Normalize(2, 1000)
	assert.Equal(t, constants.MaxPageSize, params.Limit)
	assert.Equal(t, constants.MaxPageSize, params.Offset)
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(45, 1, 20))
	assert.True(t, HasMore(45, 2, 20))
	assert.False(t, HasMore(45, 3, 20))
	assert.False(t, HasMore(0, 1, 20))
	assert.False(t, HasMore(20, 1, 20))
}
