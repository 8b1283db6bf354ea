package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

func TestDefaultConditionTable(t *testing.T) {
	table := DefaultConditionTable()
	require.NoError(t, table.Validate())

	mult, err := table.Multiplier(domain.ConditionNew)
	require.NoError(t, err)
	assert.Equal(t, 1.00, mult)

	mult, err = table.Multiplier(domain.ConditionForParts)
	require.NoError(t, err)
	assert.Equal(t, 0.10, mult)
}

func TestConditionTableMerge(t *testing.T) {
	override := ConditionTable{domain.ConditionGood: 0.70}
	merged := override.Merge()

	require.NoError(t, merged.Validate())
	assert.Equal(t, 0.70, merged[domain.ConditionGood])
	// Untouched tiers keep the defaults.
	assert.Equal(t, 0.90, merged[domain.ConditionLikeNew])
}

func TestConditionTableValidate(t *testing.T) {
	t.Run("missing tier", func(t *testing.T) {
		table := DefaultConditionTable()
		delete(table, domain.ConditionFair)
		assert.ErrorIs(t, table.Validate(), domain.ErrCategoryConfig)
	})

	t.Run("out of range", func(t *testing.T) {
		table := DefaultConditionTable()
		table[domain.ConditionNew] = 1.5
		assert.ErrorIs(t, table.Validate(), domain.ErrCategoryConfig)
	})

	t.Run("non-monotonic", func(t *testing.T) {
		// A worse condition must never multiply higher than a better one.
		table := DefaultConditionTable()
		table[domain.ConditionPoor] = 0.95
		assert.ErrorIs(t, table.Validate(), domain.ErrCategoryConfig)
	})
}

func TestConditionMultiplierUnknownTag(t *testing.T) {
	table := DefaultConditionTable()
	_, err := table.Multiplier(domain.ConditionTag("mint"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
