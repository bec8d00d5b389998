package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusSortPriority(t *testing.T) {
	assert.Equal(t, 0, StatusUnsolved.SortPriority())
	assert.Equal(t, 1, StatusPartiallySolved.SortPriority())
	assert.Equal(t, 2, StatusSolved.SortPriority())
	assert.Equal(t, 3, StatusDebunked.SortPriority())
	// Unknown values trail everything known.
	assert.Equal(t, 4, MysteryStatus("WEIRD").SortPriority())
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusPartiallySolved, NormalizeStatus("partially-solved"))
	assert.Equal(t, StatusPartiallySolved, NormalizeStatus("PARTIALLY_SOLVED"))
	assert.Equal(t, StatusUnsolved, NormalizeStatus("  unsolved "))
	assert.False(t, NormalizeStatus("nonsense").Valid())
}

func TestStatusPriorityCaseSQL(t *testing.T) {
	sql := StatusPriorityCaseSQL()
	assert.Contains(t, sql, "CASE mystery_status")
	assert.Contains(t, sql, "WHEN 'UNSOLVED' THEN 0")
	assert.Contains(t, sql, "WHEN 'PARTIALLY_SOLVED' THEN 1")
	assert.Contains(t, sql, "WHEN 'SOLVED' THEN 2")
	assert.Contains(t, sql, "WHEN 'DEBUNKED' THEN 3")
	assert.Contains(t, sql, "ELSE 4 END")
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Category("MOONBASES").Valid())
	assert.False(t, Category("").Valid())
}

func TestContentTypeValid(t *testing.T) {
	assert.True(t, ContentTypeMixed.Valid())
	assert.False(t, ContentType("HOLOGRAM").Valid())
}
