package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "en", Normalize(" EN "))
	assert.Equal(t, "und", Normalize("UND"))
	assert.Equal(t, "", Normalize("  "))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("en"))
	assert.True(t, IsValid("zh"))
	assert.True(t, IsValid(Undetermined))
	assert.False(t, IsValid("xx"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("EN"), "IsValid expects normalized input")
}

func TestCodesExcludesUndetermined(t *testing.T) {
	assert.NotContains(t, Codes(), Undetermined)
	assert.Contains(t, Codes(), "en")
}

func TestCodesReturnsCopy(t *testing.T) {
	first := Codes()
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", Codes()[0])
}
