package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"UFO":           "ufo",
		"Night   Sky":   "night-sky",
		"  padded  ":    "padded",
		"Already-Slug":  "already-slug",
		"Tabs\tand\tSp": "tabs-and-sp",
		"":              "",
		"   ":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}
