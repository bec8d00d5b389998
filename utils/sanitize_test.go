package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeepsBasicMarkup(t *testing.T) {
	out := Sanitize(`<p>hello <b>world</b></p><script>alert(1)</script>`)
	assert.Contains(t, out, "<b>world</b>")
	assert.NotContains(t, out, "script")
}

func TestSanitizePlainStripsEverything(t *testing.T) {
	assert.Equal(t, "hello world", SanitizePlain("  <b>hello</b> world  "))
	assert.Equal(t, "", SanitizePlain("<img src=x onerror=alert(1)>"))
}
