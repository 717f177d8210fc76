package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "a\\_b\\*c", EscapeMarkdown("a_b*c"))
	assert.Equal(t, "\\[x](y) \\`z\\`", EscapeMarkdown("[x](y) `z`"))
	assert.Equal(t, "plain name", EscapeMarkdown("plain name"))
}
