package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "ab...", truncate("abc", 2))
	// Runes, not bytes.
	assert.Equal(t, "नम...", truncate("नमस्ते", 2))
}

func TestResultText_Placeholders(t *testing.T) {
	text := resultText(3, model.Result{Name: "Ravi_K", Address: "  "})
	assert.Contains(t, text, "*Result 3*")
	assert.Contains(t, text, `*Name:* Ravi\_K`)
	assert.Contains(t, text, "*Address:* N/A")
	assert.Equal(t, 6, strings.Count(text, "N/A"))
}

func TestBanText(t *testing.T) {
	empty := ""
	assert.NotContains(t, banText(nil), "Reason")
	assert.NotContains(t, banText(&empty), "Reason")
	r := "spam"
	assert.Contains(t, banText(&r), "📝 Reason: spam")
}
