package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      model.FormatResult
	}{
		{"empty", "", model.MissingKey},
		{"whitespace only", "   \t\n", model.MissingKey},
		{"wrong prefix", "sk-proj-abcdefghijklmnopqrstuvwxyz", model.BadPrefix},
		{"prefix case matters", "SK-ANT-abcdefghijklmnopqrstuvwxyz", model.BadPrefix},
		{"bad prefix wins over short", "abc", model.BadPrefix},
		{"prefix only", "sk-ant-", model.TooShort},
		{"19 chars", "sk-ant-" + strings.Repeat("a", 12), model.TooShort},
		{"exactly 20 chars", "sk-ant-" + strings.Repeat("a", 13), model.FormatOK},
		{"typical key", "sk-ant-api03-" + strings.Repeat("x", 80), model.FormatOK},
		{"leading space is a bad prefix", " sk-ant-abcdefghijklmnop", model.BadPrefix},
		{"leading newline is a bad prefix", "\nsk-ant-abcdefghijklmnop", model.BadPrefix},
		{"trailing whitespace is not trimmed", "sk-ant-" + strings.Repeat("a", 10) + "   ", model.FormatOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckFormat(tt.candidate))
		})
	}
}

func TestCheckFormat_ShortCandidatesAreNeverOK(t *testing.T) {
	for n := 0; n < AnthropicFormat.MinLength; n++ {
		candidate := "sk-ant-REDACTED"[:n]
		res := CheckFormat(candidate)
		assert.NotEqual(t, model.FormatOK, res, "length %d", n)
		if strings.HasPrefix(candidate, "sk-ant-") {
			assert.Equal(t, model.TooShort, res, "length %d", n)
		}
	}
}

func TestFormatRule_Inspect(t *testing.T) {
	cred := AnthropicFormat.Inspect("  sk-ant-short  ")

	assert.Equal(t, "  sk-ant-short  ", cred.Raw)
	assert.False(t, cred.PrefixValid)
	assert.False(t, cred.LengthValid)

	cred = AnthropicFormat.Inspect("sk-ant-short")
	assert.True(t, cred.PrefixValid)
	assert.False(t, cred.LengthValid)
}

func TestGitHubFormat(t *testing.T) {
	assert.Equal(t, model.FormatOK, GitHubFormat.Check("ghp_"+strings.Repeat("A", 36)))
	assert.Equal(t, model.FormatOK, GitHubFormat.Check("github_pat_"+strings.Repeat("B", 60)))
	assert.Equal(t, model.TooShort, GitHubFormat.Check("ghp_abc"))
	assert.Equal(t, model.BadPrefix, GitHubFormat.Check("sk-ant-"+strings.Repeat("a", 40)))
}
