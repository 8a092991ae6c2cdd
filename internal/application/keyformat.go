package application

import (
	"strings"
	"unicode/utf8"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// FormatRule describes the syntactic shape of one provider's credentials.
type FormatRule struct {
	Prefixes  []string
	MinLength int
}

// AnthropicFormat is the rule for Anthropic API keys.
var AnthropicFormat = FormatRule{
	Prefixes:  []string{"sk-ant-"},
	MinLength: 20,
}

// GitHubFormat covers classic, fine-grained, OAuth, user-to-server and
// server-to-server GitHub tokens.
var GitHubFormat = FormatRule{
	Prefixes:  []string{"ghp_", "github_pat_", "gho_", "ghu_", "ghs_"},
	MinLength: 40,
}

// CheckFormat checks candidate against the default (Anthropic) rule.
func CheckFormat(candidate string) model.FormatResult {
	return AnthropicFormat.Check(candidate)
}

// Check returns the first failing condition in the order MissingKey,
// BadPrefix, TooShort, or FormatOK. Only an empty or all-whitespace
// candidate is missing; any other whitespace counts against the key.
func (r FormatRule) Check(candidate string) model.FormatResult {
	cred := r.Inspect(candidate)
	switch {
	case strings.TrimSpace(cred.Raw) == "":
		return model.MissingKey
	case !cred.PrefixValid:
		return model.BadPrefix
	case !cred.LengthValid:
		return model.TooShort
	default:
		return model.FormatOK
	}
}

// Inspect records which syntactic checks candidate passes, as given.
func (r FormatRule) Inspect(candidate string) model.Credential {
	return model.Credential{
		Raw:         candidate,
		PrefixValid: r.hasPrefix(candidate),
		LengthValid: utf8.RuneCountInString(candidate) >= r.MinLength,
	}
}

func (r FormatRule) hasPrefix(raw string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}
