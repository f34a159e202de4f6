package content

import (
	"regexp"
	"strings"
)

// markup rules are applied in order, images before links and bold before italic
var markupRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile("`([^`]*)`"), "$1"},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`\*([^*\n]+)\*`), "$1"},
	{regexp.MustCompile(`\b_([^_\n]+)_\b`), "$1"},
	{regexp.MustCompile(`~~(.+?)~~`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`), ""},
}

// strayMarkup removes markup characters left unpaired by the rules above
var strayMarkup = strings.NewReplacer("*", "", "`", "", "~~", "")

// StripMarkup removes lightweight markdown so spoken text has no literal markup characters
func StripMarkup(text string) string {
	for _, rule := range markupRules {
		text = rule.pattern.ReplaceAllString(text, rule.replace)
	}
	return strayMarkup.Replace(text)
}
