package sanitizer

import "regexp"

// injectionPatterns flags markup/script syntax associated with prompt- or
// markup-injection. Any single match is enough to reject the message; the
// decision to abort belongs to the caller.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)expression\(`),
	regexp.MustCompile(`(?i)document\.`),
	regexp.MustCompile(`(?i)window\.`),
}

// LooksLikeInjection reports whether text matches any suspicious pattern.
// Pure function: no state, no side effects.
func LooksLikeInjection(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	scriptBlockRe   = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	iframeBlockRe   = regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`)
	eventHandlerRe  = regexp.MustCompile(`(?i)on\w+\s*=\s*["'][^"']*["']`)
	jsSchemeRe      = regexp.MustCompile(`(?i)javascript:`)
	suspiciousURLRe = regexp.MustCompile(`(?i)(javascript|data|file|vbscript):[^\s]*`)
)

// RemoveScripts strips script/iframe blocks, inline event handlers and
// javascript: URLs from text. Used when a message should be salvaged rather
// than rejected (e.g. assistant echo paths).
func RemoveScripts(text string) string {
	if text == "" {
		return ""
	}
	text = scriptBlockRe.ReplaceAllString(text, "")
	text = iframeBlockRe.ReplaceAllString(text, "")
	text = eventHandlerRe.ReplaceAllString(text, "")
	return jsSchemeRe.ReplaceAllString(text, "")
}

// RemoveSuspiciousURLs replaces script-scheme URLs with a placeholder.
func RemoveSuspiciousURLs(text string) string {
	if text == "" {
		return ""
	}
	return suspiciousURLRe.ReplaceAllString(text, "[removed]")
}
