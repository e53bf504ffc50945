package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ScrapeFields is the guaranteed terminal case of the cascade: it searches
// the raw text for each schema field independently and substitutes the
// schema default when a field cannot be found. The result always contains
// every schema key.
func ScrapeFields(text string, schema Schema) map[string]any {
	out := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		value, ok := scrapeField(text, field)
		if !ok {
			value = field.Default
		}
		out[field.Name] = value
	}
	return out
}

func scrapeField(text string, field Field) (any, bool) {
	switch field.Kind {
	case KindBool:
		re := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(field.Name) + `"\s*:\s*(true|false)`)
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.EqualFold(m[1], "true"), true
		}
	case KindNumber:
		re := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(field.Name) + `"\s*:\s*([0-9.]+)`)
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	case KindString:
		quoted := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(field.Name) + `"\s*:\s*"([^"]+)"`)
		if m := quoted.FindStringSubmatch(text); m != nil {
			return normalizeScrapedString(m[1]), true
		}
		// Tolerate unquoted values, stopping at the next delimiter.
		bare := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(field.Name) + `"\s*:\s*([^",}\]]+)`)
		if m := bare.FindStringSubmatch(text); m != nil {
			if v := normalizeScrapedString(m[1]); v != "" {
				return v, true
			}
		}
	case KindStringList:
		list := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(field.Name) + `"\s*:\s*\[(.*?)\]`)
		if m := list.FindStringSubmatch(text); m != nil {
			items := regexp.MustCompile(`"([^"]+)"`).FindAllStringSubmatch(m[1], -1)
			if len(items) > 0 {
				out := make([]string, 0, len(items))
				for _, item := range items {
					out = append(out, normalizeScrapedString(item[1]))
				}
				return out, true
			}
		}
	}
	return nil, false
}

// normalizeScrapedString collapses embedded newlines and whitespace runs to
// single spaces so scraped values stay single-paragraph.
func normalizeScrapedString(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
