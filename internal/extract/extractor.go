// Package extract recovers structured JSON from unreliable model output.
//
// The cascade is ordered from cheapest to most aggressive: markdown fence
// stripping, a string-aware brace-balanced object scan, mechanical text
// repairs, at most one model-assisted repair round, and finally per-field
// regex scraping that always yields a complete schema-valid object. The
// last step never fails, so neither does Extract: a dropped record is
// strictly worse downstream than an approximately parsed one.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gigpipe/gigpipe/internal/retry"
)

// Mode records which cascade strategy produced the result; callers derate
// confidence for the weaker strategies.
type Mode string

const (
	ModeStrict      Mode = "strict"
	ModeRepaired    Mode = "repaired"
	ModeLLMRepaired Mode = "llm_repair"
	ModeScraped     Mode = "scraped"
)

type Result struct {
	Object map[string]any
	Mode   Mode
}

// Repairer issues the single model-assisted JSON repair round. A nil
// Repairer skips that step of the cascade.
type Repairer interface {
	RepairJSON(ctx context.Context, malformed string, schema Schema) (string, error)
}

type Extractor struct {
	Repairer Repairer
}

// Extract runs the repair cascade over raw model output. It never returns
// an error: the scraper terminal case guarantees a schema-valid object.
func (e *Extractor) Extract(ctx context.Context, text string, schema Schema) Result {
	candidate, found := CandidateObject(text)
	if !found {
		return Result{Object: ScrapeFields(text, schema), Mode: ModeScraped}
	}

	if obj, err := parseObject(candidate); err == nil {
		return Result{Object: obj, Mode: ModeStrict}
	}

	repaired := MechanicalRepairs(candidate)
	if obj, err := parseObject(repaired); err == nil {
		return Result{Object: obj, Mode: ModeRepaired}
	}

	if e != nil && e.Repairer != nil {
		current := repaired
		obj, _, err := retry.WithOneRepair(ctx,
			func(context.Context) (map[string]any, error) {
				return parseObject(current)
			},
			func(ctx context.Context, _ error) error {
				response, err := e.Repairer.RepairJSON(ctx, current, schema)
				if err != nil {
					return fmt.Errorf("llm json repair: %w", err)
				}
				fixed, ok := CandidateObject(response)
				if !ok {
					return fmt.Errorf("llm json repair produced no object")
				}
				current = MechanicalRepairs(fixed)
				return nil
			})
		if err == nil {
			return Result{Object: obj, Mode: ModeLLMRepaired}
		}
	}

	return Result{Object: ScrapeFields(text, schema), Mode: ModeScraped}
}

// CandidateObject strips markdown fences and returns the first
// brace-balanced JSON object in text. When braces never rebalance it
// returns the tail from the first brace; the downstream parse will fail
// and push the cascade onward. The second return is false only when text
// contains no opening brace at all.
func CandidateObject(text string) (string, bool) {
	trimmed := stripFences(text)
	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", false
	}
	if obj, ok := balancedObject(trimmed[start:]); ok {
		return obj, true
	}
	return trimmed[start:], true
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimLeft(trimmed, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
		trimmed = strings.TrimSpace(trimmed)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

// balancedObject scans for the closing brace matching the opening one,
// tracking string mode and escapes so braces inside string values never
// move the depth counter.
func balancedObject(text string) (string, bool) {
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		if inString {
			if escape {
				escape = false
				continue
			}
			switch r {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[:i+1]), true
			}
		}
	}
	return "", false
}

var (
	tripleDouble  = regexp.MustCompile(`"""`)
	tripleSingle  = regexp.MustCompile(`'''`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	backtickSpan  = regexp.MustCompile("`([^`]+)`")
)

// MechanicalRepairs applies the cheap textual fixes that cover the bulk of
// malformed model JSON: triple-quote runs, trailing commas, stray
// backticks, and raw control characters inside string values.
func MechanicalRepairs(candidate string) string {
	out := tripleDouble.ReplaceAllString(candidate, `"`)
	out = tripleSingle.ReplaceAllString(out, `'`)
	out = trailingComma.ReplaceAllString(out, "$1")
	out = backtickSpan.ReplaceAllString(out, "$1")
	return escapeControlChars(out)
}

func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escape := false
	for _, r := range s {
		if escape {
			b.WriteRune(r)
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			b.WriteRune(r)
			continue
		}
		if r == '"' {
			inString = !inString
			b.WriteRune(r)
			continue
		}
		if inString && r < 32 {
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseObject(candidate string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
