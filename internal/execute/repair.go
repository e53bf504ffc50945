package execute

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// importChecks pairs a usage pattern with the import line it requires.
// RepairImports prepends the line when the pattern appears and no form of
// the import is present.
var importChecks = []struct {
	usage      *regexp.Regexp
	importHint []string
	line       string
}{
	{regexp.MustCompile(`\bjson\.(load|dump|loads|dumps)\b`), []string{"import json", "from json"}, "import json"},
	{regexp.MustCompile(`\bpd\.|pandas\.`), []string{"import pandas", "from pandas"}, "import pandas as pd"},
	{regexp.MustCompile(`\bnp\.|numpy\.`), []string{"import numpy", "from numpy"}, "import numpy as np"},
	{regexp.MustCompile(`\bplt\.|matplotlib\.`), []string{"import matplotlib", "from matplotlib"}, "import matplotlib.pyplot as plt"},
	{regexp.MustCompile(`\.to_excel\(|openpyxl`), []string{"import openpyxl", "from openpyxl"}, "import openpyxl"},
	{regexp.MustCompile(`\bPath\b`), []string{"from pathlib import Path", "import pathlib"}, "from pathlib import Path"},
	{regexp.MustCompile(`\bos\.(path|makedirs|listdir|getcwd|chdir|environ|abspath|join)`), []string{"import os"}, "import os"},
	{regexp.MustCompile(`\bsys\.(argv|exit|executable|path)`), []string{"import sys"}, "import sys"},
}

var (
	importLine   = regexp.MustCompile(`(?m)^(import |from .+ import )`)
	aliasPandas  = regexp.MustCompile(`(?m)^import pandas$`)
	aliasMatplot = regexp.MustCompile(`(?m)^import matplotlib\.pyplot$`)
)

// RepairImports adds imports that generated scripts habitually forget and
// fixes alias-less pandas/matplotlib imports when the aliased form is used.
func RepairImports(script string) string {
	if strings.Contains(script, "pd.") {
		script = aliasPandas.ReplaceAllString(script, "import pandas as pd")
	}
	if strings.Contains(script, "plt.") {
		script = aliasMatplot.ReplaceAllString(script, "import matplotlib.pyplot as plt")
	}

	var needed []string
	for _, check := range importChecks {
		if !check.usage.MatchString(script) {
			continue
		}
		present := false
		for _, hint := range check.importHint {
			if strings.Contains(script, hint) {
				present = true
				break
			}
		}
		if !present {
			needed = append(needed, check.line)
		}
	}
	if len(needed) == 0 {
		return script
	}

	block := strings.Join(needed, "\n")
	locs := importLine.FindAllStringIndex(script, -1)
	if len(locs) > 0 {
		// Insert after the last existing import line.
		last := locs[len(locs)-1]
		end := strings.IndexByte(script[last[0]:], '\n')
		if end >= 0 {
			pos := last[0] + end
			return script[:pos] + "\n" + block + script[pos:]
		}
		return script + "\n" + block + "\n"
	}
	if strings.HasPrefix(script, "#!") {
		if nl := strings.IndexByte(script, '\n'); nl >= 0 {
			return script[:nl+1] + block + "\n" + script[nl+1:]
		}
	}
	return block + "\n" + script
}

var nameErrorPattern = regexp.MustCompile(`NameError: name '(\w+)' is not defined`)

// RepairNameError synthesizes a stub for the undefined function named in
// stderr and inserts it before its first use. The stub shape depends on
// the name: date normalizers get a real format-walking implementation,
// extract/parse helpers get passthroughs. Returns the script unchanged
// when the error is not a repairable NameError.
func RepairNameError(script, stderr string) string {
	m := nameErrorPattern.FindStringSubmatch(stderr)
	if m == nil {
		return script
	}
	name := m[1]

	used := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	defined := regexp.MustCompile(`(?m)^\s*def\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	if !used.MatchString(script) || defined.MatchString(script) {
		return script
	}

	stub := stubFor(name)

	usage := used.FindStringIndex(script)
	before := script[:usage[0]]
	anchor := regexp.MustCompile(`(?m)^(import |from )`)
	locs := anchor.FindAllStringIndex(before, -1)
	if len(locs) > 0 {
		// Insert after the last import line preceding the first use.
		pos := locs[len(locs)-1][0]
		insert := pos
		if lineEnd := strings.IndexByte(before[pos:], '\n'); lineEnd >= 0 {
			insert = pos + lineEnd + 1
		}
		return script[:insert] + stub + "\n" + script[insert:]
	}
	return stub + "\n" + script
}

func stubFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "normalize") && strings.Contains(lower, "date"):
		return fmt.Sprintf(`
def %s(date_str):
    """Normalize date string to YYYY-MM-DD format"""
    from datetime import datetime
    if not date_str:
        return None
    date_str = str(date_str).strip()
    formats = ['%%Y-%%m-%%d', '%%m/%%d/%%Y', '%%d/%%m/%%Y', '%%Y-%%m-%%d %%H:%%M:%%S', '%%m-%%d-%%Y', '%%d-%%m-%%Y']
    for fmt in formats:
        try:
            return datetime.strptime(date_str, fmt).strftime('%%Y-%%m-%%d')
        except ValueError:
            continue
    return date_str
`, name)
	case strings.Contains(lower, "extract"):
		return fmt.Sprintf(`
def %s(*args, **kwargs):
    """Auto-generated extraction function"""
    if args:
        return str(args[0])
    return ""
`, name)
	case strings.Contains(lower, "parse"):
		return fmt.Sprintf(`
def %s(*args, **kwargs):
    """Auto-generated parse function"""
    if args:
        return args[0]
    return None
`, name)
	default:
		return fmt.Sprintf(`
def %s(*args, **kwargs):
    """Auto-generated function for %s"""
    if args:
        return args[0]
    return None
`, name, name)
	}
}

// Repairable reports whether stderr looks like a failure the script
// repairs can address.
func Repairable(stderr string) bool {
	return strings.Contains(stderr, "NameError") ||
		strings.Contains(stderr, "ModuleNotFoundError") ||
		strings.Contains(strings.ToLower(stderr), "undefined")
}

var tracebackLine = regexp.MustCompile(`File "[^"]+", line (\d+)`)

// RepairRegexError neutralizes a line holding an unterminated character
// class when the traceback points at one. The line is commented out
// rather than rewritten; scripts usually still produce their output
// without the broken pattern.
func RepairRegexError(script, stderr string) string {
	if !regexErrorText(stderr) {
		return script
	}
	m := tracebackLine.FindStringSubmatch(stderr)
	if m == nil {
		return script
	}
	lineNum, err := strconv.Atoi(m[1])
	if err != nil {
		return script
	}
	lines := strings.Split(script, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return script
	}
	line := lines[lineNum-1]
	if !unterminatedCharClass(line) {
		return script
	}
	lines[lineNum-1] = "# " + line + "  # disabled: invalid regular expression"
	return strings.Join(lines, "\n")
}

func regexErrorText(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(stderr, "re.PatternError") ||
		strings.Contains(lower, "unterminated") ||
		strings.Contains(lower, "bad escape")
}

// unterminatedCharClass reports whether the text after the line's first
// '[' lacks a closing ']' before any quote character.
func unterminatedCharClass(line string) bool {
	_, after, ok := strings.Cut(line, "[")
	if !ok {
		return false
	}
	if i := strings.IndexAny(after, `'"`); i >= 0 {
		after = after[:i]
	}
	return !strings.Contains(after, "]")
}
