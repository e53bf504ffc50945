package execute

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairImportsAddsMissingImports(t *testing.T) {
	t.Parallel()

	script := "df = pd.read_csv('in.csv')\nresult = json.dumps({'rows': len(df)})\nprint(result)\n"
	repaired := RepairImports(script)

	assert.Contains(t, repaired, "import pandas as pd")
	assert.Contains(t, repaired, "import json")
}

func TestRepairImportsFixesAliaslessPandas(t *testing.T) {
	t.Parallel()

	script := "import pandas\ndf = pd.read_csv('in.csv')\n"
	repaired := RepairImports(script)

	assert.Contains(t, repaired, "import pandas as pd")
	assert.NotContains(t, repaired, "import pandas\nimport pandas")
}

func TestRepairImportsInsertsAfterExistingImports(t *testing.T) {
	t.Parallel()

	script := "import os\nimport sys\n\np = Path('out')\n"
	repaired := RepairImports(script)

	pathIdx := strings.Index(repaired, "from pathlib import Path")
	useIdx := strings.Index(repaired, "p = Path")
	assert.Greater(t, pathIdx, strings.Index(repaired, "import sys"))
	assert.Less(t, pathIdx, useIdx)
}

func TestRepairImportsNoChangesWhenComplete(t *testing.T) {
	t.Parallel()

	script := "import json\nprint(json.dumps({}))\n"
	assert.Equal(t, script, RepairImports(script))
}

func TestRepairNameErrorInsertsDateStub(t *testing.T) {
	t.Parallel()

	script := "import csv\n\nrows = ['01/02/2024']\nfor r in rows:\n    print(normalize_date(r))\n"
	stderr := "Traceback (most recent call last):\n  File \"execute.py\", line 5, in <module>\nNameError: name 'normalize_date' is not defined"

	repaired := RepairNameError(script, stderr)

	assert.Contains(t, repaired, "def normalize_date(date_str):")
	assert.Contains(t, repaired, "strptime")
	// The stub must appear before its first use.
	assert.Less(t, strings.Index(repaired, "def normalize_date"), strings.Index(repaired, "print(normalize_date"))
}

func TestRepairNameErrorGenericStub(t *testing.T) {
	t.Parallel()

	script := "value = clean_row('x')\nprint(value)\n"
	stderr := "NameError: name 'clean_row' is not defined"

	repaired := RepairNameError(script, stderr)
	assert.Contains(t, repaired, "def clean_row(*args, **kwargs):")
}

func TestRepairNameErrorLeavesDefinedFunctionsAlone(t *testing.T) {
	t.Parallel()

	script := "def clean_row(r):\n    return r\n\nprint(clean_row('x'))\n"
	stderr := "NameError: name 'clean_row' is not defined"

	assert.Equal(t, script, RepairNameError(script, stderr))
}

func TestRepairNameErrorIgnoresOtherErrors(t *testing.T) {
	t.Parallel()

	script := "print(1/0)\n"
	assert.Equal(t, script, RepairNameError(script, "ZeroDivisionError: division by zero"))
}

func TestRepairRegexErrorCommentsOutBrokenPattern(t *testing.T) {
	t.Parallel()

	script := "import re\npattern = re.compile('[a-z')\nprint('done')\n"
	stderr := `Traceback (most recent call last):
  File "execute.py", line 2, in <module>
re.error: unterminated character set at position 0`

	repaired := RepairRegexError(script, stderr)

	lines := strings.Split(repaired, "\n")
	assert.True(t, strings.HasPrefix(lines[1], "# pattern = re.compile"))
	assert.Contains(t, lines[1], "disabled: invalid regular expression")
	assert.Equal(t, "print('done')", lines[2])
}

func TestRepairRegexErrorLeavesTerminatedClassAlone(t *testing.T) {
	t.Parallel()

	script := "import re\npattern = re.compile('[a-z]+')\n"
	stderr := `  File "execute.py", line 2, in <module>
re.error: bad escape \q at position 1`

	assert.Equal(t, script, RepairRegexError(script, stderr))
}

func TestRepairRegexErrorIgnoresOtherErrors(t *testing.T) {
	t.Parallel()

	script := "x = data['key']\n"
	stderr := `  File "execute.py", line 1, in <module>
KeyError: 'key'`

	assert.Equal(t, script, RepairRegexError(script, stderr))
}

func TestRepairRegexErrorNeedsTracebackLine(t *testing.T) {
	t.Parallel()

	script := "pattern = '[a-z'\n"
	assert.Equal(t, script, RepairRegexError(script, "unterminated character set"))
}

func TestRepairable(t *testing.T) {
	t.Parallel()

	assert.True(t, Repairable("NameError: name 'x' is not defined"))
	assert.True(t, Repairable("ModuleNotFoundError: No module named 'pandas'"))
	assert.True(t, Repairable("variable is Undefined in template"))
	assert.False(t, Repairable("ZeroDivisionError: division by zero"))
	assert.False(t, Repairable(""))
}

func TestErrorSummaryKeepsLastThreeLines(t *testing.T) {
	t.Parallel()

	stderr := "Traceback (most recent call last):\n  File x\n  File y\nValueError: bad input\n"
	assert.Equal(t, "  File x\n  File y\nValueError: bad input", ErrorSummary(stderr))
	assert.Equal(t, "", ErrorSummary("  \n"))
	assert.Equal(t, "one line", ErrorSummary("one line"))
}
