package execute

import (
	"fmt"
	"regexp"
	"strings"
)

// Generated scripts refer to input files by bare name ("data.csv") because
// that is what the prompt previews show. At run time the script lives in
// the job output directory and the inputs live in the catalog folder, so
// references are rewritten relative to the script location. FixPaths is
// idempotent: running it over an already fixed script changes nothing.
func FixPaths(script, relInputPath string) string {
	if relInputPath == "" {
		return script
	}
	rel := strings.TrimSuffix(relInputPath, "/")

	// Collapse duplicated segments left by an earlier pass.
	dup := regexp.MustCompile(regexp.QuoteMeta(rel) + "/" + regexp.QuoteMeta(rel))
	script = dup.ReplaceAllString(script, rel)

	// Already anchored scripts pass through untouched.
	if strings.Contains(script, "os.path.join(script_dir, '"+rel+"'") {
		return script
	}

	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(['"])(\w+\.csv)` + `(['"])`),
		regexp.MustCompile(`(['"])(\w+\.xlsx)` + `(['"])`),
		regexp.MustCompile(`(['"])(\w+\.json)` + `(['"])`),
		regexp.MustCompile(`(['"])(\w+\.txt)` + `(['"])`),
		regexp.MustCompile(`(['"])(\w+\.md)` + `(['"])`),
	}
	for _, p := range patterns {
		script = p.ReplaceAllString(script, "${1}"+rel+"/${2}${3}")
	}

	// input/ directory references.
	inputDir := regexp.MustCompile(`(['"])input/([^'"]+)(['"])`)
	script = inputDir.ReplaceAllString(script, "${1}"+rel+"/${2}${3}")

	script = injectScriptDir(script)

	// Anchor the rewritten input paths to the script location.
	anchored := regexp.MustCompile(`['"]` + regexp.QuoteMeta(rel) + `/([^'"]+)['"]`)
	script = anchored.ReplaceAllString(script,
		"os.path.abspath(os.path.join(script_dir, '"+rel+"', '${1}'))")

	// Output paths likewise resolve under the script directory.
	outputRef := regexp.MustCompile(`(['"])output/([^'"]+)['"]`)
	script = outputRef.ReplaceAllString(script, "os.path.join(script_dir, 'output', '${2}')")
	makedirs := regexp.MustCompile(`os\.makedirs\(['"]output['"]`)
	script = makedirs.ReplaceAllString(script, "os.makedirs(os.path.join(script_dir, 'output')")

	script = dup.ReplaceAllString(script, rel)
	return script
}

const scriptDirPreamble = "\n# Resolve paths relative to this script\nscript_dir = os.path.dirname(os.path.abspath(__file__))\n"

var importOS = regexp.MustCompile(`(?m)^import\s+os[^\n]*\n`)

// injectScriptDir adds the script_dir preamble after "import os", adding
// the import itself first when the script lacks it.
func injectScriptDir(script string) string {
	if strings.Contains(script, "script_dir") {
		return script
	}
	if loc := importOS.FindStringIndex(script); loc != nil {
		return script[:loc[1]] + scriptDirPreamble + script[loc[1]:]
	}
	return fmt.Sprintf("import os\n%s\n%s", scriptDirPreamble, script)
}
