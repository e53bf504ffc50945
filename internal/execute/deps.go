package execute

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"sort"
	"strings"
)

// moduleToPackage maps Python import names to the pip package that
// provides them. Imports outside this table are assumed to be stdlib or
// already present and are left alone.
var moduleToPackage = map[string]string{
	"pandas":     "pandas",
	"numpy":      "numpy",
	"matplotlib": "matplotlib",
	"openpyxl":   "openpyxl",
	"xlsxwriter": "xlsxwriter",
	"pdfplumber": "pdfplumber",
	"PyPDF2":     "PyPDF2",
	"pypdf":      "pypdf",
	"docx":       "python-docx",
	"requests":   "requests",
	"httpx":      "httpx",
	"bs4":        "beautifulsoup4",
	"selenium":   "selenium",
	"PIL":        "Pillow",
}

var importStmt = regexp.MustCompile(`(?m)^(?:import|from)\s+(\w+)`)

// Installer installs third-party packages a generated script imports.
// Install is best effort: pip failures are logged and swallowed because
// the script run itself will surface any truly missing module.
type Installer struct {
	Python string
	Logger *log.Logger

	// run overrides command execution in tests.
	run func(ctx context.Context, name string, args ...string) error
}

func NewInstaller(python string, logger *log.Logger) *Installer {
	return &Installer{Python: python, Logger: logger}
}

// Packages returns the pip packages the script needs, sorted.
func Packages(script string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range importStmt.FindAllStringSubmatch(script, -1) {
		pkg, ok := moduleToPackage[m[1]]
		if ok && !seen[pkg] {
			seen[pkg] = true
			out = append(out, pkg)
		}
	}
	sort.Strings(out)
	return out
}

func (in *Installer) Install(ctx context.Context, script string) {
	packages := Packages(script)
	if len(packages) == 0 {
		return
	}
	if in.Logger != nil {
		in.Logger.Printf("installing script dependencies: %s", strings.Join(packages, ", "))
	}

	args := append([]string{"-m", "pip", "install", "--quiet"}, packages...)
	runner := in.run
	if runner == nil {
		runner = func(ctx context.Context, name string, args ...string) error {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
			}
			return nil
		}
	}
	if err := runner(ctx, in.python(), args...); err != nil {
		if in.Logger != nil {
			in.Logger.Printf("dependency install failed (continuing): %v", err)
		}
	}
}

func (in *Installer) python() string {
	if in.Python == "" {
		return "python3"
	}
	return in.Python
}
