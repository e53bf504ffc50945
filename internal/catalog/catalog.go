// Package catalog locates the client-provided input files for a job. Input
// folders live under one base directory; jobs are matched to folders by
// title keywords with a fixed table of known pairings as backstop.
package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gigpipe/gigpipe/internal/posting"
)

// TaskSpec is the optional machine-readable contract shipped alongside a
// job's input files as task_spec.json.
type TaskSpec struct {
	InputFile            string          `json:"input_file"`
	ExpectedOutputs      json.RawMessage `json:"expected_outputs"`
	VerificationCriteria []string        `json:"verification_criteria"`
}

// knownFolders pairs title keyword sets with their input folder when the
// generic scan cannot decide. All keywords in a set must appear. A job
// titled "PDF Text Data Entry" must NOT land on urls_to_pdf, which is why
// the pdf pairing also requires "url" and "to".
var knownFolders = []struct {
	keywords []string
	folder   string
}{
	{[]string{"ad_001"}, "ad_001_sales_viz"},
	{[]string{"sales", "visualization"}, "ad_001_sales_viz"},
	{[]string{"ad_003"}, "ad_003_sheets_entry"},
	{[]string{"sheets", "entry"}, "ad_003_sheets_entry"},
	{[]string{"ad_005"}, "ad_005_astrology_db"},
	{[]string{"astrology", "database"}, "ad_005_astrology_db"},
	{[]string{"ad_009"}, "ad_009_word_to_excel"},
	{[]string{"word", "excel"}, "ad_009_word_to_excel"},
	{[]string{"ad_011"}, "ad_011_urls_to_pdf"},
	{[]string{"url", "pdf", "to"}, "ad_011_urls_to_pdf"},
}

// loadableExts are the plain-text input formats included in file previews.
var loadableExts = map[string]bool{".csv": true, ".json": true, ".txt": true, ".md": true}

type Catalog struct {
	BaseDir string
}

func New(baseDir string) *Catalog {
	return &Catalog{BaseDir: baseDir}
}

// FindInputFolder resolves the input folder for a job. The first three
// title words are checked as substrings of each folder name; failing that,
// the known pairing table decides. The second return is false when nothing
// matches, which is a normal outcome for jobs without provided files.
func (c *Catalog) FindInputFolder(job posting.JobRecord) (string, bool) {
	title := strings.ToLower(job.Title)

	entries, err := os.ReadDir(c.BaseDir)
	if err == nil {
		words := strings.Fields(title)
		if len(words) > 3 {
			words = words[:3]
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := strings.ToLower(entry.Name())
			for _, word := range words {
				// Short tokens like "pdf" or "to" collide with
				// unrelated folder names; the pairing table below
				// handles those cases with full keyword sets.
				if len(word) < 4 {
					continue
				}
				if strings.Contains(name, word) {
					return filepath.Join(c.BaseDir, entry.Name()), true
				}
			}
		}
	}

	for _, pairing := range knownFolders {
		all := true
		for _, kw := range pairing.keywords {
			if !strings.Contains(title, kw) {
				all = false
				break
			}
		}
		if all {
			return filepath.Join(c.BaseDir, pairing.folder), true
		}
	}

	return "", false
}

// LoadFiles reads the loadable input files from dir, keyed by filename,
// and parses task_spec.json when present. A missing or unreadable dir
// yields empty results, not an error: jobs without inputs still execute.
func (c *Catalog) LoadFiles(dir string) (map[string]string, TaskSpec) {
	files := map[string]string{}
	var spec TaskSpec

	if dir == "" {
		return files, spec
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files, spec
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "task_spec.json" {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err == nil {
				// A malformed spec is ignored; the files still load.
				_ = json.Unmarshal(data, &spec)
			}
			continue
		}
		if !loadableExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		files[name] = string(data)
	}

	return files, spec
}

// DescribeOutputs renders the expected_outputs block for prompt inclusion.
func (s TaskSpec) DescribeOutputs() string {
	if len(s.ExpectedOutputs) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, s.ExpectedOutputs, "", "  "); err != nil {
		return string(s.ExpectedOutputs)
	}
	return buf.String()
}

// RelativeTo reports the folder path as the executed script will see it
// from its own directory, e.g. ../../inputs/ad_003_sheets_entry.
func (c *Catalog) RelativeTo(folder, scriptDir string) string {
	rel, err := filepath.Rel(scriptDir, folder)
	if err != nil {
		return folder
	}
	return filepath.ToSlash(rel)
}
