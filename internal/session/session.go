// Package session names pipeline runs and their on-disk artifacts.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a sortable run identifier: UTC timestamp plus a short
// random suffix so two runs started in the same second stay distinct.
func NewID() string {
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, uuid.NewString()[:8])
}

// Stamp is the timestamp format used in batch artifact filenames, e.g.
// assessments_20260830_142501.json.
func Stamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// SanitizeTitle converts a job title into a directory name the way the
// artifact layout expects: spaces and path separators become underscores.
func SanitizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "unknown"
	}
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return r.Replace(strings.TrimSpace(title))
}
