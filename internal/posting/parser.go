package posting

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	segmentSeparator = regexp.MustCompile(`\n{3,}`)
	currencyAmount   = regexp.MustCompile(`[₹$£€]\d+`)
	budgetPattern    = regexp.MustCompile(`(?i)[₹$£€]\d+[-\d\s]*(?:INR|USD|AUD|GBP|EUR)?(?:\s*/\s*(?:hour|hr|project))?`)
	budgetCapture    = regexp.MustCompile(`[₹$£€]\d+[-\d\s]*(?:INR|USD|AUD|GBP|EUR)?`)
	bulletPrefix     = regexp.MustCompile(`^[-•*]\s*`)
)

// ParseFile reads path and parses every posting segment in it.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read input: %w", err)
	}
	doc := ParseText(string(data))
	doc.Metadata.SourceFile = path
	return doc, nil
}

// ParseText splits text into posting segments and parses each one.
func ParseText(text string) Document {
	var doc Document
	for _, segment := range SplitPostings(text) {
		job, ok := ParsePosting(segment)
		if !ok || job.Title == "" {
			continue
		}
		doc.Jobs = append(doc.Jobs, job)
	}
	doc.Metadata.TotalJobs = len(doc.Jobs)
	doc.Metadata.ConversionDate = time.Now().Format(time.RFC3339)
	return doc
}

// SplitPostings splits raw text into candidate posting segments. Segments
// are separated by 3+ consecutive newlines; a segment qualifies when its
// first line is short enough to be a title and it carries either a status
// word near the top or a currency amount in the first ten lines.
func SplitPostings(text string) []string {
	var jobs []string
	for _, section := range segmentSeparator.Split(text, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		lines := strings.Split(section, "\n")
		firstLine := strings.TrimSpace(lines[0])
		if firstLine == "" || len(firstLine) >= 150 {
			continue
		}

		hasStatus := false
		for i := 1; i < len(lines) && i < 5; i++ {
			switch strings.ToLower(strings.TrimSpace(lines[i])) {
			case "open", "awarded":
				hasStatus = true
			}
		}
		hasBudget := false
		for i := 0; i < len(lines) && i < 10; i++ {
			if currencyAmount.MatchString(lines[i]) {
				hasBudget = true
				break
			}
		}
		if hasStatus || hasBudget {
			jobs = append(jobs, section)
		}
	}
	return jobs
}

// ParsePosting parses a single posting segment. RawText keeps the trimmed
// segment verbatim as the audit trail back to the source.
func ParsePosting(segment string) (JobRecord, bool) {
	trimmed := strings.TrimSpace(segment)
	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return JobRecord{}, false
	}

	job := JobRecord{
		Title:        lines[0],
		Status:       StatusUnknown,
		Requirements: []string{},
		Deliverables: []string{},
		RawText:      trimmed,
	}

	statusIdx := parseStatus(lines, &job)
	parsePostedTime(lines, statusIdx, &job)
	parseEndsTime(lines, &job)
	parseBudget(lines, &job)
	parsePaymentTerms(lines, &job)
	parseExperienceLevel(lines, &job)
	parseSections(lines, &job)
	return job, true
}

func parseStatus(lines []string, job *JobRecord) int {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if lower == "open" {
			job.Status = StatusOpen
			return i
		}
		if strings.Contains(lower, "awarded") {
			job.Status = StatusAwarded
			// Awarded lines sometimes fold the posted info into the same line.
			if strings.Contains(lower, "posted") {
				job.PostedTime = line
			}
			return i
		}
	}
	return -1
}

func parsePostedTime(lines []string, statusIdx int, job *JobRecord) {
	if statusIdx < 0 || job.PostedTime != "" {
		return
	}
	for i := statusIdx + 1; i < len(lines) && i < statusIdx+3; i++ {
		if strings.Contains(strings.ToLower(lines[i]), "posted") {
			job.PostedTime = lines[i]
			return
		}
	}
}

func parseEndsTime(lines []string, job *JobRecord) {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "ends") && (strings.Contains(lower, "day") || strings.Contains(lower, "in")) {
			job.EndsTime = line
			return
		}
	}
}

func parseBudget(lines []string, job *JobRecord) {
	for _, line := range lines {
		// "FIXED PRICE" lines are payment terms, not the budget.
		if strings.Contains(strings.ToLower(line), "fixed price") {
			continue
		}
		if budgetPattern.MatchString(line) {
			job.Budget = line
			return
		}
	}
}

func parsePaymentTerms(lines []string, job *JobRecord) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "paid on delivery") {
			job.PaymentTerms = line
			return
		}
		if strings.Contains(lower, "fixed price") {
			priceLine := line
			if i+1 < len(lines) && currencyAmount.MatchString(lines[i+1]) {
				priceLine = line + " " + lines[i+1]
			}
			job.PaymentTerms = priceLine
			if job.Budget == "" {
				if match := budgetCapture.FindString(priceLine); match != "" {
					job.Budget = match
				}
			}
			return
		}
	}
}

func parseExperienceLevel(lines []string, job *JobRecord) {
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "experience level") {
			continue
		}
		if _, value, found := strings.Cut(line, ":"); found {
			job.ExperienceLevel = strings.TrimSpace(value)
		} else if i+1 < len(lines) {
			job.ExperienceLevel = lines[i+1]
		}
		return
	}
}

func parseSections(lines []string, job *JobRecord) {
	metadataEnd := 0
	for i, line := range lines {
		lower := strings.ToLower(line)
		if lower == "description" {
			metadataEnd = i + 1
		}
		for _, keyword := range []string{"posted", "ends in", "ends:", "paid on"} {
			if strings.Contains(lower, keyword) && i+1 > metadataEnd {
				metadataEnd = i + 1
			}
		}
		if currencyAmount.MatchString(line) && !strings.Contains(lower, "fixed price") && i+1 > metadataEnd {
			metadataEnd = i + 1
		}
	}

	reqIdx, delivIdx, idealIdx := -1, -1, -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "requirements") {
			reqIdx = i
		}
		if strings.HasPrefix(lower, "deliverable") {
			delivIdx = i
		}
		if strings.HasPrefix(lower, "ideal") {
			idealIdx = i
		}
	}

	descStart := max(metadataEnd, 1)
	descEnd := len(lines)
	for _, idx := range []int{reqIdx, delivIdx, idealIdx} {
		if idx >= 0 && idx < descEnd {
			descEnd = idx
		}
	}
	if descEnd > descStart {
		var descLines []string
		for _, line := range lines[descStart:descEnd] {
			if line == "*" || line == "•" {
				continue
			}
			if len(line) <= 2 && isAllDigits(line) {
				continue
			}
			descLines = append(descLines, line)
		}
		job.Description = strings.Join(descLines, "\n")
	}

	// Requirements start at the Requirements or Ideal header, whichever
	// comes first, and run until the Deliverables header.
	reqStart := -1
	for _, idx := range []int{reqIdx, idealIdx} {
		if idx >= 0 && (reqStart < 0 || idx < reqStart) {
			reqStart = idx
		}
	}
	if reqStart >= 0 {
		reqEnd := len(lines)
		if delivIdx >= 0 {
			reqEnd = delivIdx
		}
		for _, line := range lines[reqStart+1 : reqEnd] {
			lower := strings.ToLower(line)
			if strings.HasPrefix(lower, "deliverable") || strings.HasPrefix(lower, "acceptance") {
				continue
			}
			cleaned := bulletPrefix.ReplaceAllString(line, "")
			if len(cleaned) > 3 {
				job.Requirements = append(job.Requirements, cleaned)
			}
		}
	}

	if delivIdx >= 0 {
		for _, line := range lines[delivIdx+1:] {
			if strings.HasPrefix(strings.ToLower(line), "acceptance") {
				continue
			}
			cleaned := bulletPrefix.ReplaceAllString(line, "")
			if cleaned != "" {
				job.Deliverables = append(job.Deliverables, cleaned)
			}
		}
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
