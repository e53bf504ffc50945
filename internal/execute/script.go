package execute

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gigpipe/gigpipe/internal/extract"
)

// Deliverable is one produced output as reported by the model.
type Deliverable struct {
	Name        string `json:"name"`
	Kind        string `json:"type"`
	Description string `json:"description"`
}

// Criterion is one self-reported success check.
type Criterion struct {
	Criterion string `json:"criterion"`
	Passed    bool   `json:"passed"`
}

// Synthesis is the parsed plan for one job: the script plus the metadata
// the model supplied around it.
type Synthesis struct {
	Script          string
	Approach        string
	Deliverables    []Deliverable
	SuccessCriteria []Criterion
	Notes           string
}

var (
	jsonFence   = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")
	pythonFence = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)\\n```")
)

// ParseSynthesis recovers the execution plan from raw model output. The
// cascade tries fenced JSON blocks, then a brace-balanced object anywhere
// in the text, then the largest fenced code block taken as the script
// verbatim, and finally a minimal placeholder script so execution always
// has something auditable to run.
func ParseSynthesis(response, jobTitle, description string) Synthesis {
	for _, block := range jsonFence.FindAllStringSubmatch(response, -1) {
		if s, ok := synthesisFromJSON(extract.MechanicalRepairs(strings.TrimSpace(block[1]))); ok {
			return s
		}
	}

	if candidate, found := extract.CandidateObject(response); found {
		if s, ok := synthesisFromJSON(extract.MechanicalRepairs(candidate)); ok {
			return s
		}
	}

	if script := largestCodeBlock(response); script != "" {
		return Synthesis{
			Script:          script,
			Approach:        "Extracted Python code from model response",
			Deliverables:    []Deliverable{{Name: "execute.py", Kind: "other", Description: "Main execution script"}},
			SuccessCriteria: []Criterion{{Criterion: "Script extracted", Passed: true}},
			Notes:           "Extracted script from model response",
		}
	}

	return Synthesis{
		Script:          placeholderScript(jobTitle, description),
		Approach:        "Generated placeholder script based on job description",
		Deliverables:    []Deliverable{{Name: "execute.py", Kind: "other", Description: "Main execution script"}},
		SuccessCriteria: []Criterion{{Criterion: "Script generated", Passed: true}},
		Notes:           "Placeholder script generated because no code was found in the response",
	}
}

func synthesisFromJSON(candidate string) (Synthesis, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return Synthesis{}, false
	}
	script, ok := extract.AsString(obj["execute_script"])
	if !ok {
		return Synthesis{}, false
	}

	s := Synthesis{Script: script}
	s.Approach, _ = extract.AsString(obj["approach"])
	s.Notes = notesText(obj["notes"])
	s.Deliverables = deliverablesFrom(obj["deliverables"])
	s.SuccessCriteria = criteriaFrom(obj["success_criteria"])
	return s, true
}

// notesText tolerates the model returning notes as a list.
func notesText(v any) string {
	if s, ok := extract.AsString(v); ok {
		return s
	}
	if items, ok := v.([]any); ok {
		var lines []string
		for _, item := range items {
			if s, ok := extract.AsString(item); ok {
				lines = append(lines, "- "+s)
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func deliverablesFrom(v any) []Deliverable {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Deliverable
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			d := Deliverable{}
			d.Name, _ = extract.AsString(t["name"])
			d.Kind, _ = extract.AsString(t["type"])
			d.Description, _ = extract.AsString(t["description"])
			if d.Name != "" {
				out = append(out, d)
			}
		case string:
			out = append(out, Deliverable{Name: t, Kind: "other"})
		}
	}
	return out
}

func criteriaFrom(v any) []Criterion {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Criterion
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := Criterion{}
		c.Criterion, _ = extract.AsString(m["criterion"])
		c.Passed, _ = extract.AsBool(m["passed"])
		if c.Criterion != "" {
			out = append(out, c)
		}
	}
	return out
}

func largestCodeBlock(response string) string {
	best := ""
	for _, block := range pythonFence.FindAllStringSubmatch(response, -1) {
		code := strings.TrimSpace(block[1])
		if len(code) > len(best) {
			best = code
		}
	}
	return best
}

// placeholderScript writes a status file so the run always leaves an
// auditable artifact even when the model produced no usable code.
func placeholderScript(jobTitle, description string) string {
	if strings.TrimSpace(description) == "" {
		description = "Task execution"
	}
	return fmt.Sprintf(`#!/usr/bin/env python3
"""
%s - Minimal Output Script
Fallback script to ensure deliverables are created.
"""

import os
from pathlib import Path
from datetime import datetime

script_dir = os.path.dirname(os.path.abspath(__file__))
output_dir = Path(os.path.join(script_dir, 'output'))
output_dir.mkdir(parents=True, exist_ok=True)

def main():
    print("Executing: %s")

    output_file = output_dir / 'output.txt'
    with open(output_file, 'w', encoding='utf-8') as f:
        f.write("Task: %s\n")
        f.write("Status: Completed (Fallback)\n")
        f.write(f"Timestamp: {datetime.now().isoformat()}\n\n")
        f.write("Description: %s\n\n")
        f.write("Note: This output was generated by a fallback script.\n")

    print(f"Output saved to: {output_file}")

if __name__ == "__main__":
    main()
`, jobTitle, jobTitle, jobTitle, description)
}
