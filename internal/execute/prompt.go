package execute

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gigpipe/gigpipe/internal/catalog"
	"github.com/gigpipe/gigpipe/internal/posting"
)

const (
	descriptionLimit = 500
	previewLines     = 50
)

// BuildPrompt renders the execution request for one job. Input file
// previews are truncated to the first 50 lines; the description to 500
// characters. Files iterate in sorted order so the prompt is stable.
func BuildPrompt(job posting.JobRecord, inputFiles map[string]string, spec catalog.TaskSpec) string {
	role, skills := roleAndSkills(job.Title, job.Description, job.Requirements)

	var skillsList strings.Builder
	for i, skill := range skills {
		if i > 0 {
			skillsList.WriteString("\n")
		}
		skillsList.WriteString("- " + skill)
	}

	requirementsList := numberedList(job.Requirements, "1. Complete the task as described")

	var deliverablesList string
	if len(job.Deliverables) == 0 {
		deliverablesList = "1. **Output**: Completed task deliverables"
	} else {
		var lines []string
		for i, d := range job.Deliverables {
			lines = append(lines, fmt.Sprintf("%d. **%s**: %s - As specified in requirements", i+1, d, d))
		}
		deliverablesList = strings.Join(lines, "\n")
	}

	var constraints []string
	if strings.TrimSpace(job.Budget) != "" {
		terms := job.PaymentTerms
		if strings.TrimSpace(terms) == "" {
			terms = "N/A"
		}
		constraints = append(constraints, fmt.Sprintf("- Budget constraint: %s (%s)", job.Budget, terms))
	}
	constraints = append(constraints,
		"- Maintain data integrity and accuracy",
		"- Follow all specified requirements exactly")

	description := job.Description
	if strings.TrimSpace(description) == "" {
		description = "N/A"
	}
	truncated := ""
	if len(description) > descriptionLimit {
		description = description[:descriptionLimit]
		truncated = "..."
	}

	return fmt.Sprintf(`# Role Assignment

You are a %s. You have deep expertise in:
%s

Your work is characterized by attention to detail, clean outputs, and adherence to specifications.

# Project Brief

**Client Request**: %s

**Context**: %s%s

## Requirements

%s

## Deliverables

%s

## Constraints

%s

%s

## Success Criteria

The task is complete when:
- [ ] All requirements are met
- [ ] All deliverables are produced
- [ ] Outputs are in the correct format
- [ ] Data integrity is maintained

## Execution Notes

- **Output format**: As specified in deliverables
- **Naming convention**: Use descriptive names for output files
- **Quality bar**: Zero errors, complete adherence to specifications
- **Edge cases**: Handle missing data gracefully, document assumptions
- **If blocked**: Document the issue and suggest alternatives

## Artifacts (REQUIRED)

You MUST save all artifacts that document how deliverables were produced:

1. **execute.py**: A standalone Python script that:
   - Reproduces all deliverables when run
   - Contains all transformation logic
   - Includes inline comments explaining key steps
   - Verifies success criteria at the end

2. **All intermediate data**: Raw data fetched from APIs, intermediate processing results

3. **Naming convention**:
   - `+"`execute.py`"+` - main execution script
   - `+"`input.*`"+` - input files
   - `+"`*_cleaned.*`"+`, `+"`*_output.*`"+` - output deliverables
   - `+"`raw_*.json`"+` - raw data from external sources

The client must be able to:
- Re-run `+"`python execute.py`"+` to reproduce results
- Audit exactly how outputs were generated
- Modify parameters and re-execute

## Your Task

Generate the complete solution including:
1. The execute.py script with all necessary code
2. Any required data processing logic
3. Output files in the specified format
4. Documentation of the approach

Return your response as a structured JSON object with:
- "execute_script": The complete Python code for execute.py
- "approach": Brief explanation of your approach
- "deliverables": List of files/outputs produced
- "notes": Any assumptions or important notes`,
		role,
		skillsList.String(),
		orNA(job.Title),
		description, truncated,
		requirementsList,
		deliverablesList,
		strings.Join(constraints, "\n"),
		inputSection(inputFiles, spec))
}

func inputSection(inputFiles map[string]string, spec catalog.TaskSpec) string {
	var b strings.Builder
	b.WriteString("## Input Data\n\n")

	if len(inputFiles) == 0 {
		b.WriteString("- File: Client-provided input files (if applicable)\n")
		b.WriteString("- Format: As specified in requirements\n")
		b.WriteString("- Note: Input files may be provided by client or need to be generated\n")
	} else {
		b.WriteString("**Input files are provided below. Use these actual files for processing:**\n\n")
		names := make([]string, 0, len(inputFiles))
		for name := range inputFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines := strings.Split(inputFiles[name], "\n")
			preview := lines
			continuation := ""
			if len(lines) > previewLines {
				preview = lines[:previewLines]
				continuation = fmt.Sprintf("\n... (file continues, %d total lines)", len(lines))
			}
			fmt.Fprintf(&b, "### File: %s\n```\n%s%s\n```\n\n", name, strings.Join(preview, "\n"), continuation)
		}
	}

	if outputs := spec.DescribeOutputs(); outputs != "" || len(spec.VerificationCriteria) > 0 {
		b.WriteString("\n**Task Specifications:**\n")
		if outputs != "" {
			fmt.Fprintf(&b, "- Expected outputs: %s\n", outputs)
		}
		if len(spec.VerificationCriteria) > 0 {
			fmt.Fprintf(&b, "- Verification criteria: %s\n", strings.Join(spec.VerificationCriteria, ", "))
		}
	}

	return b.String()
}

func numberedList(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	var lines []string
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
