package execute

import "strings"

// roleMappings pairs task keywords with the specialist role the execution
// prompt claims. Order matters: the first keyword found in the job text
// decides the primary role.
var roleMappings = []struct {
	Keyword string
	Role    string
}{
	{"data entry", "Data transformation specialist"},
	{"data transformation", "Data transformation specialist"},
	{"excel", "Excel/Sheets specialist"},
	{"spreadsheet", "Excel/Sheets specialist"},
	{"csv", "Data transformation specialist"},
	{"visualization", "Data visualization expert"},
	{"chart", "Data visualization expert"},
	{"graph", "Data visualization expert"},
	{"database", "Database developer"},
	{"sql", "Database developer"},
	{"scraping", "Web scraping specialist"},
	{"api", "Backend developer"},
	{"integration", "Backend developer"},
	{"research", "Research analyst"},
	{"analysis", "Research analyst"},
	{"document", "Technical writer"},
	{"word", "Technical writer"},
	{"pdf", "Technical writer"},
	{"code", "Software developer"},
	{"programming", "Software developer"},
	{"vba", "Excel/Sheets specialist"},
	{"automation", "Software developer"},
}

// skillGroups maps keyword clusters to the skill lines advertised in the
// prompt. Each group contributes once no matter how many of its keywords
// matched.
var skillGroups = []struct {
	Keywords []string
	Skills   []string
}{
	{[]string{"excel", "spreadsheet", "csv", "vba"}, []string{
		"CSV/Excel file manipulation",
		"Python pandas for data processing",
	}},
	{[]string{"pdf", "word", "document"}, []string{
		"Document parsing and text extraction",
	}},
	{[]string{"visualization", "chart", "graph"}, []string{
		"Data visualization with matplotlib/plotly",
	}},
	{[]string{"database", "sql"}, []string{
		"SQL database operations",
	}},
	{[]string{"api", "integration"}, []string{
		"API integration and data fetching",
	}},
}

const defaultRole = "Data transformation specialist"

var defaultSkills = []string{
	"CSV/Excel file manipulation",
	"Python pandas for data processing",
	"Text manipulation and string operations",
}

const maxSkills = 4

// roleAndSkills derives the prompt persona from the job text.
func roleAndSkills(title, description string, requirements []string) (string, []string) {
	combined := strings.ToLower(title + " " + description + " " + strings.Join(requirements, " "))

	matched := map[string]bool{}
	role := ""
	for _, m := range roleMappings {
		if strings.Contains(combined, m.Keyword) {
			matched[m.Keyword] = true
			if role == "" {
				role = m.Role
			}
		}
	}
	if role == "" {
		role = defaultRole
	}

	var skills []string
	for _, group := range skillGroups {
		for _, kw := range group.Keywords {
			if matched[kw] {
				skills = append(skills, group.Skills...)
				break
			}
		}
	}
	if len(skills) == 0 {
		skills = defaultSkills
	}
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return role, skills
}
