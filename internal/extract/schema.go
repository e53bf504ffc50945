package extract

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindStringList
)

// Field describes one required key of a target schema along with the
// default the scraper supplies when the key cannot be recovered.
type Field struct {
	Name    string
	Kind    Kind
	Default any
}

// Schema is the ordered set of fields a stage requires from model output.
type Schema struct {
	Fields []Field
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Describe renders the schema as the JSON shape sent along with a repair
// request so the model knows what shape to produce.
func (s Schema) Describe() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range s.Fields {
		b.WriteString(fmt.Sprintf("  %q: ", f.Name))
		switch f.Kind {
		case KindBool:
			b.WriteString("true or false")
		case KindNumber:
			b.WriteString("number or null")
		case KindStringList:
			b.WriteString(`["list", "of", "strings"]`)
		default:
			b.WriteString(`"string"`)
		}
		if i < len(s.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}
