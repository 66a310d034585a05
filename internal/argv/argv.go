// Package argv turns a variant into the argument vector used to launch the
// benchmark target.
//
// Every element of the configured command is a text/template evaluated
// against the variant's axis values, for example
//
//	--render-distance={{.render_distance}}
//	--features=benchmark,use-{{.svo_type}}
//
// Elements without template actions are passed through unchanged.
package argv

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/deixis/benchsweep/internal/sweep"
)

// Template is a compiled command line.
type Template struct {
	raw   []string
	elems []*template.Template // nil for literal elements
}

// Compile parses each element of command. It fails on an empty command or
// a malformed template.
func Compile(command []string) (*Template, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	t := &Template{
		raw:   command,
		elems: make([]*template.Template, len(command)),
	}
	for i, s := range command {
		if !strings.Contains(s, "{{") {
			continue
		}
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).
			Option("missingkey=error").
			Parse(s)
		if err != nil {
			return nil, fmt.Errorf("command[%d] %q: %w", i, s, err)
		}
		t.elems[i] = tmpl
	}
	return t, nil
}

// Expand renders the command for v. Referencing an axis the variant does
// not define is an error.
func (t *Template) Expand(v sweep.Variant) ([]string, error) {
	data := v.Map()
	out := make([]string, len(t.raw))
	var buf bytes.Buffer
	for i, tmpl := range t.elems {
		if tmpl == nil {
			out[i] = t.raw[i]
			continue
		}
		buf.Reset()
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("command[%d] %q for %s: %w", i, t.raw[i], v, err)
		}
		out[i] = buf.String()
	}
	return out, nil
}
