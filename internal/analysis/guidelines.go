package analysis

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Guidelines is a review policy loaded from guidelines_file.
type Guidelines struct {
	// Focus lists areas the reviewer should prioritize.
	Focus []string `yaml:"focus,omitempty"`
	// Required lists checks to evaluate on every file.
	Required []RequiredCheck `yaml:"required,omitempty"`
	// Language is the natural language for Descrizione and Suggerimento.
	Language string `yaml:"language,omitempty"`
	// Notes is appended to the prompt verbatim.
	Notes string `yaml:"notes,omitempty"`
}

// RequiredCheck is a policy check that should always be enforced.
type RequiredCheck struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// LoadGuidelines reads a guidelines file. Returns nil Guidelines and nil
// error if path is empty.
func LoadGuidelines(path string) (*Guidelines, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading guidelines file: %w", err)
	}
	var g Guidelines
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing guidelines file: %w", err)
	}
	for i, r := range g.Required {
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("required check %d (%q) has no text", i, r.ID)
		}
	}
	return &g, nil
}

// promptSection returns the prompt instructions derived from g.
func (g *Guidelines) promptSection() string {
	if g == nil {
		return ""
	}

	var b strings.Builder
	if len(g.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize issues in these areas.\n", strings.Join(g.Focus, ", "))
	}
	if len(g.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range g.Required {
			if req.ID != "" {
				fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
			} else {
				fmt.Fprintf(&b, "- %s\n", req.Text)
			}
		}
	}
	if g.Language != "" {
		fmt.Fprintf(&b, "\nWrite Descrizione and Suggestion in %s. Keep the JSON keys exactly as shown.\n", g.Language)
	}
	if notes := strings.TrimSpace(g.Notes); notes != "" {
		b.WriteString("\n" + notes + "\n")
	}
	return b.String()
}
