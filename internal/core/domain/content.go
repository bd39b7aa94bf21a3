package domain

import "strings"

// ExperimentContent is the structured lab-report body an LLM generation
// attempt must produce for a single experiment. It is produced atomically:
// a successful (re)generation overwrites the whole object, never merges.
type ExperimentContent struct {
	Title        string   `json:"title"`
	Aim          string   `json:"aim"`
	Apparatus    []string `json:"apparatus"`
	Theory       string   `json:"theory"`
	Procedure    []string `json:"procedure"`
	Code         string   `json:"code,omitempty"`
	CodeOutput   string   `json:"codeOutput"`
	Observations string   `json:"observations"`
	Calculations string   `json:"calculations"`
	Result       string   `json:"result"`
	Precautions  []string `json:"precautions"`
	References   []string `json:"references"`
}

// Validate checks the required fields and returns a *SchemaValidationError
// naming every missing one. Code is optional. An empty CodeOutput is
// accepted here: the parser enforces key presence and the generator's
// programming-lab completeness check enforces a non-empty transcript where
// one is required.
func (c *ExperimentContent) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"title", c.Title},
		{"aim", c.Aim},
		{"theory", c.Theory},
		{"observations", c.Observations},
		{"calculations", c.Calculations},
		{"result", c.Result},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &SchemaValidationError{Missing: missing}
	}

	// List fields may be empty but never nil once validated.
	if c.Apparatus == nil {
		c.Apparatus = []string{}
	}
	if c.Procedure == nil {
		c.Procedure = []string{}
	}
	if c.Precautions == nil {
		c.Precautions = []string{}
	}
	if c.References == nil {
		c.References = []string{}
	}
	return nil
}
