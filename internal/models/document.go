// Package models defines the core data types for process documents,
// versions, diffs, and the audit trail.
package models

// Document is the versioned unit: a named, ordered sequence of steps
// plus scalar metadata describing the process.
type Document struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Status            string `json:"status,omitempty"`
	Priority          string `json:"priority,omitempty"`
	Department        string `json:"department,omitempty"`
	Frequency         string `json:"frequency,omitempty"`
	EstimatedDuration int    `json:"estimated_duration,omitempty"` // minutes
	Steps             []Step `json:"steps"`
}

// Step is a single process step. StepID is the stable identity used for
// added/removed/modified detection; reordering alone is not a tracked change.
type Step struct {
	StepID           string          `json:"step_id"`
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description,omitempty"`
	LongDescription  string          `json:"long_description,omitempty"`
	WhyItMatters     string          `json:"why_it_matters,omitempty"`
	AutomationLevel  string          `json:"automation_level,omitempty"`
	Checklist        []ChecklistItem `json:"checklist,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	Media            []Media         `json:"media,omitempty"`
}

// ChecklistItem is a single checkbox within a step.
type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required,omitempty"`
}

// Tool references an external tool used by a step.
type Tool struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Media references an attached screenshot, recording, or file.
type Media struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// Clone returns a deep copy of the document. Snapshots stored in the
// version chain are clones, so later caller mutation cannot corrupt history.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	out := *d
	out.Steps = make([]Step, len(d.Steps))

	for i := range d.Steps {
		out.Steps[i] = d.Steps[i].Clone()
	}

	return &out
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s

	if s.Checklist != nil {
		out.Checklist = make([]ChecklistItem, len(s.Checklist))
		copy(out.Checklist, s.Checklist)
	}

	if s.Tools != nil {
		out.Tools = make([]Tool, len(s.Tools))
		copy(out.Tools, s.Tools)
	}

	if s.Media != nil {
		out.Media = make([]Media, len(s.Media))
		copy(out.Media, s.Media)
	}

	return out
}

// Validate checks the structural requirements a snapshot must meet before
// it can be versioned or diffed.
func (d *Document) Validate() error {
	if d == nil {
		return ErrMalformedSnapshot
	}

	if d.ID == "" {
		return ErrMalformedSnapshot
	}

	for i := range d.Steps {
		if d.Steps[i].StepID == "" {
			return ErrMalformedSnapshot
		}
	}

	return nil
}
