// Package diff implements the structural diff engine: a pure comparison of
// two document snapshots producing step-level and field-level changes with
// word-level text diffs for string fields.
package diff

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/procledger/procledger/internal/models"
)

// Engine computes structural diffs between document snapshots. The severity
// fields are heuristic defaults (a renamed step or a status change warrants
// review); callers may override them.
type Engine struct {
	StepNameSeverity Severity
	StatusSeverity   Severity
	RemovedSeverity  Severity
}

// Severity aliases the models type so callers configuring an Engine don't
// need a second import.
type Severity = models.Severity

// NewEngine returns an Engine with the default severity classification.
func NewEngine() *Engine {
	return &Engine{
		StepNameSeverity: models.SeverityWarning,
		StatusSeverity:   models.SeverityWarning,
		RemovedSeverity:  models.SeverityWarning,
	}
}

// GenerateDiff compares snapshot a (older) against snapshot b (newer) and
// returns the structural diff. It is pure and deterministic: inputs are
// never mutated, and no state is kept between calls. Malformed snapshots
// are a contract violation and yield ErrMalformedSnapshot.
func (e *Engine) GenerateDiff(a, b *models.Document, versionIDA, versionIDB string) (*models.VersionDiff, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot a: %w", err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot b: %w", err)
	}

	d := &models.VersionDiff{
		VersionA: versionIDA,
		VersionB: versionIDB,
		Changes:  []models.DiffChange{},
	}

	e.compareSteps(a, b, d)
	e.compareMetadata(a, b, d)
	summarize(d)

	// Change ids are positional, so identical inputs always produce an
	// identical diff.
	for i := range d.Changes {
		d.Changes[i].ID = "chg-" + strconv.Itoa(i+1)
	}

	return d, nil
}

// stepIndex builds a stepId lookup preserving the input order of ids.
func stepIndex(doc *models.Document) (map[string]*models.Step, []string) {
	byID := make(map[string]*models.Step, len(doc.Steps))
	order := make([]string, 0, len(doc.Steps))

	for i := range doc.Steps {
		s := &doc.Steps[i]
		if _, seen := byID[s.StepID]; !seen {
			order = append(order, s.StepID)
		}

		byID[s.StepID] = s
	}

	return byID, order
}

func (e *Engine) compareSteps(a, b *models.Document, d *models.VersionDiff) {
	stepsA, orderA := stepIndex(a)
	stepsB, orderB := stepIndex(b)

	for _, id := range orderA {
		if _, ok := stepsB[id]; ok {
			continue
		}

		old := stepsA[id]
		d.Changes = append(d.Changes, models.DiffChange{
			Type:     models.ChangeRemoved,
			Path:     "steps/" + id,
			Field:    "Step",
			OldValue: old.Name,
			Severity: e.RemovedSeverity,
			StepID:   id,
		})
		d.StepsRemoved = append(d.StepsRemoved, models.StepDiff{StepID: id, StepName: old.Name})
	}

	for _, id := range orderB {
		newStep := stepsB[id]

		old, ok := stepsA[id]
		if !ok {
			d.Changes = append(d.Changes, models.DiffChange{
				Type:     models.ChangeAdded,
				Path:     "steps/" + id,
				Field:    "Step",
				NewValue: newStep.Name,
				Severity: models.SeverityInfo,
				StepID:   id,
			})
			d.StepsAdded = append(d.StepsAdded, models.StepDiff{StepID: id, StepName: newStep.Name})

			continue
		}

		if sd, changes := e.CompareSteps(old, newStep); len(changes) > 0 {
			d.Changes = append(d.Changes, changes...)
			d.StepsModified = append(d.StepsModified, sd)
		}
	}
}

// CompareSteps compares two steps sharing a stepId and returns the per-field
// change flags plus one DiffChange per changed field.
func (e *Engine) CompareSteps(old, updated *models.Step) (models.StepDiff, []models.DiffChange) {
	sd := models.StepDiff{StepID: updated.StepID, StepName: updated.Name}

	var changes []models.DiffChange

	scalar := func(field, oldVal, newVal string, severity models.Severity, flag *bool) {
		if oldVal == newVal {
			return
		}

		*flag = true
		changes = append(changes, models.DiffChange{
			Type:     models.ChangeModified,
			Path:     "steps/" + updated.StepID + "/" + field,
			Field:    field,
			OldValue: oldVal,
			NewValue: newVal,
			Severity: severity,
			StepID:   updated.StepID,
			TextDiff: TextDiff(oldVal, newVal),
		})
	}

	scalar("name", old.Name, updated.Name, e.StepNameSeverity, &sd.NameChanged)
	scalar("short_description", old.ShortDescription, updated.ShortDescription, models.SeverityInfo, &sd.ShortDescriptionChanged)
	scalar("long_description", old.LongDescription, updated.LongDescription, models.SeverityInfo, &sd.LongDescriptionChanged)
	scalar("why_it_matters", old.WhyItMatters, updated.WhyItMatters, models.SeverityInfo, &sd.WhyItMattersChanged)
	scalar("automation_level", old.AutomationLevel, updated.AutomationLevel, models.SeverityInfo, &sd.AutomationLevelChanged)

	shape := func(field string, changed bool, oldCount, newCount int, flag *bool) {
		if !changed {
			return
		}

		*flag = true
		changes = append(changes, models.DiffChange{
			Type:     models.ChangeModified,
			Path:     "steps/" + updated.StepID + "/" + field,
			Field:    field,
			OldValue: strconv.Itoa(oldCount) + " items",
			NewValue: strconv.Itoa(newCount) + " items",
			Severity: models.SeverityInfo,
			StepID:   updated.StepID,
		})
	}

	shape("checklist", checklistChanged(old.Checklist, updated.Checklist),
		len(old.Checklist), len(updated.Checklist), &sd.ChecklistChanged)
	shape("tools", toolsChanged(old.Tools, updated.Tools),
		len(old.Tools), len(updated.Tools), &sd.ToolsChanged)
	shape("media", len(old.Media) != len(updated.Media),
		len(old.Media), len(updated.Media), &sd.MediaChanged)

	return sd, changes
}

// checklistChanged compares checklists by shape: item count or the multiset
// of item texts. Reordering items alone is not a change.
func checklistChanged(a, b []models.ChecklistItem) bool {
	if len(a) != len(b) {
		return true
	}

	textsA := make([]string, len(a))
	textsB := make([]string, len(b))

	for i := range a {
		textsA[i] = a[i].Text
		textsB[i] = b[i].Text
	}

	return multisetDiffers(textsA, textsB)
}

// toolsChanged compares tool lists by count or the multiset of tool names.
func toolsChanged(a, b []models.Tool) bool {
	if len(a) != len(b) {
		return true
	}

	namesA := make([]string, len(a))
	namesB := make([]string, len(b))

	for i := range a {
		namesA[i] = a[i].Name
		namesB[i] = b[i].Name
	}

	return multisetDiffers(namesA, namesB)
}

func multisetDiffers(a, b []string) bool {
	sort.Strings(a)
	sort.Strings(b)

	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}

	return false
}

// metadataField is one trackable document-level scalar.
type metadataField struct {
	name string
	get  func(*models.Document) string
}

var metadataFields = []metadataField{
	{"name", func(d *models.Document) string { return d.Name }},
	{"description", func(d *models.Document) string { return d.Description }},
	{"status", func(d *models.Document) string { return d.Status }},
	{"priority", func(d *models.Document) string { return d.Priority }},
	{"frequency", func(d *models.Document) string { return d.Frequency }},
	{"estimated_duration", func(d *models.Document) string {
		if d.EstimatedDuration == 0 {
			return ""
		}

		return strconv.Itoa(d.EstimatedDuration)
	}},
	{"department", func(d *models.Document) string { return d.Department }},
}

func (e *Engine) compareMetadata(a, b *models.Document, d *models.VersionDiff) {
	for _, f := range metadataFields {
		oldVal, newVal := f.get(a), f.get(b)
		if oldVal == newVal {
			continue
		}

		severity := models.SeverityInfo
		if f.name == "status" {
			severity = e.StatusSeverity
		}

		d.MetadataChanges = append(d.MetadataChanges, models.MetadataChange{
			Field:    f.name,
			OldValue: oldVal,
			NewValue: newVal,
			Severity: severity,
		})
		d.Changes = append(d.Changes, models.DiffChange{
			Type:     models.ChangeModified,
			Path:     "metadata/" + f.name,
			Field:    f.name,
			OldValue: oldVal,
			NewValue: newVal,
			Severity: severity,
			TextDiff: TextDiff(oldVal, newVal),
		})
	}
}

func summarize(d *models.VersionDiff) {
	s := models.DiffSummary{
		TotalChanges:  len(d.Changes),
		StepsAdded:    len(d.StepsAdded),
		StepsRemoved:  len(d.StepsRemoved),
		StepsModified: len(d.StepsModified),
	}

	for _, c := range d.Changes {
		switch c.Type {
		case models.ChangeAdded:
			s.Additions++
		case models.ChangeRemoved:
			s.Deletions++
		case models.ChangeModified:
			s.Modifications++
		}

		if c.Severity == models.SeverityBreaking {
			s.HasBreakingChanges = true
		}
	}

	if s.StepsRemoved > 0 {
		s.HasBreakingChanges = true
	}

	d.Summary = s
}
