// Package services holds the lifecycle managers of the onboarding core:
// document, form, and scheduling orchestration plus the progress
// aggregation and activity logging they trigger on the project aggregate.
package services

import (
	"fmt"
	"math"
	"time"

	"github.com/onboardhq/onboardflow/internal/models"
)

// ProgressItem is one required document or form viewed by the aggregator.
type ProgressItem struct {
	Tag  string // semantic type tag, used for the denormalized lists
	Done bool
}

// ComputeProgress returns the integer percentage of required items in a
// done status, rounded to nearest. Zero required items yields 0, not 100:
// absence of requirements is not treated as completion.
func ComputeProgress(requiredItems []ProgressItem) int {
	if len(requiredItems) == 0 {
		return 0
	}
	done := 0
	for _, item := range requiredItems {
		if item.Done {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(requiredItems))))
}

// documentItems builds the aggregator view of a project's required
// document set: one item per required type tag, done when any document
// record of that type is in a done status. The tag list is the
// denominator, so removing a record reopens the requirement instead of
// shrinking the total.
func documentItems(required []string, docs []models.Document) []ProgressItem {
	done := make(map[string]bool)
	for _, d := range docs {
		if d.Status.Done() {
			done[string(d.Type)] = true
		}
	}
	items := make([]ProgressItem, 0, len(required))
	for _, tag := range required {
		items = append(items, ProgressItem{Tag: tag, Done: done[tag]})
	}
	return items
}

// formItems mirrors documentItems for the project's required form set.
func formItems(required []string, forms []models.Form) []ProgressItem {
	done := make(map[string]bool)
	for _, f := range forms {
		if f.Status.Done() {
			done[string(f.Type)] = true
		}
	}
	items := make([]ProgressItem, 0, len(required))
	for _, tag := range required {
		items = append(items, ProgressItem{Tag: tag, Done: done[tag]})
	}
	return items
}

// doneTags returns the distinct tags of done items, preserving first-seen
// order. Feeds the denormalized documents.uploaded / forms.completed lists.
func doneTags(items []ProgressItem) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, item := range items {
		if item.Done && !seen[item.Tag] {
			seen[item.Tag] = true
			tags = append(tags, item.Tag)
		}
	}
	return tags
}

// applyProgress writes a freshly computed progress value onto the project
// and appends the aggregator's audit entry, attributed to the actor whose
// mutation triggered the recompute. Must run inside a project mutator so
// the write is atomic with the triggering change.
func applyProgress(p *models.Project, progress int, actor models.Actor, at time.Time) {
	p.Progress = progress
	appendActivity(p, models.ActivityLog{
		Type:            models.ActivityStatus,
		Description:     fmt.Sprintf("Progress updated to %d%%", progress),
		PerformedBy:     actor.ID,
		PerformedByType: actor.Role,
	}, at)
}
