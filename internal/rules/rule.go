package rules

import (
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Rule selects media of one kind and applies an ordered action list to every
// match. Higher priority runs first; equal priorities keep creation order.
type Rule struct {
	ID        int64
	Name      string
	Kind      media.Kind
	Libraries []string // empty = all libraries

	Expression Expression
	Actions    []Action

	BufferDays *int // override for the global queue buffer
	Priority   int
	Active     bool

	CreatedAt      time.Time
	LastRunAt      *time.Time
	LastMatchCount *int
}

// AppliesTo reports whether the rule's kind and library scope admit the item.
func (r *Rule) AppliesTo(item *media.Item) bool {
	if item.Kind != r.Kind {
		return false
	}
	if len(r.Libraries) == 0 {
		return true
	}
	for _, lib := range r.Libraries {
		if lib == item.Library {
			return true
		}
	}
	return false
}

// Matches applies the rule's scope and expression to one item.
func (r *Rule) Matches(item *media.Item, now time.Time) bool {
	return r.AppliesTo(item) && r.Expression.Match(item, now)
}

// Validate checks the rule for submission. Returns all problems found.
func (r *Rule) Validate() []string {
	var errs []string
	if r.Name == "" {
		errs = append(errs, "name is required")
	}
	if !r.Kind.Valid() {
		errs = append(errs, "kind must be movie, show, season or episode")
	}
	if r.BufferDays != nil && *r.BufferDays < 0 {
		errs = append(errs, "buffer_days must not be negative")
	}
	errs = append(errs, r.Expression.Validate()...)
	errs = append(errs, validateActions(r.Actions)...)
	return errs
}

// RunResult summarizes one rule execution.
type RunResult struct {
	Matched int `json:"matched"`
	Queued  int `json:"queued"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}
