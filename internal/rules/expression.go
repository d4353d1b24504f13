package rules

import (
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Expression is an ordered chain of conditions joined pairwise by AND/OR.
//
// Evaluation folds left to right: the running result is combined with the
// next condition using the previous condition's join. There is no operator
// precedence; [A and B or C] reads as ((A and B) or C). This matches the
// row-by-row rule builder the expression is authored in.
type Expression []Condition

// Match evaluates the expression against one item. An empty expression
// matches everything. Evaluation is side-effect-free and deterministic, so
// previews may run it any number of times.
func (e Expression) Match(item *media.Item, now time.Time) bool {
	if len(e) == 0 {
		return true
	}
	result := e[0].Eval(item, now)
	for i := 1; i < len(e); i++ {
		next := e[i].Eval(item, now)
		if e[i-1].Join == JoinOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

// Validate checks every condition and join in the chain.
func (e Expression) Validate() []string {
	var errs []string
	for i, c := range e {
		errs = append(errs, c.Validate(i == len(e)-1)...)
	}
	return errs
}
