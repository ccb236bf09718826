package trigger

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/conveyor/model"
	"golang.org/x/exp/slices"
)

const REASON_KIND_NOT_DECLARED = "event-kind-not-declared"
const REASON_BRANCH_NOT_MATCHED = "branch-not-matched"

// Decision is the outcome of evaluating one event against one workflow's
// trigger filters.
type Decision struct {
	Accepted bool
	Reason   string
}

func accept() Decision {
	return Decision{Accepted: true}
}

func reject(reason string) Decision {
	return Decision{Reason: reason}
}

// Evaluate decides whether an event activates a workflow declaring the
// given filters. The event kind must be among the declared kinds and, when
// the matching filter carries a branch list, the event ref must equal one
// of its entries. Evaluation is pure and never fails, a malformed event is
// rejected with a reason instead.
func Evaluate(filters []model.TriggerFilter, event model.Event) Decision {
	kindDeclared := false
	for _, filter := range filters {
		if filter.Kind != event.Kind {
			continue
		}
		kindDeclared = true
		if len(filter.Branches) == 0 {
			return accept()
		}
		if event.Ref == "" {
			return reject(model.REASON_MALFORMED_EVENT)
		}
		if slices.Contains(filter.Branches, ShortRef(event.Ref)) {
			return accept()
		}
	}
	if !kindDeclared {
		return reject(REASON_KIND_NOT_DECLARED)
	}
	return reject(REASON_BRANCH_NOT_MATCHED)
}

// ValidateFilters rejects filter declarations the evaluator does not
// support. Branch entries are exact names, glob syntax is a configuration
// error surfaced at load time rather than an evaluation concern.
func ValidateFilters(filters []model.TriggerFilter) error {
	for _, filter := range filters {
		if filter.Kind == "" {
			return fmt.Errorf("trigger filter with empty event kind")
		}
		for _, branch := range filter.Branches {
			if branch == "" {
				return fmt.Errorf("trigger filter for %s contains an empty branch entry", filter.Kind)
			}
			if strings.ContainsAny(branch, "*?[") {
				return fmt.Errorf("trigger filter for %s: branch %q uses pattern syntax, only exact names are supported", filter.Kind, branch)
			}
		}
	}
	return nil
}

// ShortRef reduces a fully qualified git ref to the name branch filters are
// declared with.
func ShortRef(ref string) string {
	ref = strings.TrimPrefix(ref, "refs/heads/")
	ref = strings.TrimPrefix(ref, "refs/tags/")
	return ref
}
