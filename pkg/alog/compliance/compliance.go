// Package compliance checks an entity's requirements against what it has.
package compliance

import (
	"fmt"

	"github.com/cognicore/alog/pkg/alog/kb"
)

// Facts is the read side of the knowledge base the check needs.
type Facts interface {
	Facts() []kb.Fact
	Has(f kb.Fact) bool
}

// Report is the outcome of a check.
type Report struct {
	Entity string
	// Missing is the first requirement, in fact order, the entity does not have.
	// Empty means compliant.
	Missing string
}

// Compliant reports whether nothing is missing.
func (r Report) Compliant() bool { return r.Missing == "" }

func (r Report) String() string {
	if r.Compliant() {
		return fmt.Sprintf("[SYSTEM] %s is compliant.", r.Entity)
	}
	return fmt.Sprintf("[SYSTEM] %s is missing required: %s", r.Entity, r.Missing)
}

// Check scans the (entity, requires, r) facts in order and stops at the first r
// without a matching (entity, has, r).
func Check(kbase Facts, entity string) Report {
	for _, f := range kbase.Facts() {
		if f.Subject != entity || f.Relation != kb.Requires {
			continue
		}
		if !kbase.Has(kb.Fact{Subject: entity, Relation: kb.Has, Object: f.Object}) {
			return Report{Entity: entity, Missing: f.Object}
		}
	}
	return Report{Entity: entity}
}
