package filter

import (
	"time"

	"github.com/WessleyAI/tourvec/engine/domain"
)

// Options are the optional user constraints of a search. Every field
// defaults to "no constraint".
type Options struct {
	Cities     []string   `json:"cities,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Builder turns Options into a Predicate. Dates are converted with the same
// location the loader used for created_at.
type Builder struct {
	loc *time.Location
}

// NewBuilder returns a Builder converting dates in loc (time.Local if nil).
func NewBuilder(loc *time.Location) Builder {
	if loc == nil {
		loc = time.Local
	}
	return Builder{loc: loc}
}

// Build returns nil for no constraints, the single constraint when only one
// is set, and an $and of all of them otherwise.
func (b Builder) Build(o Options) *Predicate {
	var clauses []*Predicate
	if len(o.Cities) > 0 {
		clauses = append(clauses, In(domain.KeyCity, o.Cities...))
	}
	if len(o.Categories) > 0 {
		clauses = append(clauses, In(domain.KeyCategory, o.Categories...))
	}
	if o.StartDate != nil {
		clauses = append(clauses, Gte(domain.KeyCreatedAt, domain.DateTimestamp(*o.StartDate, b.location())))
	}
	if o.EndDate != nil {
		clauses = append(clauses, Lte(domain.KeyCreatedAt, domain.DateTimestamp(*o.EndDate, b.location())))
	}
	return And(clauses...)
}

func (b Builder) location() *time.Location {
	if b.loc == nil {
		return time.Local
	}
	return b.loc
}
