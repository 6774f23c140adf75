// Package filter models metadata predicates over place records and builds
// them from optional user constraints.
package filter

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Op is a predicate operator.
type Op string

const (
	OpEq  Op = "$eq"
	OpIn  Op = "$in"
	OpGte Op = "$gte"
	OpLte Op = "$lte"
	OpAnd Op = "$and"
)

// Predicate is a node in a metadata filter tree. A nil *Predicate matches
// every record.
type Predicate struct {
	Op      Op
	Field   string
	Values  []string     // OpEq (one value) and OpIn
	Bound   int64        // OpGte, OpLte
	Clauses []*Predicate // OpAnd
}

// Eq matches records whose field equals value exactly.
func Eq(field, value string) *Predicate {
	return &Predicate{Op: OpEq, Field: field, Values: []string{value}}
}

// In matches records whose field is one of values.
func In(field string, values ...string) *Predicate {
	return &Predicate{Op: OpIn, Field: field, Values: slices.Clone(values)}
}

// Gte matches records whose integer field is >= bound.
func Gte(field string, bound int64) *Predicate {
	return &Predicate{Op: OpGte, Field: field, Bound: bound}
}

// Lte matches records whose integer field is <= bound.
func Lte(field string, bound int64) *Predicate {
	return &Predicate{Op: OpLte, Field: field, Bound: bound}
}

// And combines clauses conjunctively. Nil clauses are skipped; zero clauses
// yield nil and a single clause is returned unwrapped.
func And(clauses ...*Predicate) *Predicate {
	var kept []*Predicate
	for _, c := range clauses {
		if c != nil {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &Predicate{Op: OpAnd, Clauses: kept}
}

// Match evaluates p against a metadata map. Fields that are missing or of
// the wrong type never match.
func (p *Predicate) Match(meta map[string]any) bool {
	if p == nil {
		return true
	}
	switch p.Op {
	case OpAnd:
		for _, c := range p.Clauses {
			if !c.Match(meta) {
				return false
			}
		}
		return true
	case OpEq, OpIn:
		s, ok := meta[p.Field].(string)
		return ok && slices.Contains(p.Values, s)
	case OpGte:
		n, ok := asInt64(meta[p.Field])
		return ok && n >= p.Bound
	case OpLte:
		n, ok := asInt64(meta[p.Field])
		return ok && n <= p.Bound
	}
	return false
}

// Fields returns every metadata field the predicate references, in order of
// first appearance.
func (p *Predicate) Fields() []string {
	if p == nil {
		return nil
	}
	if p.Op != OpAnd {
		return []string{p.Field}
	}
	var out []string
	for _, c := range p.Clauses {
		for _, f := range c.Fields() {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}

// MarshalJSON renders the predicate in the document-store "where" style,
// e.g. {"$and":[{"city":{"$in":["Taipei"]}},{"created_at":{"$gte":1}}]}.
func (p *Predicate) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	switch p.Op {
	case OpAnd:
		return json.Marshal(map[string]any{string(OpAnd): p.Clauses})
	case OpEq:
		return json.Marshal(map[string]any{p.Field: map[string]any{string(OpEq): p.Values[0]}})
	case OpIn:
		return json.Marshal(map[string]any{p.Field: map[string]any{string(OpIn): p.Values}})
	case OpGte, OpLte:
		return json.Marshal(map[string]any{p.Field: map[string]any{string(p.Op): p.Bound}})
	}
	return nil, fmt.Errorf("filter: unknown op %q", p.Op)
}

// String is the JSON rendering, used in logs.
func (p *Predicate) String() string {
	b, err := p.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(b)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
