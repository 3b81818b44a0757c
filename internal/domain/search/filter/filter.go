package filter

import (
	"fmt"
	"sort"
	"strings"
)

// MaxValuesPerGroup is the maximum number of field values per filter group.
const MaxValuesPerGroup = 32

// Field is a filterable clip attribute. The set is closed.
type Field string

// Recognized filter fields.
const (
	FieldSceneID   Field = "scene_id"
	FieldLocation  Field = "location"
	FieldTimeOfDay Field = "time_of_day"
	FieldIntExt    Field = "int_ext"
	FieldActors    Field = "actors"
)

// Fields lists every recognized field in canonical order.
var Fields = []Field{FieldSceneID, FieldLocation, FieldTimeOfDay, FieldIntExt, FieldActors}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter field %q", name)
}

// Attributes is the read-only view of a clip the predicate evaluates.
type Attributes interface {
	// Attribute returns the clip's values for f. Scalar fields return at most one value.
	Attribute(f Field) []string
}

// Clause maps each field to a non-empty set of accepted values.
type Clause map[Field][]string

// NewClause validates field names and drops blank values.
// Fields whose values are all blank are omitted.
func NewClause(raw map[string][]string) (Clause, error) {
	c := Clause{}
	total := 0
	for name, values := range raw {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			c[f] = append(c[f], v)
			total++
		}
	}
	if total > MaxValuesPerGroup {
		return nil, fmt.Errorf("too many filter values (max %d)", MaxValuesPerGroup)
	}
	return c, nil
}

// Fields returns the clause's fields in canonical order.
func (c Clause) Fields() []Field {
	out := make([]Field, 0, len(c))
	for _, f := range Fields {
		if len(c[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Raw converts the clause back to a plain map for serialization.
func (c Clause) Raw() map[string][]string {
	out := make(map[string][]string, len(c))
	for f, vs := range c {
		if len(vs) == 0 {
			continue
		}
		out[string(f)] = append([]string(nil), vs...)
	}
	return out
}

// Set is a structured filter with must/should/must_not semantics.
type Set struct {
	Must    Clause
	Should  Clause
	MustNot Clause
}

// NewSet validates three raw clauses.
func NewSet(must, should, mustNot map[string][]string) (Set, error) {
	m, err := NewClause(must)
	if err != nil {
		return Set{}, fmt.Errorf("must: %w", err)
	}
	s, err := NewClause(should)
	if err != nil {
		return Set{}, fmt.Errorf("should: %w", err)
	}
	n, err := NewClause(mustNot)
	if err != nil {
		return Set{}, fmt.Errorf("must_not: %w", err)
	}
	return Set{Must: m, Should: s, MustNot: n}, nil
}

// IsEmpty reports whether the set has no conditions.
func (s Set) IsEmpty() bool {
	return len(s.Must.Fields()) == 0 && len(s.Should.Fields()) == 0 && len(s.MustNot.Fields()) == 0
}

// Matches evaluates the set against a clip.
// must: every field matches one of its values. should: any pair matches, vacuous when empty.
// must_not: no pair matches. A field missing on the clip never matches.
func (s Set) Matches(a Attributes) bool {
	for f, values := range s.Must {
		if len(values) > 0 && !fieldMatches(a, f, values) {
			return false
		}
	}
	if len(s.Should.Fields()) > 0 {
		matched := false
		for f, values := range s.Should {
			if fieldMatches(a, f, values) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for f, values := range s.MustNot {
		if fieldMatches(a, f, values) {
			return false
		}
	}
	return true
}

func fieldMatches(a Attributes, f Field, values []string) bool {
	have := a.Attribute(f)
	for _, h := range have {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		for _, v := range values {
			if strings.EqualFold(h, strings.TrimSpace(v)) {
				return true
			}
		}
	}
	return false
}

// String renders the set deterministically, for logs.
func (s Set) String() string {
	var b strings.Builder
	write := func(name string, c Clause) {
		fields := c.Fields()
		if len(fields) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(' ')
			}
			vs := append([]string(nil), c[f]...)
			sort.Strings(vs)
			fmt.Fprintf(&b, "%s=%s", f, strings.Join(vs, "|"))
		}
		b.WriteByte('}')
	}
	write("must", s.Must)
	write("should", s.Should)
	write("must_not", s.MustNot)
	return b.String()
}
