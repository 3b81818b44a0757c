package db

import (
	"errors"
	"fmt"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Supported distance metrics. Clip scores assume COSINE.
const (
	DistanceCosine DistanceMetric = "COSINE"
	DistanceIP     DistanceMetric = "IP"
	DistanceL2     DistanceMetric = "L2"
)

// VectorAlgorithm selects how the vector field is indexed.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is brute force. Used when no algorithm is configured.
	VectorFlat VectorAlgorithm = "FLAT"
)

// FieldKind enumerates the schema field kinds the clip index needs.
type FieldKind int

const (
	FieldTag FieldKind = iota + 1
	FieldNumeric
	FieldVector
)

func (k FieldKind) String() string {
	switch k {
	case FieldTag:
		return "TAG"
	case FieldNumeric:
		return "NUMERIC"
	case FieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// VectorParams groups the vector field settings read from configuration.
// M and EFConstruct only apply to HNSW.
type VectorParams struct {
	Algorithm   VectorAlgorithm
	Dim         int
	Distance    DistanceMetric
	M           int
	EFConstruct int
}

// Normalized fills the algorithm and distance when they are unset.
func (p VectorParams) Normalized() VectorParams {
	if p.Algorithm == "" {
		p.Algorithm = VectorFlat
	}
	if p.Distance == "" {
		p.Distance = DistanceCosine
	}
	if p.Algorithm != VectorHNSW {
		p.M, p.EFConstruct = 0, 0
	}
	return p
}

// SchemaField is one entry of an FT.CREATE SCHEMA clause.
type SchemaField struct {
	Name string
	Kind FieldKind

	// Separator splits multi-value TAG fields. Empty means the server default.
	Separator     string
	CaseSensitive bool

	Vector VectorParams
}

// Schema describes a hash-backed FT index over all keys under Prefix.
type Schema struct {
	Index  string
	Prefix string
	Fields []SchemaField
}

// NewSchema starts a schema for index name over keys starting with prefix.
func NewSchema(index, prefix string) *Schema {
	return &Schema{Index: index, Prefix: prefix}
}

// Tag appends a case-insensitive TAG field split on sep.
func (s *Schema) Tag(name, sep string) *Schema {
	s.Fields = append(s.Fields, SchemaField{Name: name, Kind: FieldTag, Separator: sep})
	return s
}

// Numeric appends a sortable NUMERIC field.
func (s *Schema) Numeric(name string) *Schema {
	s.Fields = append(s.Fields, SchemaField{Name: name, Kind: FieldNumeric})
	return s
}

// Vector appends a FLOAT32 vector field.
func (s *Schema) Vector(name string, p VectorParams) *Schema {
	s.Fields = append(s.Fields, SchemaField{Name: name, Kind: FieldVector, Vector: p.Normalized()})
	return s
}

// Validate reports the first structural problem with the schema.
func (s *Schema) Validate() error {
	if !IsValidIdentifier(s.Index) {
		return fmt.Errorf("invalid index name %q", s.Index)
	}
	if len(s.Fields) == 0 {
		return errors.New("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	vectors := 0
	for _, f := range s.Fields {
		if f.Name == "" {
			return errors.New("schema field without a name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case FieldTag, FieldNumeric:
		case FieldVector:
			vectors++
			if f.Vector.Dim <= 0 {
				return fmt.Errorf("vector field %q needs a positive dimension", f.Name)
			}
		default:
			return fmt.Errorf("field %q has unknown kind %s", f.Name, f.Kind)
		}
	}
	if vectors > 1 {
		return errors.New("schema declares more than one vector field")
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
