package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/footage/internal/db"
)

// CreateIndex issues FT.CREATE for a hash-backed schema.
func (s *Store) CreateIndex(ctx context.Context, schema *db.Schema) error {
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(schema)...).Build()
	return classify(db.OpCreateIndex, schema.Index, s.do(ctx, cmd).Error())
}

// DropIndex removes an index. With deleteDocs the indexed hashes are deleted too (DD).
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs {
		args = append(args, "DD")
	}
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()
	return classify(db.OpDropIndex, name, s.do(ctx, cmd).Error())
}

// IndexExists probes with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	switch err := classify(db.OpIndexInfo, name, s.do(ctx, cmd).Error()); {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrIndexNotFound):
		return false, nil
	default:
		return false, err
	}
}

// createArgs renders everything after FT.CREATE. The schema must be valid.
func createArgs(schema *db.Schema) []string {
	args := []string{schema.Index, "ON", "HASH"}
	if schema.Prefix != "" {
		args = append(args, "PREFIX", "1", schema.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, f := range schema.Fields {
		args = append(args, fieldArgs(f)...)
	}
	return args
}

func fieldArgs(f db.SchemaField) []string {
	args := []string{f.Name, f.Kind.String()}
	switch f.Kind {
	case db.FieldTag:
		if f.Separator != "" {
			args = append(args, "SEPARATOR", f.Separator)
		}
		if f.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case db.FieldNumeric:
		args = append(args, "SORTABLE")
	case db.FieldVector:
		args = append(args, vectorArgs(f.Vector)...)
	}
	return args
}

// vectorArgs renders "<ALGO> <nargs> TYPE FLOAT32 DIM .. DISTANCE_METRIC .. [M ..] [EF_CONSTRUCTION ..]".
func vectorArgs(p db.VectorParams) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(p.Dim),
		"DISTANCE_METRIC", string(p.Distance),
	}
	if p.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(p.M))
	}
	if p.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(p.EFConstruct))
	}
	return append([]string{string(p.Algorithm), strconv.Itoa(len(attrs))}, attrs...)
}
