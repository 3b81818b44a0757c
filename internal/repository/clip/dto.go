package clip

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/footage/internal/db"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
)

const (
	fieldPayload = "payload"
	fieldStart   = "start"
	tagSeparator = "|"
)

// buildSchema declares one TAG per filter field, a NUMERIC start and the vector.
// Redis TAG matching is case-insensitive unless CASESENSITIVE is set.
func buildSchema(name, prefix string, vector db.VectorParams) (*db.Schema, error) {
	s := db.NewSchema(name, prefix)
	for _, f := range filter.Fields {
		s.Tag(string(f), tagSeparator)
	}
	s.Numeric(fieldStart).Vector(db.DefaultVectorField, vector)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// toHash flattens a clip into indexable hash fields plus a JSON payload.
func toHash(c domclip.Clip, vector []float32) (map[string]string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	m := map[string]string{
		fieldPayload:          string(payload),
		fieldStart:            strconv.FormatFloat(c.Start, 'f', -1, 64),
		db.DefaultVectorField: db.EncodeVector(vector),
	}
	for _, f := range filter.Fields {
		values := c.Attribute(f)
		clean := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(strings.ReplaceAll(v, tagSeparator, " "))
			if v != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			m[string(f)] = strings.Join(clean, tagSeparator)
		}
	}
	return m, nil
}

// fromHash restores a clip from its payload field.
func fromHash(m map[string]string) (domclip.Clip, error) {
	raw, ok := m[fieldPayload]
	if !ok || raw == "" {
		return domclip.Clip{}, fmt.Errorf("missing %s field", fieldPayload)
	}
	var c domclip.Clip
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domclip.Clip{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return c, nil
}
