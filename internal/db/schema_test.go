package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_ClipLayout(t *testing.T) {
	s := NewSchema("footage:clips:idx", "footage:clip:").
		Tag("scene_id", "|").
		Tag("actors", "|").
		Numeric("start").
		Vector("vector", VectorParams{Algorithm: VectorHNSW, Dim: 1536, M: 32, EFConstruct: 400})

	require.NoError(t, s.Validate())
	require.Len(t, s.Fields, 4)

	assert.Equal(t, FieldTag, s.Fields[1].Kind)
	assert.Equal(t, "|", s.Fields[1].Separator)
	assert.False(t, s.Fields[1].CaseSensitive)
	assert.Equal(t, FieldNumeric, s.Fields[2].Kind)

	vec := s.Fields[3].Vector
	assert.Equal(t, DistanceCosine, vec.Distance, "distance defaults to cosine")
	assert.Equal(t, 32, vec.M)
}

func TestVectorParams_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   VectorParams
		want VectorParams
	}{
		{"hnsw keeps tuning", VectorParams{Algorithm: VectorHNSW, Dim: 4, Distance: DistanceIP, M: 8, EFConstruct: 100},
			VectorParams{Algorithm: VectorHNSW, Dim: 4, Distance: DistanceIP, M: 8, EFConstruct: 100}},
		{"flat drops tuning", VectorParams{Algorithm: VectorFlat, Dim: 4, M: 8, EFConstruct: 100},
			VectorParams{Algorithm: VectorFlat, Dim: 4, Distance: DistanceCosine}},
		{"unset algorithm", VectorParams{Dim: 4},
			VectorParams{Algorithm: VectorFlat, Dim: 4, Distance: DistanceCosine}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		wantErr string
	}{
		{"empty index name", NewSchema("", "p:").Tag("x", ""), "invalid index name"},
		{"spaces in name", NewSchema("clips idx", "p:").Tag("x", ""), "invalid index name"},
		{"no fields", NewSchema("idx", "p:"), "no fields"},
		{"zero dim", NewSchema("idx", "p:").Vector("v", VectorParams{}), "positive dimension"},
		{"duplicate", NewSchema("idx", "p:").Tag("location", "|").Numeric("location"), "duplicate"},
		{"two vectors", NewSchema("idx", "p:").Vector("a", VectorParams{Dim: 2}).Vector("b", VectorParams{Dim: 2}), "more than one"},
		{"unknown kind", &Schema{Index: "idx", Fields: []SchemaField{{Name: "f"}}}, "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, ok := range []string{"footage:clips:idx", "a_b-c", "X1"} {
		assert.True(t, IsValidIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "a b", "idx*", "ключ"} {
		assert.False(t, IsValidIdentifier(bad), bad)
	}
}
