package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/footage/internal/db"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
)

// scoreField receives the KNN distance. It is stripped from returned fields.
const scoreField = "__vector_score"

// SearchKNN runs FT.SEARCH "(<prefilter>)=>[KNN k @vector $BLOB]" ordered by distance.
// Entry scores are cosine similarity (1 - distance).
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: query vector is empty")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, classify(db.OpSearch, q.IndexName, err)
	}
	return parseSearchReply(raw)
}

// SearchCount returns the number of documents matching query without fetching any.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, classify(db.OpSearch, index, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	n, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("count reply: %w", err)
	}
	return int(n), nil
}

func knnArgs(q *db.KNNQuery) []string {
	field := q.VectorField
	if field == "" {
		field = db.DefaultVectorField
	}
	prefilter := "*"
	if f := buildFilter(q.Filters); f != "" {
		prefilter = "(" + f + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", prefilter, q.K, field, scoreField)

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1), scoreField)
		args = append(args, q.ReturnFields...)
	}
	return append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)
}

// parseSearchReply reads the RESP2 layout [total, key, [field, value, ...], key, [...], ...].
// Malformed documents are skipped.
func parseSearchReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("search reply total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, kerr := raw[i].ToString()
		pairs, ferr := raw[i+1].ToArray()
		if kerr != nil || ferr != nil {
			continue
		}
		entry := db.SearchEntry{Key: key, Fields: make(map[string]string, len(pairs)/2)}
		for j := 0; j+1 < len(pairs); j += 2 {
			name, nerr := pairs[j].ToString()
			value, verr := pairs[j+1].ToString()
			if nerr != nil || verr != nil {
				continue
			}
			if name == scoreField {
				if d, perr := strconv.ParseFloat(value, 64); perr == nil {
					entry.Score = 1 - d
				}
				continue
			}
			entry.Fields[name] = value
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// buildFilter renders a filter.Set as an FT.SEARCH pre-filter.
//
//	must:     @location:{A | B} @int_ext:{EXT}
//	should:   (@actors:{X} | @location:{Y})
//	must_not: -@time_of_day:{NIGHT}
func buildFilter(set filter.Set) string {
	if set.IsEmpty() {
		return ""
	}
	var b strings.Builder
	sep := func() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
	}
	for _, f := range set.Must.Fields() {
		sep()
		b.WriteString(buildTagFilter(f, set.Must[f]))
	}
	if fields := set.Should.Fields(); len(fields) > 0 {
		sep()
		b.WriteByte('(')
		for i, f := range fields {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(buildTagFilter(f, set.Should[f]))
		}
		b.WriteByte(')')
	}
	for _, f := range set.MustNot.Fields() {
		sep()
		b.WriteByte('-')
		b.WriteString(buildTagFilter(f, set.MustNot[f]))
	}
	return b.String()
}

func buildTagFilter(f filter.Field, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escapeTag(strings.TrimSpace(v))
	}
	return "@" + string(f) + ":{" + strings.Join(escaped, " | ") + "}"
}

// escapeTag backslash-escapes every rune the query parser treats as
// punctuation or whitespace. Letters, digits and underscores pass through.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 8)
	for _, r := range v {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
