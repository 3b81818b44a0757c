package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/request"
)

const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// SearchRequest is the body of both search endpoints.
// Any numeric Limit is accepted; values outside [1, 20] are clamped, fractions truncated.
type SearchRequest struct {
	Query string      `json:"query" validate:"required,max=4096"`
	Limit json.Number `json:"limit,omitempty"`
}

func (r SearchRequest) limit() int {
	if r.Limit == "" {
		return request.DefaultLimit
	}
	// Out-of-range literals parse to ±Inf with ErrRange.
	n, err := strconv.ParseFloat(r.Limit.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return request.DefaultLimit
	}
	switch {
	case n < request.MinLimit:
		return request.MinLimit
	case n > request.MaxLimit:
		return request.MaxLimit
	}
	return int(n)
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (SearchRequest, error) {
	var req SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is required")
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return req, validationMessage(err)
	}
	return req, nil
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// FiltersDTO is the wire form of a filter set.
type FiltersDTO struct {
	Must    map[string][]string `json:"must,omitempty"`
	Should  map[string][]string `json:"should,omitempty"`
	MustNot map[string][]string `json:"must_not,omitempty"`
}

func filtersToDTO(s filter.Set) FiltersDTO {
	return FiltersDTO{Must: s.Must.Raw(), Should: s.Should.Raw(), MustNot: s.MustNot.Raw()}
}

// ClipResponse is the clip detail body.
type ClipResponse struct {
	domclip.Clip
	StartDisplay string         `json:"start_display"`
	EndDisplay   string         `json:"end_display"`
	Metadata     map[string]any `json:"metadata"`
}

func clipToResponse(c domclip.Clip) ClipResponse {
	return ClipResponse{
		Clip:         c,
		StartDisplay: c.StartDisplay(),
		EndDisplay:   c.EndDisplay(),
		Metadata:     c.Metadata(),
	}
}
