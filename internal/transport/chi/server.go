package chi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/logger"
	healthuc "github.com/kailas-cloud/footage/internal/usecase/health"
	searchuc "github.com/kailas-cloud/footage/internal/usecase/search"
	"github.com/kailas-cloud/footage/internal/version"
)

// Searcher runs the find-footage pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]result.Ranked, error)
	Stream(ctx context.Context, query string, limit int) <-chan searchuc.Event
}

// ClipReader loads a single indexed clip.
type ClipReader interface {
	Get(ctx context.Context, id string) (domclip.Clip, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	clips         ClipReader
	health        HealthChecker
	videoPath     string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// Deps are the Server collaborators. VideoPath is optional.
type Deps struct {
	Search    Searcher
	Clips     ClipReader
	Health    HealthChecker
	VideoPath string
	Logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Server{
		search:        d.Search,
		clips:         d.Clips,
		health:        d.Health,
		videoPath:     d.VideoPath,
		logger:        d.Logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

func (s *Server) log(r *http.Request) *zap.Logger {
	return logger.From(r.Context(), s.logger)
}

// Welcome handles GET /.
func (s *Server) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "footage",
		"version": version.Version,
		"endpoints": []string{
			"POST /api/v1/search",
			"POST /api/v1/search/stream",
			"GET /api/v1/clips/{clipID}",
			"GET /api/v1/video",
			"GET /health",
		},
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, req.Query, req.limit())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, results)
}

// SearchStream handles POST /api/v1/search/stream.
// Validation failures are plain JSON errors; once the stream starts, failures are error frames.
func (s *Server) SearchStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	setStreamHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	ew := newEventWriter(w)
	log := s.log(r)
	terminal := false
	for ev := range s.search.Stream(ctx, req.Query, req.limit()) {
		if err := ew.write(frame(ev)); err != nil {
			log.Debug("stream client gone", zap.Error(err))
			return
		}
		terminal = ev.Terminal()
	}
	// [DONE] only follows a results or error frame.
	if !terminal {
		log.Debug("stream ended without a terminal event")
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err := ew.done(); err != nil {
		log.Debug("stream client gone", zap.Error(err))
	}
}

// GetClip handles GET /api/v1/clips/{clipID}.
func (s *Server) GetClip(w http.ResponseWriter, r *http.Request) {
	c, err := s.clips.Get(r.Context(), chi.URLParam(r, "clipID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clipToResponse(c))
}

// Video handles GET /api/v1/video. Range requests are served by http.ServeContent.
func (s *Server) Video(w http.ResponseWriter, r *http.Request) {
	if s.videoPath == "" {
		writeError(w, http.StatusNotFound, CodeNotFound, "video not configured")
		return
	}
	f, err := os.Open(s.videoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, CodeNotFound, "video not found")
			return
		}
		s.handleDomainError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, CodeNotFound, "video not found")
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}
