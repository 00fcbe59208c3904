package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/matzehuels/sldview/pkg/buildinfo"
	errs "github.com/matzehuels/sldview/pkg/errors"
	"github.com/matzehuels/sldview/pkg/pipeline"
	"github.com/matzehuels/sldview/pkg/style"
	"github.com/matzehuels/sldview/pkg/terria"
)

// maxJSONBody bounds JSON request bodies. SLD bodies are bounded by the
// fetcher's document limit instead.
const maxJSONBody = 1 << 20

// =============================================================================
// Wire types
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type compileRequest struct {
	Source  string `json:"source"`
	Kind    string `json:"kind,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
}

type compileResponse struct {
	Style    style.Result `json:"style"`
	Stop     *stopJSON    `json:"stop,omitempty"`
	CacheHit bool         `json:"cacheHit"`
}

type catalogRequest struct {
	Resource terria.Resource `json:"resource"`

	// SLD is the URL of the resource's style document.
	SLD string `json:"sld,omitempty"`

	// SLDText is an inline style document; it replaces SLD.
	SLDText string `json:"sldText,omitempty"`

	Kind  string `json:"kind,omitempty"`
	Start bool   `json:"start,omitempty"`
}

type catalogStartResponse struct {
	URL  string    `json:"url"`
	Stop *stopJSON `json:"stop,omitempty"`
}

type stopJSON struct {
	Stage   style.Stage `json:"stage"`
	Code    errs.Code   `json:"code,omitempty"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

func newStop(stop *style.Stop) *stopJSON {
	if stop == nil {
		return nil
	}
	return &stopJSON{Stage: stop.Stage, Code: errs.GetCode(stop.Err), Message: errs.UserMessage(stop.Err)}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// handleCompile accepts either the SLD itself or a JSON body naming it.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.Options{Kind: style.Kind(r.URL.Query().Get("kind"))}
	opts.Refresh, _ = strconv.ParseBool(r.URL.Query().Get("refresh"))

	if isJSON(r) {
		var req compileRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		if err := errs.ValidateURL(req.Source); err != nil {
			s.writeError(w, err)
			return
		}
		opts.Source = req.Source
		opts.Refresh = opts.Refresh || req.Refresh
		if req.Kind != "" {
			opts.Kind = style.Kind(req.Kind)
		}
	} else {
		data, err := s.readDocument(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts.Inline = data
	}

	res, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{Style: res.Style, Stop: newStop(res.Stop), CacheHit: res.CacheHit})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Resource.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Start && s.cfg.InstanceURL == "" {
		s.writeError(w, errs.New(errs.ErrCodeUnsupported, "no viewer instance URL is configured"))
		return
	}

	kind := terria.FormatFamily(req.Resource.Format).StyleKind()
	if req.Kind != "" {
		kind = style.Kind(req.Kind)
	}

	var (
		compiled style.Result
		stop     *style.Stop
	)
	if req.SLD != "" || req.SLDText != "" {
		opts := pipeline.Options{Kind: kind}
		if req.SLDText != "" {
			opts.Inline = []byte(req.SLDText)
		} else {
			if err := errs.ValidateURL(req.SLD); err != nil {
				s.writeError(w, err)
				return
			}
			opts.Source = req.SLD
		}
		res, err := s.cfg.Runner.Execute(r.Context(), opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		compiled, stop = res.Style, res.Stop
	}

	cfg := s.cfg.Builder.Build(req.Resource, compiled)
	if !req.Start {
		writeJSON(w, http.StatusOK, cfg)
		return
	}
	link, err := terria.EncodeStart(s.cfg.InstanceURL, cfg)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "encode start URL"))
		return
	}
	writeJSON(w, http.StatusOK, catalogStartResponse{URL: link, Stop: newStop(stop)})
}

// =============================================================================
// Helpers
// =============================================================================

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "request body is not valid JSON")
	}
	return nil
}

// readDocument reads at most one byte past the document limit so the
// compiler sees oversized input and stops on it.
func (s *Server) readDocument(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.Runner.Fetcher.MaxBytes()+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read request body")
	}
	if len(data) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "request body is empty")
	}
	return data, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errs.IsInput(err):
		status = http.StatusBadRequest
	case errs.Is(err, errs.ErrCodeUnsupported):
		status = http.StatusNotImplemented
	default:
		s.cfg.Logger.Error("request failed", "err", err)
	}

	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: errs.UserMessage(err)}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
