package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/cygdb/internal/breakpoint"
	"github.com/coral-mesh/cygdb/internal/gdb/transport"
	"github.com/coral-mesh/cygdb/internal/session"
	"github.com/coral-mesh/cygdb/internal/stepping"
	"github.com/coral-mesh/cygdb/internal/workspace"
)

const maxRequestBody = 1 << 20

type handlers struct {
	session Debugger
	logger  zerolog.Logger
}

func (h *handlers) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /hello", h.helloGet)
	mux.HandleFunc("POST /hello", h.helloPost)
	mux.HandleFunc("POST /setFileToDebug", h.setFileToDebug)
	mux.HandleFunc("POST /setBreakpoints", h.setBreakpoints)
	mux.HandleFunc("GET /breakpoints", h.listBreakpoints)
	mux.HandleFunc("GET /compileFiles", h.compileFiles)
	mux.HandleFunc("POST /compileFiles", h.compileFiles)
	mux.HandleFunc("POST /Launch", h.launch)
	mux.HandleFunc("GET /Continue", h.cont)
	mux.HandleFunc("GET /Step", h.step)
	mux.HandleFunc("GET /Frame", h.frame)
	mux.HandleFunc("GET /Restart", h.restart)
	mux.HandleFunc("GET /health", h.health)

	return mux
}

type helloRequest struct {
	Hello string `json:"hello"`
	Test  string `json:"test"`
}

type setFileRequest struct {
	Source string `json:"source"`
}

type setFileResponse struct {
	Success bool     `json:"success"`
	Source  string   `json:"source"`
	Output  []string `json:"output"`
}

type breakpointsRequest struct {
	Source      string `json:"source"`
	Breakpoints []int  `json:"breakpoints"`
}

type breakpointsResponse struct {
	Source      string `json:"source"`
	Breakpoints []int  `json:"breakpoints"`
}

type buildResponse struct {
	Success bool     `json:"success"`
	Stderr  []string `json:"stderr,omitempty"`
	Output  []string `json:"output,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) helloGet(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, "Working")
}

func (h *handlers) helloPost(w http.ResponseWriter, r *http.Request) {
	var req helloRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSON(w, http.StatusOK, "Hello: "+req.Hello)
}

func (h *handlers) setFileToDebug(w http.ResponseWriter, r *http.Request) {
	var req setFileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Source == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("source is required"))
		return
	}

	output, err := h.session.SetTarget(r.Context(), req.Source)
	if err != nil && !errors.Is(err, workspace.ErrBuildFailed) {
		h.fail(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, setFileResponse{
		Success: err == nil,
		Source:  req.Source,
		Output:  nonNil(output),
	})
}

func (h *handlers) setBreakpoints(w http.ResponseWriter, r *http.Request) {
	var req breakpointsRequest
	if !h.decode(w, r, &req) {
		return
	}

	accepted := make([]int, 0, len(req.Breakpoints))
	for _, line := range req.Breakpoints {
		ok, err := h.session.AddBreakpoint(req.Source, line)
		if err != nil {
			h.fail(w, err)
			return
		}
		if ok {
			accepted = append(accepted, line)
		}
	}

	h.writeJSON(w, http.StatusOK, breakpointsResponse{Source: req.Source, Breakpoints: accepted})
}

func (h *handlers) listBreakpoints(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Breakpoints())
}

func (h *handlers) compileFiles(w http.ResponseWriter, r *http.Request) {
	output, err := h.session.Build(r.Context())
	if err != nil && !errors.Is(err, workspace.ErrBuildFailed) {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, buildResponse{Success: err == nil, Output: nonNil(output)})
}

func (h *handlers) launch(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.Run(r.Context())

	var buildErr *workspace.BuildError
	if errors.As(err, &buildErr) {
		h.writeJSON(w, http.StatusOK, buildResponse{Success: false, Stderr: nonNil(buildErr.Output)})
		return
	}
	h.progress(w, res, err)
}

func (h *handlers) cont(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.Continue(r.Context())
	h.progress(w, res, err)
}

func (h *handlers) step(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.Step(r.Context())
	h.progress(w, res, err)
}

func (h *handlers) frame(w http.ResponseWriter, _ *http.Request) {
	frame, err := h.session.GetFrame()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, frame)
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Restart(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Status())
}

func (h *handlers) progress(w http.ResponseWriter, res session.Result, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	var spawnErr *transport.ProcessSpawnError
	switch {
	case errors.Is(err, session.ErrNotConfigured),
		errors.Is(err, session.ErrNotRunning),
		errors.Is(err, session.ErrNoFrame),
		errors.Is(err, breakpoint.ErrSourceChanged):
		return http.StatusConflict
	case errors.Is(err, stepping.ErrSteppingTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &spawnErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("Session operation failed")
	}
	h.writeError(w, status, err)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
