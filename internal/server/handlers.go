package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/conneroisu/tessera/internal/errors"
	"github.com/conneroisu/tessera/internal/types"
	"github.com/conneroisu/tessera/internal/version"
)

// errorResponse is the body of every non-2xx JSON reply
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	if te, ok := errors.AsTessera(err); ok {
		resp.Code = te.Code
		if te.Type == errors.ErrorTypeValidation {
			status = http.StatusBadRequest
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy": true,
		"version": version.GetShortVersion(),
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.Stats())
}

// resource builds the rendered instance from the request: the type from
// the path, the content path from ?path= and properties from repeated
// ?prop=name=value.
func resource(r *http.Request) types.Resource {
	res := types.Resource{
		TypeName:   strings.Trim(r.PathValue("type"), "/"),
		Path:       r.URL.Query().Get("path"),
		Properties: make(map[string]any),
	}
	for _, prop := range r.URL.Query()["prop"] {
		name, value, _ := strings.Cut(prop, "=")
		if name != "" {
			res.Properties[name] = value
		}
	}
	return res
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	data, err := s.renderer.RenderJSON(r.Context(), resource(r), splitKeys(r.URL.Query().Get("keys"))...)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	component, err := s.renderer.Component(r.Context(), resource(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Writing rendered component", "type", r.PathValue("type"))
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	typeName := strings.Trim(r.PathValue("type"), "/")
	query := r.URL.Query()

	mode := s.resolver.DefaultMode()
	if raw := query.Get("mode"); raw != "" {
		parsed, err := types.ParseMode(raw)
		if err != nil {
			writeError(w, errors.NewValidationError(errors.ErrCodeConfigInvalid, err.Error()))
			return
		}
		mode = parsed
	}

	flatten := true
	if raw := query.Get("flatten"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, errors.NewValidationError(errors.ErrCodeConfigInvalid, "flatten must be a boolean"))
			return
		}
		flatten = parsed
	}

	if !s.resolver.HasConfig(r.Context(), typeName) {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: "no configuration for " + typeName,
			Code:  errors.ErrCodeComponentNotFound,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.DistilledMap(r.Context(), typeName, mode, flatten))
}
