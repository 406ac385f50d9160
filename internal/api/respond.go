package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-dashboard/internal/curation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Code: string(curation.KindBadRequest)})
}

// writeError maps curation errors to their status; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := zap.L().With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
	)

	var ce *curation.Error
	if errors.As(err, &ce) {
		status := ce.Kind.HTTPStatus()
		if status >= http.StatusInternalServerError {
			log.Error("api: request failed", zap.String("code", string(ce.Kind)), zap.Error(err))
		}
		writeJSON(w, status, errorResponse{
			Error:          ce.Message,
			Code:           string(ce.Kind),
			UpstreamStatus: ce.UpstreamStatus,
		})
		return
	}

	log.Error("api: internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "Internal server error.",
		Code:  "internal",
	})
}

// decodeAuthorized reads a bounded JSON body and checks its secretKey before
// decoding the rest into dst, so a bad secret is reported ahead of a
// malformed body.
func (s *Server) decodeAuthorized(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.curator.Authorize(secretKeyOf(body)); err != nil {
		writeError(w, r, err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// secretKeyOf returns the secretKey of a JSON object, ignoring every other
// field. It is empty when the body is not an object or the key not a string.
func secretKeyOf(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	var key string
	if err := json.Unmarshal(fields["secretKey"], &key); err != nil {
		return ""
	}
	return key
}

// decodeJSON reads a bounded JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
