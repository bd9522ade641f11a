package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/maxiofs/linelog/internal/metrics"
	"github.com/maxiofs/linelog/internal/middleware"
	"github.com/sirupsen/logrus"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AppendResult reports how many lines a request handed to the debug log
type AppendResult struct {
	Accepted  int    `json:"accepted"`
	RequestID string `json:"request_id"`
}

// HealthStatus describes the state of the debug log destination
type HealthStatus struct {
	Status        string                    `json:"status"` // ok, degraded
	Path          string                    `json:"path"`
	Error         string                    `json:"error,omitempty"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	Destination   *metrics.DestinationStats `json:"destination,omitempty"`
}

type appendRequest struct {
	Lines []string `json:"lines"`
}

// handleAppendLines appends each line of the body to the debug log.
// A text body is split on newlines; a JSON body is {"lines": [...]}.
// Both forms reject a carriage return anywhere but before a newline.
// Nothing is written unless the whole body was read and parsed.
func (s *Server) handleAppendLines(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	lines, err := parseLines(r.Header.Get("Content-Type"), body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUnsupportedMediaType) {
			status = http.StatusUnsupportedMediaType
		}
		s.writeError(w, err.Error(), status)
		return
	}

	for _, line := range lines {
		s.debugLog.Log("%s", line)
	}

	s.writeJSONWithStatus(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data: AppendResult{
			Accepted:  len(lines),
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

// parseLines turns a request body into the lines to append
func parseLines(contentType string, body []byte) ([]string, error) {
	mediaType := "text/plain"
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("invalid content type: %w", err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		var req appendRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for i, line := range req.Lines {
			if strings.ContainsAny(line, "\r\n") {
				return nil, fmt.Errorf("%w: index %d", ErrMultilineEntry, i)
			}
		}
		return req.Lines, nil

	case "text/plain", "application/octet-stream":
		lines := splitLines(string(body))
		for i, line := range lines {
			if strings.Contains(line, "\r") {
				return nil, fmt.Errorf("%w: line %d", ErrMultilineEntry, i+1)
			}
		}
		return lines, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
}

// splitLines splits on \n, strips a trailing \r from each line and ignores
// the empty remainder after a final newline
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:        "ok",
		Path:          s.debugLog.Path(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if err := s.debugLog.Err(); err != nil {
		health.Status = "degraded"
		health.Error = err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	stats, err := metrics.StatDestination(s.debugLog.Path())
	if err != nil {
		logrus.WithError(err).Debug("Failed to stat debug log destination")
	} else {
		health.Destination = stats
	}

	s.writeJSONWithStatus(w, statusCode, APIResponse{Success: statusCode == http.StatusOK, Data: health})
}

// writeJSONWithStatus writes a JSON response with a specific HTTP status code
func (s *Server) writeJSONWithStatus(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSONWithStatus(w, statusCode, APIResponse{Success: false, Error: message})
	logrus.WithField("error", message).WithField("status", statusCode).Warn("API error")
}
