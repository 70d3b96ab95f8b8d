package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/resume"
)

const maxJSONBody = 4 << 20

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// present reports whether a raw JSON member was supplied and is not null.
func present(raw json.RawMessage) bool {
	t := strings.TrimSpace(string(raw))
	return t != "" && t != "null"
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readUpload reads the multipart "file" field. The status to answer with
// accompanies any error.
func readUpload(w http.ResponseWriter, r *http.Request) (upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, resume.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(resume.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, http.StatusRequestEntityTooLarge, resume.ErrTooLarge
		}
		return upload{}, http.StatusBadRequest, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, http.StatusBadRequest, errors.New("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, http.StatusBadRequest, fmt.Errorf("failed to read file: %w", err)
	}
	up := upload{
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
	}
	if err := resume.Validate(int64(len(data)), up.contentType); err != nil {
		return upload{}, uploadStatus(err), err
	}
	return up, 0, nil
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, resume.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

// requestOrigin rebuilds scheme://host as the client saw it. Forwarded
// headers are only honoured behind a trusted proxy.
func requestOrigin(r *http.Request, trustProxy bool) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if !trustProxy {
		return scheme + "://" + host
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.TrimSpace(strings.Split(p, ",")[0])
	}
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = strings.TrimSpace(strings.Split(h, ",")[0])
	}
	return scheme + "://" + host
}
