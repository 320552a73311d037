package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// invalid answers 400, listing per-field messages when err carries them.
func invalid(w http.ResponseWriter, err error) {
	var fields validation.Errors
	if errors.As(err, &fields) {
		writeJSON(w, errorResponse{Error: "validation failed", Fields: fields}, http.StatusBadRequest)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// serverError logs err and answers 500 with the upstream message attached.
func serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.Error(op, slog.String("path", r.URL.Path), slog.Any("err", err))
	writeError(w, http.StatusInternalServerError, op+": "+err.Error())
}

// decodeJSON reads a JSON body into dst. It writes a 400 and returns false
// when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

// decodeJSONFields decodes a JSON object into dst and reports which top-level
// keys the body carried.
func decodeJSONFields(w http.ResponseWriter, r *http.Request, dst any) (map[string]bool, bool) {
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return nil, false
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: expected an object")
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return nil, false
	}
	sent := make(map[string]bool, len(keys))
	for k := range keys {
		sent[k] = true
	}
	return sent, true
}

// pathID parses the {name} route variable as a positive integer.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// page reads limit and offset query parameters; limit defaults to 20 and is
// capped at 100.
func page(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = min(v, 100)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
