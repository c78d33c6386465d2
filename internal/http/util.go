package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"kidneyguard-data/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeServiceError maps a typed service failure onto an HTTP status with the
// machine-readable kind in the message prefix.
func writeServiceError(w http.ResponseWriter, err error) {
	var serr *service.Error
	if errors.As(err, &serr) {
		status := http.StatusInternalServerError
		switch serr.Kind {
		case service.KindBadRequest:
			status = http.StatusBadRequest
		case service.KindNotFound:
			status = http.StatusNotFound
		}
		writeJSON(w, status, Fail(string(serr.Kind)+": "+serr.Message))
		return
	}
	writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
}
