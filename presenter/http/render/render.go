package render

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/humanprotocol/reputation-oracle/logging"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, res interface{}) {
	enc := json.NewEncoder(w)

	if pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty")); pretty {
		enc.SetIndent("", "  ")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := enc.Encode(res); err != nil {
		logging.LoggerFromContext(r.Context()).WithError(err).Error("failed to marshal JSON result")
	}
}

// Error renders err as a JSON error body. Server side failures are logged,
// client errors are not.
func Error(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger := logging.LoggerFromContext(r.Context())
		logger.WithError(err).Error("request handling failed")
	}
	JSON(w, r, status, &ErrorResponse{Error: err.Error()})
}
