package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type contextKey string

const userContextKey contextKey = "user"

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("Error encoding response", map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeInternalError answers failures no handler maps explicitly. Store
// outages become 503 so clients know a retry may succeed.
func writeInternalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	fields := map[string]interface{}{
		"op":     op,
		"path":   r.URL.Path,
		"error":  err.Error(),
		"method": r.Method,
	}
	if errors.Is(err, services.ErrStoreUnavailable) {
		logging.Warn("Store unavailable", fields)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	logging.Error("Request failed", fields)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
