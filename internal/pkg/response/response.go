// Package response writes the admission controller's wire responses.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/recipeforge/admission/internal/apierr"
)

// JSON writes an arbitrary JSON payload with the given status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success is the analyze/generate success envelope.
type Success struct {
	Success      bool        `json:"success"`
	Recipe       interface{} `json:"recipe,omitempty"`
	UserID       string      `json:"user_id,omitempty"`
	AlreadyExists bool       `json:"alreadyExists,omitempty"`
	Duplicated   bool        `json:"duplicated,omitempty"`
	Generated    bool        `json:"generated,omitempty"`
}

func OK(w http.ResponseWriter, recipe interface{}, userID string, alreadyExists, duplicated, generated bool) {
	JSON(w, http.StatusOK, Success{
		Success:       true,
		Recipe:        recipe,
		UserID:        userID,
		AlreadyExists: alreadyExists,
		Duplicated:    duplicated,
		Generated:     generated,
	})
}

// Failure is the error envelope.
type Failure struct {
	Success     bool                   `json:"success"`
	Error       string                 `json:"error"`
	Message     string                 `json:"message"`
	UserMessage string                 `json:"userMessage,omitempty"`
	Fields      map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Fields alongside the fixed envelope keys.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"success": f.Success,
		"error":   f.Error,
		"message": f.Message,
	}
	if f.UserMessage != "" {
		out["userMessage"] = f.UserMessage
	}
	for k, v := range f.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// APIError writes a *apierr.Error as the standard failure envelope,
// setting Retry-After when the error fields carry a retryAfter value.
func APIError(w http.ResponseWriter, err *apierr.Error) {
	if ra, ok := err.Fields["retryAfter"]; ok {
		if seconds, ok := ra.(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}
	JSON(w, err.Status, Failure{
		Success:     false,
		Error:       err.Code,
		Message:     err.Message,
		UserMessage: err.Message,
		Fields:      err.Fields,
	})
}
