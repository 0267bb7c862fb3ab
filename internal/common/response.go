package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success    bool        `json:"success"`
	Timestamp  string      `json:"timestamp"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	writeEnvelope(w, code, Envelope{
		Success:    true,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		StatusCode: code,
		Data:       payload,
	})
}

// RespondWithError maps a domain error onto the envelope. Unclassified errors
// degrade to a generic 500 without leaking internals.
func RespondWithError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			message = ErrInternalServer.Error()
		}
	}
	RespondWithErrorMessage(w, code, CodeFromError(err), message, DetailsFromError(err))
}

func RespondWithErrorMessage(w http.ResponseWriter, code int, errCode, message string, details interface{}) {
	writeEnvelope(w, code, Envelope{
		Success:    false,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		StatusCode: code,
		Error:      &ErrorBody{Code: errCode, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	response, err := json.Marshal(env)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":{"code":"internal_error","message":"Failed to marshal JSON response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
