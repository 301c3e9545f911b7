package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope of every JSON body
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   any               `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// JSON sends data with status
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, message any) {
	write(w, status, Response{Error: message})
}

// Invalid sends a 400 carrying per-field messages
func Invalid(w http.ResponseWriter, fields map[string]string) {
	write(w, http.StatusBadRequest, Response{
		Error:  "validation failed",
		Fields: fields,
	})
}

// InvalidWith sends a 400 carrying per-field messages next to data,
// e.g. the dialog that stays open after a rejected submit
func InvalidWith(w http.ResponseWriter, data any, fields map[string]string) {
	write(w, http.StatusBadRequest, Response{
		Data:   data,
		Error:  "validation failed",
		Fields: fields,
	})
}

// ErrorWith sends an error next to data the client still needs to render
func ErrorWith(w http.ResponseWriter, status int, data any, message any) {
	write(w, status, Response{Data: data, Error: message})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, data)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func BadRequest(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message any) {
	Error(w, http.StatusUnauthorized, message)
}

func NotFound(w http.ResponseWriter, message any) {
	Error(w, http.StatusNotFound, message)
}

func Conflict(w http.ResponseWriter, message any) {
	Error(w, http.StatusConflict, message)
}

func BadGateway(w http.ResponseWriter, message any) {
	Error(w, http.StatusBadGateway, message)
}

func InternalError(w http.ResponseWriter, message any) {
	Error(w, http.StatusInternalServerError, message)
}
