// Package httpjson writes JSON responses for the HTTP handlers.
package httpjson

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string, reasons ...string) {
	Write(w, status, ErrorBody{Error: msg, Reasons: reasons})
}
