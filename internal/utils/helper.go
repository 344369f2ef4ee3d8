package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ParseID parses a positive numeric path id.
func ParseID(id string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, strconv.ErrRange
	}
	return uint(n), nil
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func WriteJSONError(w http.ResponseWriter, kind, message string, code int) {
	WriteJSON(w, code, map[string]ErrorBody{
		"error": {Kind: kind, Message: message},
	})
}
