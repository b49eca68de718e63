package problem

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 body. Code carries the domain error code when the
// failure came from the domain.
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Code     string         `json:"code,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func Write(w http.ResponseWriter, status int, title, detail string) {
	WriteProblem(w, Problem{Title: title, Status: status, Detail: detail})
}

func WriteProblem(w http.ResponseWriter, p Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}
