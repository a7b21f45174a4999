package server

import (
	"net/http"
	"testing"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "exact match", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "case insensitive", allowed: []string{"HTTP://LocalHost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "different port", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:9090", want: false},
		{name: "missing origin", allowed: []string{"*"}, origin: "", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anywhere.example", want: true},
		{name: "invalid configured origin ignored", allowed: []string{"not a url"}, origin: "http://localhost:8080", want: false},
		{name: "invalid request origin", allowed: []string{"*"}, origin: "localhost", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed)
			req, err := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := policy.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
