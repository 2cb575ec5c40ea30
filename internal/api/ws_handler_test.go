package api

import (
	"net/http/httptest"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		host    string
		origin  string
		want    bool
	}{
		{name: "no origin header", host: "api.example", want: true},
		{name: "same host", host: "api.example", origin: "https://api.example", want: true},
		{name: "other host", host: "api.example", origin: "https://evil.example", want: false},
		{name: "listed origin", allowed: []string{"https://app.example"}, host: "api.example", origin: "https://app.example", want: true},
		{name: "unlisted origin", allowed: []string{"https://app.example"}, host: "api.example", origin: "https://api.example", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/ws", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := originAllowed(tc.allowed, req); got != tc.want {
				t.Fatalf("originAllowed = %v, want %v", got, tc.want)
			}
		})
	}
}
