package ip

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name        string
		forwarded   string
		realIP      string
		behindProxy bool
		want        string
	}{
		{name: "remote address", want: "192.0.2.1"},
		{name: "forwarded ignored without proxy", forwarded: "203.0.113.9", want: "192.0.2.1"},
		{name: "first forwarded entry", forwarded: "203.0.113.9, 10.0.0.1", behindProxy: true, want: "203.0.113.9"},
		{name: "real ip", realIP: "198.51.100.7", behindProxy: true, want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/bootcamps", nil)
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(r, tt.behindProxy); got != tt.want {
				t.Errorf("ClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}
