package security

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{
			name:       "direct public address",
			remoteAddr: "203.0.113.7:4312",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header from trusted proxy",
			remoteAddr: "10.0.0.5:80",
			forwarded:  "198.51.100.23, 10.0.0.5",
			want:       "198.51.100.23",
		},
		{
			name:       "forwarded header from untrusted peer is ignored",
			remoteAddr: "203.0.113.7:80",
			forwarded:  "198.51.100.23",
			want:       "203.0.113.7",
		},
		{
			name:       "real ip header from trusted proxy",
			remoteAddr: "127.0.0.1:9000",
			realIP:     "198.51.100.40",
			want:       "198.51.100.40",
		},
		{
			name:       "garbage forwarded value falls back to peer",
			remoteAddr: "10.0.0.5:80",
			forwarded:  "not-an-ip",
			want:       "10.0.0.5",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.20",
			want:       "192.168.1.20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/expenses", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{
			name:   "normal api call",
			method: "GET",
			target: "/api/expenses?household=casa&year=2025&month=1",
			agent:  "Go-http-client/2.0",
			want:   false,
		},
		{
			name:   "curl is a legitimate api client",
			method: "GET",
			target: "/api/budgets?household=casa",
			agent:  "curl/8.5.0",
			want:   false,
		},
		{
			name:   "dotfile probe",
			method: "GET",
			target: "/.env",
			agent:  "Go-http-client/2.0",
			want:   true,
		},
		{
			name:   "script injection in query",
			method: "GET",
			target: "/api/expenses?notes=<script",
			agent:  "Go-http-client/2.0",
			want:   true,
		},
		{
			name:   "scanner user agent",
			method: "GET",
			target: "/api/expenses",
			agent:  "sqlmap/1.7.2",
			want:   true,
		},
		{
			name:   "unusual method",
			method: "TRACE",
			target: "/api/expenses",
			agent:  "Go-http-client/2.0",
			want:   true,
		},
		{
			name:   "oversized url",
			method: "GET",
			target: "/api/expenses?pad=" + strings.Repeat("a", 2100),
			agent:  "Go-http-client/2.0",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)

			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}

			var wantCount int64
			if tt.want {
				wantCount = 1
			}
			if got := d.GetMetrics().SuspiciousRequests; got != wantCount {
				t.Errorf("SuspiciousRequests = %d, want %d", got, wantCount)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()

	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/api/expenses", nil)
	r.RemoteAddr = "198.51.100.9:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.80")

	if got := d.ExtractClientIP(r); got != "203.0.113.80" {
		t.Errorf("ExtractClientIP() = %q, want forwarded client after trusting proxy", got)
	}

	if err := d.AddTrustedProxy("not a cidr"); err == nil {
		t.Error("AddTrustedProxy() accepted an invalid CIDR")
	}
}
