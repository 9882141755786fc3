package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector resolves client addresses behind trusted proxies and flags
// request patterns that look like scans or probes. Detection only marks
// and counts; blocking stays a handler decision.
type Detector struct {
	metrics        *DetectionMetrics
	trustedProxies []*net.IPNet
}

// NewDetector creates a detector trusting the usual private ranges as
// proxy sources.
func NewDetector() *Detector {
	return &Detector{
		metrics: &DetectionMetrics{},
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),    // localhost
			parseCIDR("10.0.0.0/8"),     // private networks
			parseCIDR("172.16.0.0/12"),  // private networks
			parseCIDR("192.168.0.0/16"), // private networks
		},
	}
}

// parseCIDR is a helper to parse CIDR during initialization
func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// suspiciousPatterns are path and query fragments no legitimate client of
// this API ever sends.
var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// suspiciousAgents are known scanner signatures. Plain curl and script
// clients are normal for a JSON API and stay off this list.
var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb",
	"masscan", "scanner",
}

// DetectSuspiciousRequest analyzes request patterns for potential threats
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := false

	path := strings.ToLower(r.URL.Path)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) {
			suspicious = true
			break
		}
	}

	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(query, pattern) {
			suspicious = true
			break
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			suspicious = true
			break
		}
	}

	unusualMethods := []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
	for _, method := range unusualMethods {
		if r.Method == method {
			suspicious = true
			break
		}
	}

	// Excessively long URLs are a common overflow probe
	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	// More than 5 proxy hops means someone is stuffing the header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if strings.Count(xff, ",") > 5 {
			suspicious = true
		}
	}

	if suspicious {
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
	}

	return suspicious
}

// ExtractClientIP extracts the real client IP, honoring forwarded headers
// only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, use it as-is
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
		return directIP
	}

	if d.isTrustedProxy(parsedDirectIP) {
		// X-Forwarded-For can hold multiple hops, the first is the client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				if parsedIP := net.ParseIP(clientIP); parsedIP != nil {
					return clientIP
				}
				atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
			}
		}

		// X-Real-IP header (nginx)
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if parsedIP := net.ParseIP(xri); parsedIP != nil {
				return xri
			}
			atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
		}
	}

	return directIP
}

// isTrustedProxy checks if an IP is from a trusted proxy
func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		InvalidIPAttempts:  atomic.LoadInt64(&d.metrics.InvalidIPAttempts),
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}

	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
