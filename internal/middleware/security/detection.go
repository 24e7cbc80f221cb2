package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// Threat classifies a suspicious request.
type Threat string

const (
	ThreatNone          Threat = ""
	ThreatPathTraversal Threat = "path_traversal"
	ThreatProbe         Threat = "probe"
	ThreatInjection     Threat = "injection"
	ThreatScanner       Threat = "scanner"
	ThreatMethod        Threat = "method"
	ThreatOversized     Threat = "oversized"
	ThreatHeaders       Threat = "headers"
)

// Blocking reports whether the request must be rejected rather than only
// logged. Scanner user agents and header anomalies are only logged.
func (t Threat) Blocking() bool {
	switch t {
	case ThreatPathTraversal, ThreatProbe, ThreatInjection, ThreatMethod, ThreatOversized:
		return true
	}
	return false
}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector handles suspicious request detection
type Detector struct {
	metrics        DetectionMetrics
	trustedProxies []*net.IPNet
}

var (
	traversalPatterns = []string{"../", "..\\", "%2e%2e", "etc/passwd", "cmd.exe"}
	probePatterns     = []string{".env", "wp-admin", "wp-login", "phpmyadmin", "admin.php", "config.php", ".git/", ".ssh"}
	injectionPatterns = []string{"<script", "javascript:", "eval(", "union select", "union all select", "sleep(", "benchmark("}
	scannerAgents     = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "nuclei"}
	unusualMethods    = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

const maxURLLength = 4096

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("100.64.0.0/10"), // carrier-grade NAT used by PaaS routers
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// Detect classifies the request. The path and the decoded query are
// inspected; request bodies are not.
func (d *Detector) Detect(r *http.Request) Threat {
	t := d.classify(r)
	if t != ThreatNone {
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
		if t.Blocking() {
			atomic.AddInt64(&d.metrics.BlockedRequests, 1)
		}
	}
	return t
}

func (d *Detector) classify(r *http.Request) Threat {
	for _, m := range unusualMethods {
		if r.Method == m {
			return ThreatMethod
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return ThreatOversized
	}

	path := strings.ToLower(r.URL.EscapedPath())
	query := strings.ToLower(r.URL.RawQuery)
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}

	for _, target := range []string{path, strings.ToLower(r.URL.Path), query} {
		if containsAny(target, traversalPatterns) {
			return ThreatPathTraversal
		}
		if containsAny(target, injectionPatterns) {
			return ThreatInjection
		}
	}
	if containsAny(path, probePatterns) {
		return ThreatProbe
	}

	if containsAny(strings.ToLower(r.Header.Get("User-Agent")), scannerAgents) {
		return ThreatScanner
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return ThreatHeaders
	}
	return ThreatNone
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the client address, trusting forwarding headers
// only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			first = strings.TrimSpace(first)
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}

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
		BlockedRequests:    atomic.LoadInt64(&d.metrics.BlockedRequests),
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
