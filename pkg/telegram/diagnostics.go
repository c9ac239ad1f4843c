package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Check is the outcome of one diagnostics probe.
type Check struct {
	Status    string   `json:"status"` // "success" or "failed"
	Addresses []string `json:"addresses,omitempty"`
	Note      string   `json:"note,omitempty"`
	Error     string   `json:"error,omitempty"`
	Code      string   `json:"code,omitempty"`
}

// Diagnostics reports whether the Bot API host resolves and answers.
type Diagnostics struct {
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}

// Diagnose resolves the API host over IPv4 and issues a GET against a dummy
// bot. Any HTTP response, including 401/404, counts as reachable.
func (c *Client) Diagnose(ctx context.Context) *Diagnostics {
	result := &Diagnostics{
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]Check, 2),
	}

	result.Checks["dns"] = c.checkDNS(ctx)
	result.Checks["http"] = c.checkHTTP(ctx)

	c.logger.Info("Telegram diagnostics",
		zap.String("dns", result.Checks["dns"].Status),
		zap.String("http", result.Checks["http"].Status))
	return result
}

func (c *Client) checkDNS(ctx context.Context) Check {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Check{Status: "failed", Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.diagTimeout)
	defer cancel()

	ips, err := c.resolver.LookupIP(ctx, "ip4", u.Hostname())
	if err != nil {
		return Check{Status: "failed", Error: err.Error(), Code: errorCode(err)}
	}

	addresses := make([]string, len(ips))
	for i, ip := range ips {
		addresses[i] = ip.String()
	}
	return Check{Status: "success", Addresses: addresses}
}

func (c *Client) checkHTTP(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, c.diagTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bot123:test/getMe", nil)
	if err != nil {
		return Check{Status: "failed", Error: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Check{Status: "failed", Error: err.Error(), Code: errorCode(err)}
	}
	resp.Body.Close()

	return Check{Status: "success", Note: "Telegram API is reachable"}
}

// errorCode names the failure class the way resolver and socket errors are
// usually reported.
func errorCode(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		return "ENOTFOUND"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return ""
}
