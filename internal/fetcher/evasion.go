package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/publicsuffix"
)

const dialTimeout = 10 * time.Second

// newEvasionClient builds an HTTP/1.1 client whose TLS ClientHello mimics a current Chrome,
// which is what WAF fingerprinting keys on before it ever looks at headers.
func newEvasionClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialTLSContext:        dialChromeTLS,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &http.Client{Transport: transport, Jar: jar, Timeout: timeout}, nil
}

func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	raw, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to build client hello: %w", err)
	}
	// The transport speaks HTTP/1.1 only, so h2 must not be negotiated.
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	conn := utls.UClient(raw, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err = conn.ApplyPreset(&spec); err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to apply client hello: %w", err)
	}

	if err = conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s failed: %w", host, err)
	}

	return conn, nil
}
