package source

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	tls "github.com/refraction-networking/utls"
	xproxy "golang.org/x/net/proxy"

	"github.com/use-agent/pricescope/identity"
)

const maxBodyBytes = 10 << 20 // 10 MB cap

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fallback: if spec generation fails, use HelloChrome_Auto as-is.
		// (Should never happen with a valid utls version.)
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// newClient builds the per-identity HTTP client; swapped in tests.
var newClient = defaultClient

func defaultClient(ident identity.Identity) *http.Client {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, ident.Proxy)
		},
		ForceAttemptHTTP2: false,
	}
	if ident.Proxy != "" {
		proxyURL, err := url.Parse(ident.Proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// fetchPage retrieves a URL over plain HTTP with a Chrome TLS fingerprint,
// using the identity's user agent and proxy. The body is returned even for
// error statuses: challenge and block pages carry the markers the fallback
// engine classifies on.
func fetchPage(ctx context.Context, targetURL string, ident identity.Identity) ([]byte, int, error) {
	client := newClient(ident)
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("User-Agent", ident.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("source: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("source: read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// dialRaw opens the TCP connection to addr, tunnelling through a SOCKS5
// proxy when the identity carries one. HTTP proxies are handled by the
// transport's Proxy field instead.
func dialRaw(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	dialer := &net.Dialer{}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			var auth *xproxy.Auth
			if user := proxyURL.User; user != nil {
				pass, _ := user.Password()
				auth = &xproxy.Auth{User: user.Username(), Password: pass}
			}
			socks, err := xproxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 proxy: %w", err)
			}
			if cd, ok := socks.(xproxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return socks.Dial(network, addr)
		}
	}

	return dialer.DialContext(ctx, network, addr)
}

// dialTLSChrome establishes a TLS connection with a Chrome fingerprint via
// utls, applying the http/1.1-only chromeH1Spec so the server never
// negotiates h2.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	rawConn, err := dialRaw(ctx, network, addr, proxy)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(rawConn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("source: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
