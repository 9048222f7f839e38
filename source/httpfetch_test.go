package source

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	tls "github.com/refraction-networking/utls"
)

// The transport only speaks HTTP/1.1, so the ClientHello must not offer h2:
// a server that picks h2 over ALPN would reject the h1 request framing.
func TestChromeSpecALPNIsHTTP1Only(t *testing.T) {
	if len(chromeH1Spec.CipherSuites) == 0 {
		t.Fatal("chromeH1Spec was not initialised")
	}

	var alpn *tls.ALPNExtension
	for _, ext := range chromeH1Spec.Extensions {
		if a, ok := ext.(*tls.ALPNExtension); ok {
			alpn = a
			break
		}
	}
	if alpn == nil {
		t.Fatal("chromeH1Spec has no ALPN extension")
	}
	if len(alpn.AlpnProtocols) != 1 || alpn.AlpnProtocols[0] != "http/1.1" {
		t.Errorf("ALPN protocols = %v, want [http/1.1]", alpn.AlpnProtocols)
	}
}

// fakeSocks5 runs a minimal SOCKS5 server for one connection and reports the
// target address the client asked it to connect to.
func fakeSocks5(t *testing.T) (string, chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	target := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Greeting: VER, NMETHODS, METHODS...
		head := make([]byte, 2)
		if _, err := io.ReadFull(conn, head); err != nil || head[0] != 5 {
			target <- "bad greeting"
			return
		}
		methods := make([]byte, head[1])
		if _, err := io.ReadFull(conn, methods); err != nil {
			target <- "bad greeting"
			return
		}
		conn.Write([]byte{5, 0}) // no auth

		// Request: VER, CMD, RSV, ATYP, addr, port.
		req := make([]byte, 4)
		if _, err := io.ReadFull(conn, req); err != nil {
			target <- "bad request"
			return
		}
		var host string
		switch req[3] {
		case 1: // IPv4
			ip := make([]byte, 4)
			io.ReadFull(conn, ip)
			host = net.IP(ip).String()
		case 3: // domain
			n := make([]byte, 1)
			io.ReadFull(conn, n)
			name := make([]byte, n[0])
			io.ReadFull(conn, name)
			host = string(name)
		default:
			target <- "bad request"
			return
		}
		port := make([]byte, 2)
		io.ReadFull(conn, port)
		conn.Write([]byte{5, 0, 0, 1, 0, 0, 0, 0, 0, 0})
		target <- net.JoinHostPort(host, strconv.Itoa(int(port[0])<<8|int(port[1])))
		io.Copy(io.Discard, conn)
	}()

	return ln.Addr().String(), target
}

func TestDialRawSocks5Negotiates(t *testing.T) {
	proxyAddr, target := fakeSocks5(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := dialRaw(ctx, "tcp", "example.com:443", "socks5://"+proxyAddr)
	if err != nil {
		t.Fatalf("dialRaw: %v", err)
	}
	defer conn.Close()

	select {
	case got := <-target:
		if got != "example.com:443" {
			t.Errorf("proxy connect target = %q, want example.com:443", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("proxy never received a connect request")
	}
}

func TestDialRawDirectWithoutProxy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := dialRaw(ctx, "tcp", ln.Addr().String(), "")
	if err != nil {
		t.Fatalf("dialRaw: %v", err)
	}
	conn.Close()
}
