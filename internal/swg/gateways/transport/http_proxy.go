package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/services/gateway"
)

const (
	tunnelDialTimeout = 10 * time.Second
	defaultTLSPort    = "443"
)

// HTTPProxy implements ProxyTransport as a forward HTTP proxy. Plain
// requests are decided and then relayed upstream; CONNECT requests are
// decided on the requested host and, when allowed, tunneled byte for byte.
type HTTPProxy struct {
	addr      string
	blockPage BlockPageRenderer
	upstream  http.RoundTripper
	logger    log.Logger

	// Synchronization for graceful shutdown
	mu       sync.RWMutex
	running  bool
	listener net.Listener
	server   *http.Server
}

// HTTPProxyOptions configures an HTTPProxy.
type HTTPProxyOptions struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// BlockPage renders the body served on denied requests. Required.
	BlockPage BlockPageRenderer
	// Upstream performs outbound requests for allowed plain-HTTP traffic.
	// Defaults to http.DefaultTransport.
	Upstream http.RoundTripper
	// Logger is used for connection-level logging. Defaults to a noop.
	Logger log.Logger
}

// NewHTTPProxy creates a forward proxy transport.
func NewHTTPProxy(opts HTTPProxyOptions) (*HTTPProxy, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("proxy transport requires a listen address")
	}
	if opts.BlockPage == nil {
		return nil, fmt.Errorf("proxy transport requires a block page renderer")
	}
	if opts.Upstream == nil {
		opts.Upstream = http.DefaultTransport
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &HTTPProxy{
		addr:      opts.Addr,
		blockPage: opts.BlockPage,
		upstream:  opts.Upstream,
		logger:    opts.Logger,
	}, nil
}

// Start binds the listener and begins serving proxy requests.
func (t *HTTPProxy) Start(ctx context.Context, decider gateway.RequestDecider) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP proxy transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind proxy listener on %s: %w", t.addr, err)
	}

	t.listener = ln
	t.server = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.handle(w, r, decider)
		}),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http-proxy",
		"address":   ln.Addr().String(),
	}, "Proxy transport started")

	go func() {
		if err := t.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.logger.Error(map[string]any{
				"error": err.Error(),
			}, "Proxy transport serve loop exited")
		}
	}()

	return nil
}

// Stop gracefully shuts down the proxy transport.
func (t *HTTPProxy) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := t.server.Shutdown(shutdownCtx)
	t.logger.Info(map[string]any{
		"transport": "http-proxy",
		"address":   t.addr,
	}, "Proxy transport stopped")
	return err
}

// Address returns the bound listener address.
func (t *HTTPProxy) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

func (t *HTTPProxy) handle(w http.ResponseWriter, r *http.Request, decider gateway.RequestDecider) {
	scheme := "http"
	if r.Method == http.MethodConnect {
		scheme = "https"
	}
	desc := domain.RequestDescriptor{
		Host:       r.Host,
		Scheme:     scheme,
		Method:     r.Method,
		ClientAddr: r.RemoteAddr,
	}

	verdict, rec := decider.Decide(r.Context(), desc)
	if verdict == domain.VerdictBlocked {
		t.serveBlockPage(w, r, rec)
		return
	}

	if r.Method == http.MethodConnect {
		t.tunnel(w, r)
		return
	}
	t.forward(w, r)
}

// serveBlockPage writes the 403 response for a denied request. CONNECT
// clients get a bare status line since no HTTP body can follow a refused
// tunnel.
func (t *HTTPProxy) serveBlockPage(w http.ResponseWriter, r *http.Request, rec domain.ActivityRecord) {
	if r.Method == http.MethodConnect {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	body, err := t.blockPage.Render(rec.Domain, rec.Category)
	if err != nil {
		t.logger.Error(map[string]any{
			"domain": rec.Domain,
			"error":  err.Error(),
		}, "Failed to render block page")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write(body)
}

// forward relays an allowed plain-HTTP request to its origin.
func (t *HTTPProxy) forward(w http.ResponseWriter, r *http.Request) {
	outbound := r.Clone(r.Context())
	outbound.RequestURI = ""
	if outbound.URL.Scheme == "" {
		outbound.URL.Scheme = "http"
	}
	if outbound.URL.Host == "" {
		outbound.URL.Host = r.Host
	}
	removeHopHeaders(outbound.Header)

	resp, err := t.upstream.RoundTrip(outbound)
	if err != nil {
		t.logger.Warn(map[string]any{
			"host":  r.Host,
			"error": err.Error(),
		}, "Upstream request failed")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	removeHopHeaders(resp.Header)
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// tunnel establishes a raw TCP relay for an allowed CONNECT request.
func (t *HTTPProxy) tunnel(w http.ResponseWriter, r *http.Request) {
	target := r.Host
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, defaultTLSPort)
	}

	upstream, err := net.DialTimeout("tcp", target, tunnelDialTimeout)
	if err != nil {
		t.logger.Warn(map[string]any{
			"host":  target,
			"error": err.Error(),
		}, "Tunnel dial failed")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		_ = upstream.Close()
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		_ = upstream.Close()
		t.logger.Error(map[string]any{
			"host":  target,
			"error": err.Error(),
		}, "Tunnel hijack failed")
		return
	}

	_, _ = client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))

	go relay(upstream, client)
	relay(client, upstream)
}

// relay copies one direction of a tunnel and closes both ends when done.
func relay(dst, src net.Conn) {
	_, _ = io.Copy(dst, src)
	_ = dst.Close()
	_ = src.Close()
}

// hopHeaders are connection-scoped and must not be relayed.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopHeaders(h http.Header) {
	for _, name := range h.Values("Connection") {
		for _, field := range strings.Split(name, ",") {
			h.Del(strings.TrimSpace(field))
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

var _ ProxyTransport = (*HTTPProxy)(nil)
