package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/conduit-http/conduit/engine"
)

// proxyRestParam is the synthesized placeholder capturing the path below
// the prefix.
const proxyRestParam = "rest"

// ErrProxyNoUpstream is returned when ProxyConfig.Upstream is empty.
var ErrProxyNoUpstream = errors.New("handlers: proxy upstream must not be empty")

// outboundStrip lists headers that are specific to the client-facing hop and
// must never be forwarded to the upstream.
var outboundStrip = []string{"Host", "Connection", "Transfer-Encoding"}

// inboundStrip lists upstream response headers that must not be relayed to
// the client.
var inboundStrip = []string{"Connection", "Transfer-Encoding"}

// defaultProxyMethods is the method set a proxy route accepts when the
// configuration does not override it.
var defaultProxyMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete,
}

// ProxyConfig configures a reverse-proxy route.
type ProxyConfig struct {
	// Prefix is the URL prefix forwarded to the upstream, without a
	// trailing slash (e.g. "/api").
	Prefix string

	// Upstream is the base URL requests are forwarded to
	// (e.g. "http://127.0.0.1:8801"). http and https schemes only.
	Upstream string

	// Methods overrides the forwarded method set. Defaults to
	// GET/POST/PUT/PATCH/DELETE.
	Methods []string

	// Client issues the upstream calls. Defaults to http.DefaultClient;
	// set one to control upstream timeouts, which the engine itself
	// never imposes.
	Client *http.Client

	// OnProxy, when non-nil, receives every response the handler
	// assembles (relayed upstream responses and 502/500 failures alike)
	// before it is returned, and may rewrite headers or body. Returning
	// nil keeps the assembled response.
	OnProxy func(*engine.Response) *engine.Response
}

// proxyHandler forwards requests to an upstream origin. It implements
// engine.Handler.
type proxyHandler struct {
	upstream string
	client   *http.Client
	onProxy  func(*engine.Response) *engine.Response
}

// Proxy registers a reverse-proxy route forwarding cfg.Prefix to
// cfg.Upstream. The synthesized template is prefix + "/<rest:path>". The
// upstream URL is validated at registration.
func Proxy(e *engine.Engine, cfg ProxyConfig) error {
	if cfg.Upstream == "" {
		return ErrProxyNoUpstream
	}

	u, err := url.Parse(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("handlers: parse upstream URL %q: %w", cfg.Upstream, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("handlers: invalid upstream URL %q", cfg.Upstream)
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	methods := cfg.Methods
	if len(methods) == 0 {
		methods = defaultProxyMethods
	}

	h := &proxyHandler{
		upstream: strings.TrimRight(cfg.Upstream, "/"),
		client:   client,
		onProxy:  cfg.OnProxy,
	}
	tpl := strings.TrimRight(cfg.Prefix, "/") + "/<" + proxyRestParam + ":path>"
	return e.Handle(tpl, methods, h)
}

// Serve implements engine.Handler. The upstream call is synchronous: the
// caller blocks until the upstream responds or fails, and failures are never
// retried. An upstream that itself returned an error status is relayed
// verbatim; only transport-level failures become a 502.
func (h *proxyHandler) Serve(req *engine.Request) (*engine.Response, error) {
	rest, _ := req.Param(proxyRestParam)
	target := h.upstream + "/" + strings.TrimLeft(rest, "/")
	if q := req.RawQuery(); q != "" {
		target += "?" + q
	}

	outbound, err := http.NewRequest(req.Method(), target, bytes.NewReader(req.Body()))
	if err != nil {
		return h.finish(engine.NewResponseStatus(
			fmt.Sprintf("Proxy error: %v", err), http.StatusInternalServerError)), nil
	}
	copyProxyHeaders(outbound.Header, req.Headers(), outboundStrip)

	upstreamResp, err := h.client.Do(outbound)
	if err != nil {
		return h.finish(engine.NewResponseStatus(
			fmt.Sprintf("Bad Gateway: upstream unreachable: %v", err), http.StatusBadGateway)), nil
	}
	defer upstreamResp.Body.Close()

	body, err := io.ReadAll(upstreamResp.Body)
	if err != nil {
		return h.finish(engine.NewResponseStatus(
			fmt.Sprintf("Proxy error: read upstream response: %v", err), http.StatusInternalServerError)), nil
	}

	// net/http accepts any three-digit status from the wire; only
	// 100-599 can be relayed.
	if upstreamResp.StatusCode < 100 || upstreamResp.StatusCode > 599 {
		return h.finish(engine.NewResponseStatus(
			fmt.Sprintf("Proxy error: upstream returned invalid status %d", upstreamResp.StatusCode),
			http.StatusInternalServerError)), nil
	}

	resp := engine.NewResponseStatus(body, upstreamResp.StatusCode)
	copyProxyHeaders(resp.Headers(), upstreamResp.Header, inboundStrip)
	return h.finish(resp), nil
}

// finish runs the registrant's rewrite hook on the assembled response.
func (h *proxyHandler) finish(resp *engine.Response) *engine.Response {
	if h.onProxy != nil {
		if out := h.onProxy(resp); out != nil {
			return out
		}
	}
	return resp
}

// copyProxyHeaders copies src into dst, dropping the stripped hop headers
// and anything that is not a valid field name or value on the wire.
func copyProxyHeaders(dst, src http.Header, strip []string) {
	for key, vals := range src {
		if stripped(strip, key) || !httpguts.ValidHeaderFieldName(key) {
			continue
		}
		for _, v := range vals {
			if !httpguts.ValidHeaderFieldValue(v) {
				continue
			}
			dst.Add(key, v)
		}
	}
}

func stripped(strip []string, key string) bool {
	for _, s := range strip {
		if strings.EqualFold(s, key) {
			return true
		}
	}
	return false
}
