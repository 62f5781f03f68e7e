package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/conduit-http/conduit/engine"
)

// staticRestParam is the synthesized placeholder capturing the path below
// the prefix.
const staticRestParam = "filepath"

// ErrStaticNoDir is returned when StaticConfig.Dir is empty.
var ErrStaticNoDir = errors.New("handlers: static directory must not be empty")

// StaticConfig configures a static file route.
type StaticConfig struct {
	// Prefix is the URL prefix the files are served under, without a
	// trailing slash (e.g. "/static").
	Prefix string

	// Dir is the root directory files are read from. It must exist at
	// registration time. Requests resolving outside of it, through ".."
	// segments or symbolic links, are rejected with 403.
	Dir string

	// OnServe, when non-nil, receives every response the handler
	// assembles (including 403 and 404) before it is returned, and may
	// rewrite headers or body. Returning nil keeps the assembled
	// response.
	OnServe func(*engine.Response) *engine.Response
}

// staticHandler serves files from root. It implements engine.Handler.
type staticHandler struct {
	root    string
	onServe func(*engine.Response) *engine.Response
}

// Static registers a GET route serving files from cfg.Dir under cfg.Prefix.
// The synthesized template is prefix + "/<filepath:path>". The root
// directory is canonicalized (absolute, symlinks resolved) once at
// registration; a missing or non-directory root is a registration error.
func Static(e *engine.Engine, cfg StaticConfig) error {
	if cfg.Dir == "" {
		return ErrStaticNoDir
	}

	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return fmt.Errorf("handlers: resolve static dir %q: %w", cfg.Dir, err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("handlers: static dir %q: %w", cfg.Dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("handlers: static dir %q: %w", cfg.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("handlers: static dir %q is not a directory", cfg.Dir)
	}

	h := &staticHandler{root: root, onServe: cfg.OnServe}
	tpl := strings.TrimRight(cfg.Prefix, "/") + "/<" + staticRestParam + ":path>"
	return e.Handle(tpl, []string{http.MethodGet}, h)
}

// Serve implements engine.Handler. File-level failures are mapped locally to
// 403/404 responses, never propagated as generic errors.
func (h *staticHandler) Serve(req *engine.Request) (*engine.Response, error) {
	rest, _ := req.Param(staticRestParam)
	return h.finish(h.serveFile(rest)), nil
}

// finish runs the registrant's rewrite hook on the assembled response.
func (h *staticHandler) finish(resp *engine.Response) *engine.Response {
	if h.onServe != nil {
		if out := h.onServe(resp); out != nil {
			return out
		}
	}
	return resp
}

// serveFile resolves rest under the root and reads the file. Containment is
// checked twice: once on the lexically cleaned join (catching ".."
// traversal) and again after resolving symbolic links (catching link
// escapes). A string-prefix check on the unresolved path would accept both.
func (h *staticHandler) serveFile(rest string) *engine.Response {
	target := filepath.Join(h.root, filepath.FromSlash(rest))
	if !containedIn(h.root, target) {
		return engine.NewResponseStatus("Forbidden", http.StatusForbidden)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return engine.NewResponseStatus("Not Found", http.StatusNotFound)
	}
	if !containedIn(h.root, resolved) {
		return engine.NewResponseStatus("Forbidden", http.StatusForbidden)
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return engine.NewResponseStatus("Not Found", http.StatusNotFound)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return engine.NewResponseStatus("Not Found", http.StatusNotFound)
	}

	resp := engine.NewResponse(data)
	resp.SetContentType(contentTypeFor(resolved))
	return resp
}

// containedIn reports whether target is root itself or below it.
func containedIn(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// contentTypeFor infers a content type from the file extension, falling back
// to application/octet-stream.
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
