package engine

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(body string) HandlerFunc {
	return func(*Request) (*Response, error) {
		return NewResponse(body), nil
	}
}

func TestEngineHandle(t *testing.T) {
	t.Run("registers a valid route", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/users/<name>", []string{"GET"}, textHandler("ok")))

		routes := e.Routes()
		require.Len(t, routes, 1)
		assert.Equal(t, "/users/<name>", routes[0].Template())
		assert.Equal(t, []string{"GET"}, routes[0].Methods())
		assert.Equal(t, []string{"name"}, routes[0].ParamNames())
	})

	t.Run("rejects malformed template", func(t *testing.T) {
		e := New()
		err := e.HandleFunc("/users/<name", []string{"GET"}, textHandler("ok"))
		assert.ErrorContains(t, err, "unterminated")
		assert.Empty(t, e.Routes())
	})

	t.Run("rejects empty method set", func(t *testing.T) {
		e := New()
		err := e.HandleFunc("/users", nil, textHandler("ok"))
		assert.ErrorContains(t, err, "at least one method")
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		e := New()
		assert.Error(t, e.HandleFunc("/users", []string{"GET"}, nil))
		assert.Error(t, e.Handle("/users", []string{"GET"}, nil))
		assert.Error(t, e.HandleParams("/users", []string{"GET"}, nil, nil))
	})

	t.Run("normalizes the method set", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/users", []string{"get", " POST ", "GET"}, textHandler("ok")))
		assert.Equal(t, []string{"GET", "POST"}, e.Routes()[0].Methods())
	})
}

func TestEngineMatch(t *testing.T) {
	e := New()
	require.NoError(t, e.HandleFunc("/users", []string{"GET"}, textHandler("list")))
	require.NoError(t, e.HandleFunc("/users/<name>", []string{"GET", "DELETE"}, textHandler("one")))

	t.Run("matches a literal route", func(t *testing.T) {
		match, err := e.Match("GET", "/users")
		require.NoError(t, err)
		assert.Equal(t, "/users", match.Route.Template())
		assert.Empty(t, match.Params)
	})

	t.Run("extracts path parameters", func(t *testing.T) {
		match, err := e.Match("DELETE", "/users/alice")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "alice"}, match.Params)
	})

	t.Run("strips the query string before matching", func(t *testing.T) {
		match, err := e.Match("GET", "/users/alice?verbose=1")
		require.NoError(t, err)
		assert.Equal(t, "alice", match.Params["name"])
	})

	t.Run("method lookup is case-insensitive", func(t *testing.T) {
		_, err := e.Match("get", "/users")
		assert.NoError(t, err)
	})

	t.Run("no path match yields not found", func(t *testing.T) {
		_, err := e.Match("GET", "/missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("path match without method yields method not allowed", func(t *testing.T) {
		_, err := e.Match("POST", "/users/alice")
		assert.ErrorIs(t, err, ErrMethodNotAllowed)
	})
}

func TestEngineMatchOrder(t *testing.T) {
	t.Run("first registered route wins regardless of specificity", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/a/<x>", []string{"GET"}, textHandler("param")))
		require.NoError(t, e.HandleFunc("/a/b", []string{"GET"}, textHandler("literal")))

		match, err := e.Match("GET", "/a/b")
		require.NoError(t, err)
		assert.Equal(t, "/a/<x>", match.Route.Template())
		assert.Equal(t, "b", match.Params["x"])
	})

	t.Run("scan continues past a method-mismatched route", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/a/<x>", []string{"GET"}, textHandler("get")))
		require.NoError(t, e.HandleFunc("/a/b", []string{"POST"}, textHandler("post")))

		match, err := e.Match("POST", "/a/b")
		require.NoError(t, err)
		assert.Equal(t, "/a/b", match.Route.Template())
	})
}

func TestEngineDispatch(t *testing.T) {
	t.Run("invokes the matched handler", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/greet/<name>", []string{"GET"}, func(req *Request) (*Response, error) {
			name, _ := req.Param("name")
			return NewResponse("hello " + name), nil
		}))

		resp := e.Dispatch(NewRequest("GET", "/greet/alice", nil, nil))
		assert.Equal(t, http.StatusOK, resp.Status())
		assert.Equal(t, "hello alice", string(resp.Body()))
	})

	t.Run("unmatched path produces 404", func(t *testing.T) {
		e := New()
		resp := e.Dispatch(NewRequest("GET", "/missing", nil, nil))
		assert.Equal(t, http.StatusNotFound, resp.Status())
		assert.Equal(t, "Not Found", string(resp.Body()))
	})

	t.Run("method mismatch produces 405", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/users", []string{"GET"}, textHandler("ok")))

		resp := e.Dispatch(NewRequest("POST", "/users", nil, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, resp.Status())
	})

	t.Run("handler error produces 500 with diagnostic body", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/boom", []string{"GET"}, func(*Request) (*Response, error) {
			return nil, errors.New("database exploded")
		}))

		resp := e.Dispatch(NewRequest("GET", "/boom", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Equal(t, "Internal Server Error: database exploded", string(resp.Body()))
	})

	t.Run("handler panic produces 500 and engine survives", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/panic", []string{"GET"}, func(*Request) (*Response, error) {
			panic("unexpected state")
		}))
		require.NoError(t, e.HandleFunc("/ok", []string{"GET"}, textHandler("still here")))

		resp := e.Dispatch(NewRequest("GET", "/panic", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), "unexpected state")

		resp = e.Dispatch(NewRequest("GET", "/ok", nil, nil))
		assert.Equal(t, http.StatusOK, resp.Status())
		assert.Equal(t, "still here", string(resp.Body()))
	})

	t.Run("nil handler response produces 500", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/nothing", []string{"GET"}, func(*Request) (*Response, error) {
			return nil, nil
		}))

		resp := e.Dispatch(NewRequest("GET", "/nothing", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), "returned no response")
	})

	t.Run("custom not found handler is used", func(t *testing.T) {
		e := New()
		e.NotFound = func(req *Request) (*Response, error) {
			return NewResponseStatus(map[string]string{"error": "nope", "path": req.Path()}, http.StatusNotFound), nil
		}

		resp := e.Dispatch(NewRequest("GET", "/missing", nil, nil))
		assert.Equal(t, http.StatusNotFound, resp.Status())
		assert.Equal(t, "application/json", resp.ContentType())
	})

	t.Run("custom method not allowed handler is used", func(t *testing.T) {
		e := New()
		e.MethodNotAllowed = func(*Request) (*Response, error) {
			return NewResponseStatus("try GET", http.StatusMethodNotAllowed), nil
		}
		require.NoError(t, e.HandleFunc("/users", []string{"GET"}, textHandler("ok")))

		resp := e.Dispatch(NewRequest("POST", "/users", nil, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, resp.Status())
		assert.Equal(t, "try GET", string(resp.Body()))
	})
}

func TestEngineMiddleware(t *testing.T) {
	t.Run("interceptors run in registration order", func(t *testing.T) {
		e := New()
		var order []string
		e.Use(func(*Request) (*Response, error) {
			order = append(order, "first")
			return nil, nil
		})
		e.Use(func(*Request) (*Response, error) {
			order = append(order, "second")
			return nil, nil
		})
		require.NoError(t, e.HandleFunc("/", []string{"GET"}, textHandler("ok")))

		e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("short-circuit response skips routing and later interceptors", func(t *testing.T) {
		e := New()
		var handlerCalled, laterCalled bool
		e.Use(func(*Request) (*Response, error) {
			return NewResponseStatus(nil, http.StatusNoContent), nil
		})
		e.Use(func(*Request) (*Response, error) {
			laterCalled = true
			return nil, nil
		})
		require.NoError(t, e.HandleFunc("/", []string{"GET"}, func(*Request) (*Response, error) {
			handlerCalled = true
			return NewResponse("ok"), nil
		}))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, http.StatusNoContent, resp.Status())
		assert.False(t, handlerCalled)
		assert.False(t, laterCalled)
	})

	t.Run("interceptor error produces 500", func(t *testing.T) {
		e := New()
		e.Use(func(*Request) (*Response, error) {
			return nil, errors.New("auth backend unavailable")
		})
		require.NoError(t, e.HandleFunc("/", []string{"GET"}, textHandler("ok")))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), "auth backend unavailable")
	})

	t.Run("interceptor can rewrite request headers", func(t *testing.T) {
		e := New()
		e.Use(func(req *Request) (*Response, error) {
			req.SetHeader("X-Tenant", "acme")
			return nil, nil
		})
		require.NoError(t, e.HandleFunc("/", []string{"GET"}, func(req *Request) (*Response, error) {
			return NewResponse(req.Header("X-Tenant")), nil
		}))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, "acme", string(resp.Body()))
	})
}

func TestEngineHandleParams(t *testing.T) {
	t.Run("binds declared names positionally", func(t *testing.T) {
		e := New()
		err := e.HandleParams("/repos/<owner>/<repo>", []string{"GET"}, []string{"repo", "owner"},
			func(_ *Request, args ...string) (*Response, error) {
				return NewResponse(fmt.Sprintf("%s by %s", args[0], args[1])), nil
			})
		require.NoError(t, err)

		resp := e.Dispatch(NewRequest("GET", "/repos/alice/widget", nil, nil))
		assert.Equal(t, "widget by alice", string(resp.Body()))
	})

	t.Run("declared name missing from route produces 500", func(t *testing.T) {
		e := New()
		err := e.HandleParams("/users/<name>", []string{"GET"}, []string{"id"},
			func(_ *Request, _ ...string) (*Response, error) {
				return NewResponse("never"), nil
			})
		require.NoError(t, err)

		resp := e.Dispatch(NewRequest("GET", "/users/alice", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), `handler parameter "id" has no matching path parameter`)
	})

	t.Run("rejects empty declared name", func(t *testing.T) {
		e := New()
		err := e.HandleParams("/users/<name>", []string{"GET"}, []string{""},
			func(_ *Request, _ ...string) (*Response, error) {
				return NewResponse("never"), nil
			})
		assert.ErrorContains(t, err, "empty parameter name")
	})
}

func TestEngineObserve(t *testing.T) {
	t.Run("observers see the request, response, and elapsed time", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/users", []string{"GET"}, textHandler("ok")))

		var gotPath string
		var gotStatus int
		var gotElapsed time.Duration
		e.Observe(func(req *Request, resp *Response, elapsed time.Duration) {
			gotPath = req.Path()
			gotStatus = resp.Status()
			gotElapsed = elapsed
		})

		e.Dispatch(NewRequest("GET", "/users", nil, nil))
		assert.Equal(t, "/users", gotPath)
		assert.Equal(t, http.StatusOK, gotStatus)
		assert.GreaterOrEqual(t, gotElapsed, time.Duration(0))
	})

	t.Run("observers run in registration order after failures too", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/panic", []string{"GET"}, func(*Request) (*Response, error) {
			panic("boom")
		}))

		var order []string
		var statuses []int
		e.Observe(func(_ *Request, resp *Response, _ time.Duration) {
			order = append(order, "first")
			statuses = append(statuses, resp.Status())
		})
		e.Observe(func(_ *Request, _ *Response, _ time.Duration) {
			order = append(order, "second")
		})

		resp := e.Dispatch(NewRequest("GET", "/panic", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Equal(t, []string{"first", "second"}, order)
		assert.Equal(t, []int{http.StatusInternalServerError}, statuses)
	})

	t.Run("a panicking observer does not lose the response", func(t *testing.T) {
		e := New()
		require.NoError(t, e.HandleFunc("/", []string{"GET"}, textHandler("ok")))
		e.Observe(func(*Request, *Response, time.Duration) {
			panic("observer bug")
		})

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusOK, resp.Status())
		assert.Equal(t, "ok", string(resp.Body()))
	})
}

type mapRenderer map[string]string

func (m mapRenderer) Render(name string, _ map[string]any) ([]byte, error) {
	tpl, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return []byte(tpl), nil
}

func TestEngineHandleTemplate(t *testing.T) {
	t.Run("fails without a renderer", func(t *testing.T) {
		e := New()
		err := e.HandleTemplate("/", []string{"GET"}, "index", nil)
		assert.ErrorIs(t, err, ErrNoRenderer)
	})

	t.Run("renders through the configured renderer", func(t *testing.T) {
		e := New()
		e.SetRenderer(mapRenderer{"index": "<h1>home</h1>"})
		require.NoError(t, e.HandleTemplate("/", []string{"GET"}, "index", nil))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, http.StatusOK, resp.Status())
		assert.Equal(t, "<h1>home</h1>", string(resp.Body()))
		assert.Equal(t, "text/html; charset=utf-8", resp.ContentType())
	})

	t.Run("render failure produces 500", func(t *testing.T) {
		e := New()
		e.SetRenderer(mapRenderer{})
		require.NoError(t, e.HandleTemplate("/", []string{"GET"}, "missing", nil))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), `render template "missing"`)
	})

	t.Run("context function errors produce 500", func(t *testing.T) {
		e := New()
		e.SetRenderer(mapRenderer{"index": "x"})
		require.NoError(t, e.HandleTemplate("/", []string{"GET"}, "index", func(*Request) (map[string]any, error) {
			return nil, errors.New("session lookup failed")
		}))

		resp := e.Dispatch(NewRequest("GET", "/", nil, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.Status())
		assert.Contains(t, string(resp.Body()), "session lookup failed")
	})
}
