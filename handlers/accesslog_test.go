package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-http/conduit/engine"
)

func TestAccessLog(t *testing.T) {
	t.Run("logs request facts and passes through", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		mw := AccessLog(zap.New(core))

		header := http.Header{}
		header.Set("User-Agent", "curl/8.5.0")
		header.Set("X-Request-ID", "req-1")
		req := engine.NewRequest(http.MethodPost, "/users?notify=1", header, []byte("payload"))

		resp, err := mw(req)
		require.NoError(t, err)
		assert.Nil(t, resp)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "request received", entries[0].Message)

		fields := entries[0].ContextMap()
		assert.Equal(t, "POST", fields["method"])
		assert.Equal(t, "/users?notify=1", fields["path"])
		assert.Equal(t, int64(7), fields["body_bytes"])
		assert.Equal(t, "curl/8.5.0", fields["user_agent"])
		assert.Equal(t, "req-1", fields["request_id"])
	})

	t.Run("runs after request id stamping when ordered that way", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)

		e := engine.New()
		e.Use(RequestID(RequestIDConfig{Generate: func() string { return "stamped" }}))
		e.Use(AccessLog(zap.New(core)))
		require.NoError(t, e.HandleFunc("/", []string{http.MethodGet}, func(*engine.Request) (*engine.Response, error) {
			return engine.NewResponse("ok"), nil
		}))

		e.Dispatch(engine.NewRequest(http.MethodGet, "/", nil, nil))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "stamped", entries[0].ContextMap()["request_id"])
	})
}
