package handlers

import (
	"go.uber.org/zap"

	"github.com/conduit-http/conduit/engine"
)

// AccessLog returns an interceptor that logs each request before routing.
// It never short-circuits. Because interceptors run ahead of route matching,
// the log line carries request facts only; response status is the
// transport's to log.
func AccessLog(logger *zap.Logger) engine.Middleware {
	return func(req *engine.Request) (*engine.Response, error) {
		logger.Info("request received",
			zap.String("method", req.Method()),
			zap.String("path", req.Path()),
			zap.Int("body_bytes", len(req.Body())),
			zap.String("user_agent", req.Header("User-Agent")),
			zap.String("request_id", req.Header("X-Request-ID")),
		)
		return nil, nil
	}
}
