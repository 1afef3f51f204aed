// Package logging builds the process-wide logrus logger and the echo
// middleware that writes one structured entry per HTTP request.
package logging

import (
    "io"
    "os"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.  Development environments get
// human readable text; everything else gets JSON.
func New(env, level string) *logrus.Logger {
    return newWithOutput(os.Stdout, env, level)
}

func newWithOutput(w io.Writer, env, level string) *logrus.Logger {
    log := logrus.New()
    log.SetOutput(w)
    if env == "dev" || env == "local" {
        log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
    }
    lvl, err := logrus.ParseLevel(level)
    if err != nil {
        lvl = logrus.InfoLevel
    }
    log.SetLevel(lvl)
    return log
}

// RequestLogger logs method, route, status, latency and the request ID set
// by echo's RequestID middleware.  5xx responses are logged at error level.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            res := c.Response()
            entry := log.WithFields(logrus.Fields{
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "method":     c.Request().Method,
                "route":      c.Path(),
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
            })
            if uid := c.Get("user_id"); uid != nil {
                entry = entry.WithField("user_id", uid)
            }
            switch {
            case res.Status >= 500:
                entry.Error("request failed")
            case res.Status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request served")
            }
            return nil
        }
    }
}
