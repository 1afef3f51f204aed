package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/repository"
    "github.com/iliyamo/cafe-ordering/internal/service"
)

// requestTimeout bounds the database work of a single handler.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusFor maps service and repository errors onto HTTP status codes.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidTransition):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrUnauthenticated):
        return http.StatusUnauthorized
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrConflict),
        errors.Is(err, repository.ErrSeatTaken), errors.Is(err, repository.ErrEmailExists):
        return http.StatusConflict
    default:
        return http.StatusInternalServerError
    }
}

// fail writes {"error": msg}.  Client errors carry the wrapped message;
// server errors are logged and answered with a generic text.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
    code := statusFor(err)
    if code >= http.StatusInternalServerError {
        if log != nil {
            log.WithError(err).WithField("route", c.Path()).Error("request failed")
        }
        return c.JSON(code, echo.Map{"error": "internal error"})
    }
    return c.JSON(code, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, bool) {
    s := c.QueryParam(name)
    if s == "" {
        return def, true
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return 0, false
    }
    return n, true
}
