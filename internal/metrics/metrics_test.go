package metrics

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
    e := echo.New()
    e.Use(Middleware())
    e.GET("/v1/orders/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

    before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/orders/:id", "200"))
    for _, id := range []string{"1", "2"} {
        e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/orders/"+id, nil))
    }
    after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/orders/:id", "200"))
    assert.Equal(t, before+2, after)
}

func TestTransitionCounter(t *testing.T) {
    before := testutil.ToFloat64(transitions.WithLabelValues("ORDER", "PENDING", "CONFIRMED"))
    Transition("ORDER", "PENDING", "CONFIRMED")
    assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("ORDER", "PENDING", "CONFIRMED")))
}

func TestHandlerExposesRegistry(t *testing.T) {
    RequestCreated("RESERVATION")
    rec := httptest.NewRecorder()
    Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.True(t, strings.Contains(rec.Body.String(), "cafe_lifecycle_requests_created_total"))
}
