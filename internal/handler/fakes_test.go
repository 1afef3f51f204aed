package handler

import (
    "context"
    "fmt"
    "io"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cafe-ordering/internal/middleware"
    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/queue"
    "github.com/iliyamo/cafe-ordering/internal/repository"
    "github.com/iliyamo/cafe-ordering/internal/utils"
)

const testSecret = "test-secret"

func quietLog() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

// bearer returns an Authorization header value for the given caller.
func bearer(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, id, fmt.Sprintf("u%d@cafe.test", id), role, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func doJSON(e *echo.Echo, method, target, auth, body string) *httptest.ResponseRecorder {
    var rd io.Reader
    if body != "" {
        rd = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, rd)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func jwt() echo.MiddlewareFunc { return middleware.JWTAuth(testSecret) }

// memStore is a minimal in-memory request store.
type memStore struct {
    mu   sync.Mutex
    next uint64
    rows map[uint64]model.ServiceRequest
}

func newMemStore() *memStore { return &memStore{rows: map[uint64]model.ServiceRequest{}} }

func (m *memStore) Create(_ context.Context, req *model.ServiceRequest) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.next++
    req.ID = m.next
    m.rows[req.ID] = *req
    return nil
}

func (m *memStore) Get(_ context.Context, id uint64) (*model.ServiceRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return &r, nil
}

func (m *memStore) List(_ context.Context, f repository.RequestFilter) ([]model.ServiceRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.ServiceRequest{}
    for i := m.next; i >= 1; i-- {
        r, ok := m.rows[i]
        if !ok || (f.OwnerID != 0 && r.OwnerID != f.OwnerID) || (f.Kind != "" && r.Kind != f.Kind) {
            continue
        }
        out = append(out, r)
    }
    return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, ch repository.StatusChange) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.rows[ch.ID]
    if !ok || r.Status != ch.From {
        return false, nil
    }
    r.Status, r.UpdatedAt = ch.To, ch.UpdatedAt
    if ch.ReleaseSeat {
        r.SeatID = nil
    }
    m.rows[ch.ID] = r
    return true, nil
}

func (m *memStore) AddItems(_ context.Context, ch repository.ItemsChange) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.rows[ch.ID]
    if !ok || r.Status != ch.ExpectStatus {
        return false, nil
    }
    r.Items = append(r.Items, ch.Items...)
    r.TotalAmountCents = r.Total()
    r.UpdatedAt = ch.UpdatedAt
    m.rows[ch.ID] = r
    return true, nil
}

func (m *memStore) Delete(_ context.Context, id uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.rows[id]; !ok {
        return repository.ErrNotFound
    }
    delete(m.rows, id)
    return nil
}

type menu map[uint64]model.Product

func (m menu) GetMany(_ context.Context, ids []uint64) (map[uint64]model.Product, error) {
    out := map[uint64]model.Product{}
    for _, id := range ids {
        if p, ok := m[id]; ok {
            out[id] = p
        }
    }
    return out, nil
}

type seatPlan map[uint64]model.Seat

func (s seatPlan) Get(_ context.Context, id uint64) (model.Seat, error) {
    if seat, ok := s[id]; ok {
        return seat, nil
    }
    return model.Seat{}, repository.ErrNotFound
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, queue.StatusChangedEvent) error { return nil }
