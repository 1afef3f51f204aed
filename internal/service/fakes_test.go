package service

import (
    "context"
    "errors"
    "io"
    "sort"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/queue"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

func quietLog() *logrus.Logger {
    l := logrus.New()
    l.SetOutput(io.Discard)
    return l
}

// memRequests mimics RequestRepo: conditional status updates and the seat
// overlap check run under one lock, like the seat row lock in MySQL.
type memRequests struct {
    mu          sync.Mutex
    rows        map[uint64]*model.ServiceRequest
    nextID      uint64
    updateCalls int
    // beforeUpdate runs inside UpdateStatus before the condition is
    // checked; tests use it to simulate a concurrent writer.
    beforeUpdate func(r *model.ServiceRequest)
}

func newMemRequests() *memRequests {
    return &memRequests{rows: make(map[uint64]*model.ServiceRequest)}
}

func cloneRequest(r *model.ServiceRequest) *model.ServiceRequest {
    c := *r
    c.Items = append([]model.Item{}, r.Items...)
    if r.SeatID != nil {
        s := *r.SeatID
        c.SeatID = &s
    }
    return &c
}

func (m *memRequests) seatTaken(seatID uint64, start, end time.Time, exclude uint64) bool {
    for id, r := range m.rows {
        if id == exclude || r.SeatID == nil || *r.SeatID != seatID || r.Status.IsTerminal() {
            continue
        }
        if r.StartTime != nil && r.EndTime != nil && model.Overlaps(start, end, *r.StartTime, *r.EndTime) {
            return true
        }
    }
    return false
}

func (m *memRequests) Create(_ context.Context, req *model.ServiceRequest) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if req.SeatID != nil && req.StartTime != nil && req.EndTime != nil &&
        m.seatTaken(*req.SeatID, *req.StartTime, *req.EndTime, 0) {
        return repository.ErrSeatTaken
    }
    m.nextID++
    req.ID = m.nextID
    m.rows[req.ID] = cloneRequest(req)
    return nil
}

func (m *memRequests) Get(_ context.Context, id uint64) (*model.ServiceRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return cloneRequest(r), nil
}

func (m *memRequests) List(_ context.Context, f repository.RequestFilter) ([]model.ServiceRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.ServiceRequest
    for _, r := range m.rows {
        if f.OwnerID != 0 && r.OwnerID != f.OwnerID {
            continue
        }
        if f.Kind != "" && r.Kind != f.Kind {
            continue
        }
        if f.Status != "" && r.Status != f.Status {
            continue
        }
        out = append(out, *cloneRequest(r))
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out, nil
}

func (m *memRequests) UpdateStatus(_ context.Context, ch repository.StatusChange) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.updateCalls++
    r, ok := m.rows[ch.ID]
    if !ok {
        return false, nil
    }
    if m.beforeUpdate != nil {
        m.beforeUpdate(r)
    }
    if ch.Seat != nil && m.seatTaken(ch.Seat.SeatID, ch.Seat.Start, ch.Seat.End, ch.ID) {
        return false, repository.ErrSeatTaken
    }
    if r.Status != ch.From {
        return false, nil
    }
    r.Status = ch.To
    r.UpdatedAt = ch.UpdatedAt
    if ch.ReleaseSeat {
        r.SeatID = nil
    }
    return true, nil
}

func (m *memRequests) AddItems(_ context.Context, ch repository.ItemsChange) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r, ok := m.rows[ch.ID]
    if !ok {
        return false, repository.ErrNotFound
    }
    if r.Status != ch.ExpectStatus {
        return false, nil
    }
    for _, add := range ch.Items {
        for _, have := range r.Items {
            if have.ProductID == add.ProductID && have.Quantity+add.Quantity > repository.MaxItemQuantity {
                return false, repository.ErrQuantityLimit
            }
        }
    }
    for _, add := range ch.Items {
        merged := false
        for i := range r.Items {
            if r.Items[i].ProductID == add.ProductID {
                r.Items[i].Quantity += add.Quantity
                merged = true
            }
        }
        if !merged {
            r.Items = append(r.Items, add)
        }
    }
    r.TotalAmountCents = r.Total()
    r.UpdatedAt = ch.UpdatedAt
    return true, nil
}

func (m *memRequests) Delete(_ context.Context, id uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.rows[id]; !ok {
        return repository.ErrNotFound
    }
    delete(m.rows, id)
    return nil
}

type memProducts map[uint64]model.Product

func (m memProducts) GetMany(_ context.Context, ids []uint64) (map[uint64]model.Product, error) {
    out := make(map[uint64]model.Product)
    for _, id := range ids {
        if p, ok := m[id]; ok {
            out[id] = p
        }
    }
    return out, nil
}

type memSeats map[uint64]model.Seat

func (m memSeats) Get(_ context.Context, id uint64) (model.Seat, error) {
    s, ok := m[id]
    if !ok {
        return model.Seat{}, repository.ErrNotFound
    }
    return s, nil
}

type memCart struct {
    mu       sync.Mutex
    lines    map[[2]uint64]int
    clearErr error
}

func newMemCart() *memCart { return &memCart{lines: make(map[[2]uint64]int)} }

func (m *memCart) Increment(_ context.Context, userID, productID uint64, delta int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    k := [2]uint64{userID, productID}
    m.lines[k] += delta
    if m.lines[k] > repository.MaxItemQuantity {
        m.lines[k] = repository.MaxItemQuantity
    }
    return nil
}

func (m *memCart) SetQuantity(_ context.Context, userID, productID uint64, qty int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.lines[[2]uint64{userID, productID}] = qty
    return nil
}

func (m *memCart) Remove(_ context.Context, userID, productID uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.lines, [2]uint64{userID, productID})
    return nil
}

func (m *memCart) Clear(_ context.Context, userID uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.clearErr != nil {
        return m.clearErr
    }
    for k := range m.lines {
        if k[0] == userID {
            delete(m.lines, k)
        }
    }
    return nil
}

func (m *memCart) List(_ context.Context, userID uint64) ([]model.CartItem, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.CartItem{}
    for k, q := range m.lines {
        if k[0] == userID {
            out = append(out, model.CartItem{ProductID: k[1], Quantity: q, UnitPriceCents: 100, LineTotalCents: int64(q) * 100})
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
    return out, nil
}

// memReports evaluates the report queries over an in-memory request list.
type memReports struct {
    requests []model.ServiceRequest
    products []model.Product // catalog order
    err      error
}

func hasStatus(set []model.Status, s model.Status) bool {
    for _, x := range set {
        if x == s {
            return true
        }
    }
    return false
}

func (m *memReports) SalesByMonth(_ context.Context, from, to time.Time, statuses []model.Status) ([]repository.MonthTotal, error) {
    if m.err != nil {
        return nil, m.err
    }
    sums := map[int]int64{}
    for _, r := range m.requests {
        if hasStatus(statuses, r.Status) && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
            sums[int(r.CreatedAt.Month())] += r.TotalAmountCents
        }
    }
    var out []repository.MonthTotal
    for mth, t := range sums {
        out = append(out, repository.MonthTotal{Month: mth, Total: t})
    }
    return out, nil
}

func (m *memReports) SalesYears(_ context.Context, statuses []model.Status) ([]int, error) {
    var out []int
    for _, r := range m.requests {
        if hasStatus(statuses, r.Status) {
            out = append(out, r.CreatedAt.Year())
        }
    }
    return out, nil
}

func (m *memReports) CountByMonth(_ context.Context, kind model.Kind, from, to time.Time) ([]repository.YearMonthCount, error) {
    counts := map[[2]int]int64{}
    for _, r := range m.requests {
        if r.Kind == kind && !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
            counts[[2]int{r.CreatedAt.Year(), int(r.CreatedAt.Month())}]++
        }
    }
    var out []repository.YearMonthCount
    for k, c := range counts {
        out = append(out, repository.YearMonthCount{Year: k[0], Month: k[1], Count: c})
    }
    return out, nil
}

func (m *memReports) ProductLineCounts(_ context.Context) ([]model.TopProduct, error) {
    lines := map[uint64]int64{}
    for _, r := range m.requests {
        for _, it := range r.Items {
            lines[it.ProductID]++
        }
    }
    var out []model.TopProduct
    for _, p := range m.products {
        if n := lines[p.ID]; n > 0 {
            out = append(out, model.TopProduct{Product: p, TotalOrderCount: n})
        }
    }
    return out, nil
}

type recordingNotifier struct {
    mu     sync.Mutex
    events []queue.StatusChangedEvent
    err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev queue.StatusChangedEvent) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, ev)
    return n.err
}

var errBroker = errors.New("broker down")
