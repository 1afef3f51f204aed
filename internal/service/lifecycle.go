package service

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/metrics"
    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/queue"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

const (
    maxNotesLen     = 500
    maxLineQuantity = repository.MaxItemQuantity
)

// ItemInput is a requested product line.
type ItemInput struct {
    ProductID uint64 `json:"product_id"`
    Quantity  int    `json:"quantity"`
}

// CreateInput carries everything needed to open a service request.  Which
// fields are required depends on Kind (see model.KindRules).
type CreateInput struct {
    Kind      model.Kind
    Items     []ItemInput
    SeatID    *uint64
    StartTime *time.Time
    EndTime   *time.Time
    Notes     string
}

// ListFilter narrows staff listings.
type ListFilter struct {
    Kind   model.Kind
    Status model.Status
    Limit  int
    Offset int
}

// Lifecycle owns every status change of a service request.  It is the
// only writer of service_requests.status.
type Lifecycle struct {
    requests RequestStore
    products ProductLookup
    seats    SeatLookup
    notifier Notifier
    policy   Policy
    log      logrus.FieldLogger
    now      func() time.Time
}

// NewLifecycle wires the engine.  notifier may be nil to disable
// notifications.
func NewLifecycle(requests RequestStore, products ProductLookup, seats SeatLookup, notifier Notifier, policy Policy, log logrus.FieldLogger) *Lifecycle {
    if policy.DefaultSlot <= 0 {
        policy.DefaultSlot = DefaultPolicy.DefaultSlot
    }
    return &Lifecycle{
        requests: requests,
        products: products,
        seats:    seats,
        notifier: notifier,
        policy:   policy,
        log:      log,
        now:      time.Now,
    }
}

// Create validates in and stores a new PENDING request owned by who.
func (l *Lifecycle) Create(ctx context.Context, who model.Identity, in CreateInput) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    kind, ok := model.ParseKind(string(in.Kind))
    if !ok {
        return nil, invalidf("unknown kind %q", in.Kind)
    }
    rules := kind.Rules()

    lines, err := mergeItems(in.Items)
    if err != nil {
        return nil, err
    }
    if rules.RequiresItems && len(lines) == 0 {
        return nil, invalidf("%s needs at least one item", strings.ToLower(string(kind)))
    }
    if rules.RequiresSeat && in.SeatID == nil {
        return nil, invalidf("seat_id is required")
    }
    if len(in.Notes) > maxNotesLen {
        return nil, invalidf("notes longer than %d characters", maxNotesLen)
    }

    now := l.clock()
    start, end := in.StartTime, in.EndTime
    if start == nil && (rules.StartsNow || (in.SeatID != nil && !rules.RequiresStart)) {
        start = &now
    }
    if start == nil && rules.RequiresStart {
        return nil, invalidf("start_time is required")
    }
    if start != nil && end == nil && (rules.DefaultsEnd || in.SeatID != nil) {
        e := start.Add(l.policy.DefaultSlot)
        end = &e
    }
    if end != nil && start == nil {
        return nil, invalidf("end_time needs start_time")
    }
    if start != nil && end != nil && end.Before(*start) {
        return nil, invalidf("end_time before start_time")
    }
    if in.SeatID != nil {
        seat, err := l.seats.Get(ctx, *in.SeatID)
        if err != nil {
            return nil, storeErr("load seat", err)
        }
        if !seat.IsActive {
            return nil, invalidf("seat %s is not available", seat.Label)
        }
    }

    items, err := l.priceItems(ctx, lines)
    if err != nil {
        return nil, err
    }
    req := &model.ServiceRequest{
        Kind:       kind,
        OwnerID:    who.UserID,
        OwnerEmail: who.Email,
        Status:     model.StatusPending,
        Items:      items,
        SeatID:     in.SeatID,
        StartTime:  utcPtr(start),
        EndTime:    utcPtr(end),
        Notes:      strings.TrimSpace(in.Notes),
        CreatedAt:  now,
        UpdatedAt:  now,
    }
    req.TotalAmountCents = req.Total()
    if err := l.requests.Create(ctx, req); err != nil {
        return nil, storeErr("create request", err)
    }
    metrics.RequestCreated(string(kind))
    l.notify(ctx, req, "")
    return req, nil
}

// Get returns a request visible to who.
func (l *Lifecycle) Get(ctx context.Context, who model.Identity, id uint64) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    req, err := l.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if err := Authorize(who, req, ActionView); err != nil {
        return nil, err
    }
    return req, nil
}

// ListMine returns the caller's own requests, newest first.  An empty kind
// lists every kind.
func (l *Lifecycle) ListMine(ctx context.Context, who model.Identity, kind model.Kind) ([]model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    list, err := l.requests.List(ctx, repository.RequestFilter{OwnerID: who.UserID, Kind: kind})
    if err != nil {
        return nil, storeErr("list requests", err)
    }
    return list, nil
}

// ListAll returns every request matching f.  Only staff may call it.
func (l *Lifecycle) ListAll(ctx context.Context, who model.Identity, f ListFilter) ([]model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    if !who.IsStaff() {
        return nil, fmt.Errorf("%w: staff only", ErrForbidden)
    }
    list, err := l.requests.List(ctx, repository.RequestFilter{Kind: f.Kind, Status: f.Status, Limit: f.Limit, Offset: f.Offset})
    if err != nil {
        return nil, storeErr("list requests", err)
    }
    return list, nil
}

// Transition moves request id to target.  Reaching a terminal status the
// request is already in succeeds without a write, so retries are safe.
func (l *Lifecycle) Transition(ctx context.Context, who model.Identity, id uint64, target model.Status) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    target, ok := model.ParseStatus(string(target))
    if !ok {
        return nil, invalidf("unknown status")
    }
    req, err := l.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if err := Authorize(who, req, ActionFor(target)); err != nil {
        return nil, err
    }
    if req.Status == target && target.IsTerminal() {
        return req, nil
    }
    force := target == model.StatusCancelled && who.IsAdmin() && l.policy.AdminForceCancel
    if !model.CanTransition(req.Status, target, force) {
        return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, target)
    }
    return l.apply(ctx, req, target)
}

// Cancel is the owner-facing cancellation: it only succeeds while the
// request is PENDING, whatever the caller's role.
func (l *Lifecycle) Cancel(ctx context.Context, who model.Identity, id uint64) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    req, err := l.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if err := Authorize(who, req, ActionCancel); err != nil {
        return nil, err
    }
    if req.Status == model.StatusCancelled {
        return req, nil
    }
    if req.Status != model.StatusPending {
        return nil, fmt.Errorf("%w: %w: only pending requests can be cancelled, status is %s",
            ErrInvalidTransition, ErrConflict, req.Status)
    }
    return l.apply(ctx, req, model.StatusCancelled)
}

// AddItems appends product lines to a non-terminal request.  Lines for a
// product already on the request add to its quantity.
func (l *Lifecycle) AddItems(ctx context.Context, who model.Identity, id uint64, in []ItemInput) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    lines, err := mergeItems(in)
    if err != nil {
        return nil, err
    }
    if len(lines) == 0 {
        return nil, invalidf("no items given")
    }
    req, err := l.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if err := Authorize(who, req, ActionEditItems); err != nil {
        return nil, err
    }
    if req.Status.IsTerminal() {
        return nil, fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
    }
    for _, ln := range lines {
        for _, have := range req.Items {
            if have.ProductID == ln.ProductID && have.Quantity+ln.Quantity > maxLineQuantity {
                return nil, invalidf("product %d: at most %d per request", ln.ProductID, maxLineQuantity)
            }
        }
    }
    items, err := l.priceItems(ctx, lines)
    if err != nil {
        return nil, err
    }
    applied, err := l.requests.AddItems(ctx, repository.ItemsChange{
        ID:           id,
        ExpectStatus: req.Status,
        Items:        items,
        UpdatedAt:    l.nextUpdate(req.UpdatedAt),
    })
    if err != nil {
        return nil, storeErr("add items", err)
    }
    if !applied {
        return nil, fmt.Errorf("%w: request changed concurrently", ErrConflict)
    }
    return l.load(ctx, id)
}

// Delete hard-deletes a request.  ADMIN only.
func (l *Lifecycle) Delete(ctx context.Context, who model.Identity, id uint64) error {
    if who.Anonymous() {
        return ErrUnauthenticated
    }
    req, err := l.load(ctx, id)
    if err != nil {
        return err
    }
    if err := Authorize(who, req, ActionDelete); err != nil {
        return err
    }
    if err := l.requests.Delete(ctx, id); err != nil {
        return storeErr("delete request", err)
    }
    l.log.WithFields(logrus.Fields{"request_id": id, "by": who.UserID}).Info("request deleted")
    return nil
}

// apply performs a checked transition with a conditional update.  If the
// row changed underneath, the request is re-read: landing on the same
// terminal target counts as success; anything else is a conflict.
func (l *Lifecycle) apply(ctx context.Context, req *model.ServiceRequest, target model.Status) (*model.ServiceRequest, error) {
    from := req.Status
    change := repository.StatusChange{
        ID:          req.ID,
        From:        from,
        To:          target,
        UpdatedAt:   l.nextUpdate(req.UpdatedAt),
        ReleaseSeat: target.IsTerminal() && req.SeatID != nil,
    }
    if target == model.StatusConfirmed && req.SeatID != nil && req.StartTime != nil && req.EndTime != nil {
        change.Seat = &repository.SeatWindow{SeatID: *req.SeatID, Start: *req.StartTime, End: *req.EndTime}
    }

    applied, err := l.requests.UpdateStatus(ctx, change)
    if err != nil {
        return nil, storeErr("update status", err)
    }
    if !applied {
        cur, err := l.load(ctx, req.ID)
        if err != nil {
            return nil, err
        }
        if cur.Status == target && target.IsTerminal() {
            return cur, nil
        }
        return nil, fmt.Errorf("%w: status changed concurrently to %s", ErrConflict, cur.Status)
    }

    req.Status = target
    req.UpdatedAt = change.UpdatedAt
    if change.ReleaseSeat {
        req.SeatID = nil
    }
    metrics.Transition(string(req.Kind), string(from), string(target))
    l.log.WithFields(logrus.Fields{
        "request_id": req.ID,
        "kind":       req.Kind,
        "from":       from,
        "to":         target,
    }).Info("request status changed")
    l.notify(ctx, req, from)
    return req, nil
}

func (l *Lifecycle) load(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
    req, err := l.requests.Get(ctx, id)
    if err != nil {
        return nil, storeErr("load request", err)
    }
    return req, nil
}

// notify publishes the event in the background of the request: failures
// are logged and counted but never reach the caller.
func (l *Lifecycle) notify(ctx context.Context, req *model.ServiceRequest, from model.Status) {
    if l.notifier == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
    defer cancel()
    if err := l.notifier.Publish(ctx, queue.NewStatusChangedEvent(req, from)); err != nil {
        metrics.NotificationFailed()
        l.log.WithError(err).WithField("request_id", req.ID).Warn("status notification dropped")
    }
}

// nextUpdate returns a timestamp strictly after prev, at the microsecond
// precision of the updated_at column.
func (l *Lifecycle) nextUpdate(prev time.Time) time.Time {
    now := l.clock()
    if !now.After(prev) {
        now = prev.Add(time.Microsecond)
    }
    return now
}

func (l *Lifecycle) clock() time.Time {
    return l.now().UTC().Truncate(time.Microsecond)
}

// priceItems attaches the current catalog price to every line.  Unknown or
// inactive products are reported as not found.
func (l *Lifecycle) priceItems(ctx context.Context, lines []ItemInput) ([]model.Item, error) {
    if len(lines) == 0 {
        return []model.Item{}, nil
    }
    ids := make([]uint64, len(lines))
    for i, in := range lines {
        ids[i] = in.ProductID
    }
    products, err := l.products.GetMany(ctx, ids)
    if err != nil {
        return nil, storeErr("load products", err)
    }
    items := make([]model.Item, 0, len(lines))
    for _, in := range lines {
        p, ok := products[in.ProductID]
        if !ok || !p.IsActive {
            return nil, fmt.Errorf("%w: product %d", ErrNotFound, in.ProductID)
        }
        items = append(items, model.Item{ProductID: p.ID, Quantity: in.Quantity, UnitPriceCents: p.PriceCents})
    }
    return items, nil
}

// mergeItems validates lines and folds duplicates of one product into a
// single line, ordered by product id.  No merged line may exceed
// maxLineQuantity.
func mergeItems(in []ItemInput) ([]ItemInput, error) {
    qty := make(map[uint64]int, len(in))
    for _, it := range in {
        if it.ProductID == 0 {
            return nil, invalidf("product_id is required")
        }
        if it.Quantity <= 0 || it.Quantity > maxLineQuantity {
            return nil, invalidf("quantity must be between 1 and %d", maxLineQuantity)
        }
        qty[it.ProductID] += it.Quantity
        if qty[it.ProductID] > maxLineQuantity {
            return nil, invalidf("product %d: at most %d per request", it.ProductID, maxLineQuantity)
        }
    }
    out := make([]ItemInput, 0, len(qty))
    for id, q := range qty {
        out = append(out, ItemInput{ProductID: id, Quantity: q})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
    return out, nil
}

func utcPtr(t *time.Time) *time.Time {
    if t == nil {
        return nil
    }
    u := t.UTC().Truncate(time.Microsecond)
    return &u
}
