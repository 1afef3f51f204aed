package service

import (
    "context"
    "sort"
    "time"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

const (
    DefaultTopProducts = 4
    MaxTopProducts     = 50
)

// Analytics computes the reporting views.  Calendar boundaries are UTC.
type Analytics struct {
    store ReportStore
    now   func() time.Time
}

func NewAnalytics(store ReportStore) *Analytics {
    return &Analytics{store: store, now: time.Now}
}

// MonthlySales returns 12 entries (months 1..12) with the revenue of
// COMPLETED and PAID requests created in year.  Months without sales are 0.
func (a *Analytics) MonthlySales(ctx context.Context, year int) ([]model.MonthlySales, error) {
    if year < 1970 || year > 9999 {
        return nil, invalidf("year %d out of range", year)
    }
    from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
    rows, err := a.store.SalesByMonth(ctx, from, from.AddDate(1, 0, 0), model.SalesStatuses)
    if err != nil {
        return nil, storeErr("monthly sales", err)
    }
    out := make([]model.MonthlySales, 12)
    for i := range out {
        out[i].Month = i + 1
    }
    for _, r := range rows {
        if r.Month >= 1 && r.Month <= 12 {
            out[r.Month-1].TotalAmountCents += r.Total
        }
    }
    return out, nil
}

// AvailableSalesYears lists the distinct years with at least one sale,
// newest first.
func (a *Analytics) AvailableSalesYears(ctx context.Context) ([]int, error) {
    years, err := a.store.SalesYears(ctx, model.SalesStatuses)
    if err != nil {
        return nil, storeErr("sales years", err)
    }
    seen := make(map[int]bool, len(years))
    out := make([]int, 0, len(years))
    for _, y := range years {
        if !seen[y] {
            seen[y] = true
            out = append(out, y)
        }
    }
    sort.Sort(sort.Reverse(sort.IntSlice(out)))
    return out, nil
}

// ReservationTrends compares reservation counts per month (0..11) of the
// current calendar year against the previous one, regardless of status.
func (a *Analytics) ReservationTrends(ctx context.Context) ([]model.ReservationTrend, error) {
    cur := a.now().UTC().Year()
    from := time.Date(cur-1, time.January, 1, 0, 0, 0, 0, time.UTC)
    to := time.Date(cur+1, time.January, 1, 0, 0, 0, 0, time.UTC)
    rows, err := a.store.CountByMonth(ctx, model.KindReservation, from, to)
    if err != nil {
        return nil, storeErr("reservation trends", err)
    }
    out := make([]model.ReservationTrend, 12)
    for i := range out {
        out[i].Month = i
    }
    for _, r := range rows {
        if r.Month < 1 || r.Month > 12 {
            continue
        }
        switch r.Year {
        case cur:
            out[r.Month-1].CurrentYearCount += r.Count
        case cur - 1:
            out[r.Month-1].PreviousYearCount += r.Count
        }
    }
    return out, nil
}

// ClampTopN bounds a requested ranking size; n <= 0 selects the default.
func ClampTopN(n int) int {
    switch {
    case n <= 0:
        return DefaultTopProducts
    case n > MaxTopProducts:
        return MaxTopProducts
    }
    return n
}

// TopProducts ranks products by the number of request lines referencing
// them.  Ties keep catalog order.
func (a *Analytics) TopProducts(ctx context.Context, n int) ([]model.TopProduct, error) {
    n = ClampTopN(n)
    rows, err := a.store.ProductLineCounts(ctx)
    if err != nil {
        return nil, storeErr("top products", err)
    }
    sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalOrderCount > rows[j].TotalOrderCount })
    if len(rows) > n {
        rows = rows[:n]
    }
    if rows == nil {
        rows = []model.TopProduct{}
    }
    return rows, nil
}
