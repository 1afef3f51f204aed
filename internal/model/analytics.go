package model

// MonthlySales is the revenue of one calendar month (1..12).
type MonthlySales struct {
    Month            int   `json:"month"`
    TotalAmountCents int64 `json:"total_amount_cents"`
}

// ReservationTrend compares reservation counts for one month (0..11) of
// the current year against the previous year.
type ReservationTrend struct {
    Month             int   `json:"month"`
    CurrentYearCount  int64 `json:"current_year_count"`
    PreviousYearCount int64 `json:"previous_year_count"`
}

// TopProduct pairs a product with the number of request lines that
// reference it.
type TopProduct struct {
    Product         Product `json:"product"`
    TotalOrderCount int64   `json:"total_order_count"`
}
