package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/reinhart/lumen/internal/ledger"
)

// Tool names, in the order the model sees them.
const (
	ToolMonthlySummary = "monthly_spending_summary"
	ToolTopCategories  = "top_spending_categories"
	ToolAnomalies      = "detect_anomalies"
	ToolRecent         = "recent_transactions"
)

const (
	maxRecentTransactions = 50
	maxAnomalies          = 10
)

// FinanceTools are the read-only analytics over a ledger.Store. They see
// nothing but the store and scalar parameters.
type FinanceTools struct {
	Store ledger.Store
	Now   func() time.Time
}

func (f *FinanceTools) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Register adds the finance tools to r in their fixed order.
func (f *FinanceTools) Register(r *ToolRegistry) {
	r.MustRegister(NewTool(ToolMonthlySummary,
		"Get spending summary for a specific month including total spent, income, and net flow.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"month": {"type": "string", "description": "Month name (e.g., 'January') or number (1-12). Defaults to current month."},
				"year": {"type": "integer", "description": "Year (e.g., 2025). Defaults to current year."}
			},
			"required": [],
			"additionalProperties": false
		}`),
		f.MonthlySummary))

	r.MustRegister(NewTool(ToolTopCategories,
		"Get top spending categories with amounts and percentages for a time period.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Number of categories to return (default: 5)"},
				"days": {"type": "integer", "description": "Number of days to look back (default: 30)"}
			},
			"required": [],
			"additionalProperties": false
		}`),
		f.TopCategories))

	r.MustRegister(NewTool(ToolAnomalies,
		"Detect suspicious or unusual transactions based on amount thresholds and system flags.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"threshold_percentile": {"type": "number", "description": "Transactions above this percentile are flagged (default: 95)"}
			},
			"required": [],
			"additionalProperties": false
		}`),
		f.DetectAnomalies))

	r.MustRegister(NewTool(ToolRecent,
		"Get most recent transactions, optionally filtered by category.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Number of transactions to return (default: 10, max: 50)"},
				"category": {"type": "string", "description": "Optional category filter (e.g., 'Dining', 'Shopping')"}
			},
			"required": [],
			"additionalProperties": false
		}`),
		f.RecentTransactions))
}

// --- monthly_spending_summary ---

// MonthArg accepts a full month name or a number 1-12, the number either as
// JSON or as a string. Zero means unset.
type MonthArg struct {
	Month   time.Month
	Unknown bool // a name that did not match any month
}

func (m *MonthArg) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		return m.setNumber(n)
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return invalidArgs("parameter \"month\" must be a month name or number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return m.setNumber(n)
	}
	for mon := time.January; mon <= time.December; mon++ {
		if strings.EqualFold(mon.String(), s) {
			m.Month = mon
			return nil
		}
	}
	m.Unknown = true
	return nil
}

func (m *MonthArg) setNumber(n int) error {
	if n < 1 || n > 12 {
		return invalidArgs("parameter \"month\" must be between 1 and 12")
	}
	m.Month = time.Month(n)
	return nil
}

type monthlyArgs struct {
	Month MonthArg `json:"month"`
	Year  int      `json:"year"`
}

// MonthlySummary is the result of monthly_spending_summary.
type MonthlySummary struct {
	Month            string  `json:"month"`
	TotalSpent       float64 `json:"total_spent"`
	TotalIncome      float64 `json:"total_income"`
	NetFlow          float64 `json:"net_flow"`
	TransactionCount int     `json:"transaction_count"`
	AvgTransaction   float64 `json:"avg_transaction"`
}

func (f *FinanceTools) MonthlySummary(ctx context.Context, args monthlyArgs) (any, error) {
	now := f.now()

	year := args.Year
	if year == 0 {
		year = now.Year()
	}
	month := args.Month.Month
	if month == 0 || args.Month.Unknown {
		month = now.Month()
	}

	txns, err := f.Store.Transactions(ctx, ledger.Query{
		DatePrefix: fmt.Sprintf("%04d-%02d", year, int(month)),
	})
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}

	var spent, income float64
	for _, t := range txns {
		switch {
		case t.IsDebit():
			spent += t.Amount
		case t.IsCredit():
			income += t.Amount
		}
	}

	var avg float64
	if len(txns) > 0 {
		avg = spent / float64(len(txns))
	}

	return MonthlySummary{
		Month:            time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006"),
		TotalSpent:       round2(spent),
		TotalIncome:      round2(income),
		NetFlow:          round2(income - spent),
		TransactionCount: len(txns),
		AvgTransaction:   round2(avg),
	}, nil
}

// --- top_spending_categories ---

type topCategoriesArgs struct {
	Limit *int `json:"limit"`
	Days  *int `json:"days"`
}

// CategorySpend is one row of top_spending_categories.
type CategorySpend struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// TopCategories is the result of top_spending_categories.
type TopCategories struct {
	Period        string          `json:"period"`
	TotalAnalyzed float64         `json:"total_analyzed"`
	Categories    []CategorySpend `json:"categories"`
}

func (f *FinanceTools) TopCategories(ctx context.Context, args topCategoriesArgs) (any, error) {
	limit := intOr(args.Limit, 5)
	days := intOr(args.Days, 30)
	if limit < 0 {
		return nil, invalidArgs("parameter \"limit\" must not be negative")
	}
	if days < 0 {
		return nil, invalidArgs("parameter \"days\" must not be negative")
	}

	since := f.now().AddDate(0, 0, -days).Format(ledger.DateLayout)
	txns, err := f.Store.Transactions(ctx, ledger.Query{Type: ledger.TypeDebit, Since: since})
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}

	var rows []CategorySpend
	pos := make(map[string]int)
	var total float64
	for _, t := range txns {
		cat := t.CategoryOrOther()
		i, ok := pos[cat]
		if !ok {
			i = len(rows)
			pos[cat] = i
			rows = append(rows, CategorySpend{Category: cat})
		}
		rows[i].Amount += t.Amount
		rows[i].Count++
		total += t.Amount
	}

	slices.SortStableFunc(rows, func(a, b CategorySpend) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	for i := range rows {
		if total > 0 {
			rows[i].Percentage = round1(rows[i].Amount / total * 100)
		}
		rows[i].Amount = round2(rows[i].Amount)
	}
	if rows == nil {
		rows = []CategorySpend{}
	}

	return TopCategories{
		Period:        fmt.Sprintf("Last %d days", days),
		TotalAnalyzed: round2(total),
		Categories:    rows,
	}, nil
}

// --- detect_anomalies ---

type anomaliesArgs struct {
	ThresholdPercentile *float64 `json:"threshold_percentile"`
}

// Anomaly is one flagged transaction.
type Anomaly struct {
	TxnID    string  `json:"txn_id"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Reason   string  `json:"reason"`
}

// AnomalyReport is the result of detect_anomalies.
type AnomalyReport struct {
	AnomalyCount    int       `json:"anomaly_count"`
	ThresholdAmount float64   `json:"threshold_amount"`
	Anomalies       []Anomaly `json:"anomalies"`
	Patterns        []string  `json:"patterns"`
}

func (f *FinanceTools) DetectAnomalies(ctx context.Context, args anomaliesArgs) (any, error) {
	p := 95.0
	if args.ThresholdPercentile != nil {
		p = math.Max(0, math.Min(100, *args.ThresholdPercentile))
	}

	txns, err := f.Store.Transactions(ctx, ledger.Query{})
	if err != nil {
		return nil, fmt.Errorf("detect anomalies: %w", err)
	}
	if len(txns) == 0 {
		return AnomalyReport{
			Anomalies: []Anomaly{},
			Patterns:  []string{"No transactions to analyze"},
		}, nil
	}

	threshold := percentile(txns, p)

	var anomalies []Anomaly
	flagged := make(map[string]bool)
	for _, t := range txns {
		if t.Amount > threshold {
			anomalies = append(anomalies, toAnomaly(t,
				fmt.Sprintf("High-value transaction (above %dth percentile)", int(p))))
			flagged[t.ID] = t.ID != ""
		}
	}

	patterns := []string{}

	var suspicious, recurring int
	for _, t := range txns {
		if t.Recurring {
			recurring++
		}
		if !t.Suspicious {
			continue
		}
		suspicious++
		if t.Amount > threshold || flagged[t.ID] {
			continue
		}
		anomalies = append(anomalies, toAnomaly(t, "Flagged as suspicious by system"))
		flagged[t.ID] = t.ID != ""
	}
	if suspicious > 0 {
		patterns = append(patterns, fmt.Sprintf("%d transaction(s) flagged as suspicious by system", suspicious))
	}
	if recurring > 0 {
		patterns = append(patterns, fmt.Sprintf("%d recurring transaction(s) detected", recurring))
	}
	if name, n := mostFrequentMerchant(txns); n > 0 {
		patterns = append(patterns, fmt.Sprintf("Most frequent: %s (%d transactions)", name, n))
	}

	slices.SortStableFunc(anomalies, func(a, b Anomaly) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})
	if len(anomalies) > maxAnomalies {
		anomalies = anomalies[:maxAnomalies]
	}
	if anomalies == nil {
		anomalies = []Anomaly{}
	}

	return AnomalyReport{
		AnomalyCount:    len(anomalies),
		ThresholdAmount: round2(threshold),
		Anomalies:       anomalies,
		Patterns:        patterns,
	}, nil
}

// percentile picks the amount at index floor(n*p/100) of the sorted amounts,
// clamped to the last element.
func percentile(txns []ledger.Transaction, p float64) float64 {
	amounts := make([]float64, len(txns))
	for i, t := range txns {
		amounts[i] = t.Amount
	}
	slices.Sort(amounts)

	idx := int(float64(len(amounts)) * p / 100)
	idx = min(idx, len(amounts)-1)
	return amounts[idx]
}

func mostFrequentMerchant(txns []ledger.Transaction) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, t := range txns {
		m := t.MerchantOrUnknown()
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	var best string
	var n int
	for _, m := range order {
		if counts[m] > n {
			best, n = m, counts[m]
		}
	}
	return best, n
}

func toAnomaly(t ledger.Transaction, reason string) Anomaly {
	return Anomaly{
		TxnID:    t.ID,
		Merchant: t.MerchantOrUnknown(),
		Amount:   round2(t.Amount),
		Date:     t.Date,
		Category: t.CategoryOrOther(),
		Reason:   reason,
	}
}

// --- recent_transactions ---

type recentArgs struct {
	Limit    *int   `json:"limit"`
	Category string `json:"category"`
}

// TransactionView is the subset of a transaction the model may see.
type TransactionView struct {
	TxnID    string  `json:"txn_id"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Date     string  `json:"date"`
	Category string  `json:"category"`
}

// RecentTransactions is the result of recent_transactions.
type RecentTransactions struct {
	Count        int               `json:"count"`
	Filter       string            `json:"filter"`
	Transactions []TransactionView `json:"transactions"`
}

func (f *FinanceTools) RecentTransactions(ctx context.Context, args recentArgs) (any, error) {
	limit := intOr(args.Limit, 10)
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, maxRecentTransactions)

	category := strings.TrimSpace(args.Category)
	filter := "All categories"
	if category != "" {
		filter = "Category: " + category
	}

	txns, err := f.Store.Transactions(ctx, ledger.Query{
		CategoryContains: category,
		NewestFirst:      true,
		Limit:            limit,
	})
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	views := make([]TransactionView, 0, len(txns))
	for _, t := range txns {
		views = append(views, TransactionView{
			TxnID:    t.ID,
			Merchant: t.MerchantOrUnknown(),
			Amount:   round2(t.Amount),
			Type:     t.Type,
			Date:     t.Date,
			Category: t.CategoryOrOther(),
		})
	}

	return RecentTransactions{
		Count:        len(views),
		Filter:       filter,
		Transactions: views,
	}, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
