package assistant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/reinhart/lumen/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.February, 15, 10, 0, 0, 0, time.UTC)

func fixture() []ledger.Transaction {
	return []ledger.Transaction{
		{ID: "T1", Merchant: "Swiggy", Amount: 450, Type: ledger.TypeDebit, Date: "2025-01-20", Category: "Dining"},
		{ID: "T2", Merchant: "Employer", Amount: 50000, Type: ledger.TypeCredit, Date: "2025-02-01", Category: "Salary"},
		{ID: "T3", Merchant: "Amazon", Amount: 1200, Type: ledger.TypeDebit, Date: "2025-02-10", Category: "Shopping"},
		{ID: "T4", Merchant: "Zomato", Amount: 300, Type: ledger.TypeDebit, Date: "2025-02-12", Category: "Dining"},
		{ID: "T5", Merchant: "Netflix", Amount: 649, Type: ledger.TypeDebit, Date: "2025-02-05", Category: "Entertainment", Recurring: true},
		{ID: "T6", Amount: 9999, Type: ledger.TypeDebit, Date: "2025-02-11", Suspicious: true},
		{ID: "T7", Merchant: "Zomato", Amount: 250.5, Type: ledger.TypeDebit, Date: "2025-02-14", Category: "Dining"},
	}
}

func financeTools(txns []ledger.Transaction) *FinanceTools {
	return &FinanceTools{
		Store: ledger.NewMemoryStore(txns),
		Now:   func() time.Time { return fixedNow },
	}
}

func financeRegistry(txns []ledger.Transaction) *ToolRegistry {
	r := NewToolRegistry(nil)
	financeTools(txns).Register(r)
	return r
}

func TestMonthlySummary(t *testing.T) {
	r := financeRegistry(fixture())

	res := r.Invoke(context.Background(), ToolMonthlySummary, `{"month": "february", "year": 2025}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(MonthlySummary)
	assert.Equal(t, "February 2025", got.Month)
	assert.Equal(t, 12398.5, got.TotalSpent)
	assert.Equal(t, 50000.0, got.TotalIncome)
	assert.Equal(t, 37601.5, got.NetFlow)
	assert.Equal(t, 6, got.TransactionCount)
	assert.Equal(t, 2066.42, got.AvgTransaction)
}

func TestMonthlySummary_MonthForms(t *testing.T) {
	r := financeRegistry(fixture())
	ctx := context.Background()

	tests := []struct {
		name  string
		args  string
		month string
	}{
		{"number", `{"month": 1, "year": 2025}`, "January 2025"},
		{"numeric string", `{"month": "1", "year": 2025}`, "January 2025"},
		{"upper case name", `{"month": "JANUARY", "year": 2025}`, "January 2025"},
		{"unknown name falls back to current month", `{"month": "Smarch"}`, "February 2025"},
		{"no arguments", `{}`, "February 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Invoke(ctx, ToolMonthlySummary, tt.args)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tt.month, res.Result.(MonthlySummary).Month)
		})
	}

	res := r.Invoke(ctx, ToolMonthlySummary, `{"month": 13}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments for monthly_spending_summary")
}

func TestMonthlySummary_EmptyStore(t *testing.T) {
	r := financeRegistry(nil)

	res := r.Invoke(context.Background(), ToolMonthlySummary, "")
	require.True(t, res.Success, res.Error)

	got := res.Result.(MonthlySummary)
	assert.Equal(t, MonthlySummary{Month: "February 2025"}, got)
	assert.JSONEq(t,
		`{"month":"February 2025","total_spent":0,"total_income":0,"net_flow":0,"transaction_count":0,"avg_transaction":0}`,
		res.ModelPayload())
}

func TestTopCategories(t *testing.T) {
	r := financeRegistry(fixture())

	res := r.Invoke(context.Background(), ToolTopCategories, `{"days": 30}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(TopCategories)
	assert.Equal(t, "Last 30 days", got.Period)
	assert.Equal(t, 12848.5, got.TotalAnalyzed)
	require.Len(t, got.Categories, 4)

	names := make([]string, len(got.Categories))
	for i, c := range got.Categories {
		names[i] = c.Category
	}
	assert.Equal(t, []string{"Other", "Shopping", "Dining", "Entertainment"}, names)
	assert.Equal(t, CategorySpend{Category: "Dining", Amount: 1000.5, Percentage: 7.8, Count: 3}, got.Categories[2])
}

func TestTopCategories_WindowAndLimit(t *testing.T) {
	r := financeRegistry(fixture())
	ctx := context.Background()

	res := r.Invoke(ctx, ToolTopCategories, `{"days": 7, "limit": 2}`)
	require.True(t, res.Success, res.Error)
	got := res.Result.(TopCategories)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "Other", got.Categories[0].Category)
	assert.Equal(t, "Shopping", got.Categories[1].Category)

	res = r.Invoke(ctx, ToolTopCategories, `{"limit": -1}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")

	empty := financeRegistry(nil).Invoke(ctx, ToolTopCategories, `{}`)
	require.True(t, empty.Success)
	assert.JSONEq(t, `{"period":"Last 30 days","total_analyzed":0,"categories":[]}`, empty.ModelPayload())
}

func TestDetectAnomalies(t *testing.T) {
	r := financeRegistry(fixture())

	res := r.Invoke(context.Background(), ToolAnomalies, `{"threshold_percentile": 50}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(AnomalyReport)
	assert.Equal(t, 649.0, got.ThresholdAmount)
	require.Len(t, got.Anomalies, 3)
	assert.Equal(t, got.AnomalyCount, len(got.Anomalies))
	assert.Equal(t, "T2", got.Anomalies[0].TxnID)
	assert.Equal(t, "T6", got.Anomalies[1].TxnID)
	assert.Equal(t, "T3", got.Anomalies[2].TxnID)
	assert.Equal(t, "High-value transaction (above 50th percentile)", got.Anomalies[1].Reason)
	assert.Equal(t, []string{
		"1 transaction(s) flagged as suspicious by system",
		"1 recurring transaction(s) detected",
		"Most frequent: Zomato (2 transactions)",
	}, got.Patterns)
}

func TestDetectAnomalies_SuspiciousBelowThreshold(t *testing.T) {
	r := financeRegistry(fixture())

	res := r.Invoke(context.Background(), ToolAnomalies, `{}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(AnomalyReport)
	assert.Equal(t, 50000.0, got.ThresholdAmount)
	require.Len(t, got.Anomalies, 1)
	assert.Equal(t, Anomaly{
		TxnID:    "T6",
		Merchant: "Unknown",
		Amount:   9999,
		Date:     "2025-02-11",
		Category: "Other",
		Reason:   "Flagged as suspicious by system",
	}, got.Anomalies[0])
}

func TestDetectAnomalies_CappedAndSorted(t *testing.T) {
	var txns []ledger.Transaction
	for i := 1; i <= 30; i++ {
		txns = append(txns, ledger.Transaction{
			ID:     fmt.Sprintf("T%02d", i),
			Amount: float64(i * 10),
			Type:   ledger.TypeDebit,
			Date:   "2025-02-01",
		})
	}
	r := financeRegistry(txns)

	res := r.Invoke(context.Background(), ToolAnomalies, `{"threshold_percentile": 0}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(AnomalyReport)
	require.Len(t, got.Anomalies, 10)
	assert.Equal(t, 10, got.AnomalyCount)
	for i := 1; i < len(got.Anomalies); i++ {
		assert.GreaterOrEqual(t, got.Anomalies[i-1].Amount, got.Anomalies[i].Amount)
	}
	assert.Equal(t, 300.0, got.Anomalies[0].Amount)
}

func TestDetectAnomalies_EmptyStore(t *testing.T) {
	r := financeRegistry(nil)

	res := r.Invoke(context.Background(), ToolAnomalies, `{"threshold_percentile": 250}`)
	require.True(t, res.Success, res.Error)
	assert.JSONEq(t,
		`{"anomaly_count":0,"threshold_amount":0,"anomalies":[],"patterns":["No transactions to analyze"]}`,
		res.ModelPayload())
}

func TestRecentTransactions(t *testing.T) {
	r := financeRegistry(fixture())
	ctx := context.Background()

	res := r.Invoke(ctx, ToolRecent, `{"category": "dining"}`)
	require.True(t, res.Success, res.Error)

	got := res.Result.(RecentTransactions)
	assert.Equal(t, "Category: dining", got.Filter)
	require.Equal(t, 3, got.Count)
	assert.Equal(t, "T7", got.Transactions[0].TxnID)
	assert.Equal(t, "T4", got.Transactions[1].TxnID)
	assert.Equal(t, "T1", got.Transactions[2].TxnID)

	res = r.Invoke(ctx, ToolRecent, `{"limit": 0}`)
	require.True(t, res.Success, res.Error)
	all := res.Result.(RecentTransactions)
	assert.Equal(t, "All categories", all.Filter)
	assert.Equal(t, 7, all.Count)
	assert.Equal(t, "Other", all.Transactions[2].Category)
}

func TestRecentTransactions_LimitCap(t *testing.T) {
	var txns []ledger.Transaction
	for i := 0; i < 80; i++ {
		txns = append(txns, ledger.Transaction{
			ID:     fmt.Sprintf("T%03d", i),
			Amount: 10,
			Type:   ledger.TypeDebit,
			Date:   fixedNow.AddDate(0, 0, -i).Format(ledger.DateLayout),
		})
	}
	r := financeRegistry(txns)

	res := r.Invoke(context.Background(), ToolRecent, `{"limit": 1000}`)
	require.True(t, res.Success, res.Error)
	got := res.Result.(RecentTransactions)
	assert.Equal(t, 50, got.Count)
	assert.Len(t, got.Transactions, 50)
	assert.Equal(t, "T000", got.Transactions[0].TxnID)
}
