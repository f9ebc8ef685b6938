package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/reinhart/lumen/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s failingStore) Transactions(context.Context, ledger.Query) ([]ledger.Transaction, error) {
	return nil, s.err
}

func TestRegistry_DefinitionsInOrder(t *testing.T) {
	r := financeRegistry(nil)

	assert.Equal(t, []string{ToolMonthlySummary, ToolTopCategories, ToolAnomalies, ToolRecent}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 4)
	for _, d := range defs {
		assert.NotEmpty(t, d.Description)
		assert.True(t, json.Valid(d.Parameters), d.Name)
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := financeRegistry(nil)
	err := r.Register(NewTool(ToolRecent, "again", json.RawMessage(`{}`),
		func(context.Context, struct{}) (any, error) { return nil, nil }))
	assert.Error(t, err)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := financeRegistry(nil)

	res := r.Invoke(context.Background(), "delete_everything", `{}`)
	assert.False(t, res.Success)
	assert.Equal(t,
		"unknown tool: delete_everything (available: monthly_spending_summary, top_spending_categories, detect_anomalies, recent_transactions)",
		res.Error)
	assert.JSONEq(t, fmt.Sprintf(`{"error": %q}`, res.Error), res.ModelPayload())
}

func TestRegistry_ArgumentValidation(t *testing.T) {
	r := financeRegistry(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args string
		want string
	}{
		{"unknown parameter", `{"foo": 1}`, `invalid arguments for recent_transactions: unknown parameter "foo"`},
		{"wrong type", `{"limit": "ten"}`, `invalid arguments for recent_transactions: parameter "limit" has the wrong type (got string)`},
		{"not an object", `[1, 2]`, `invalid arguments for recent_transactions: arguments must be a JSON object`},
		{"malformed json", `{"limit": `, `invalid arguments for recent_transactions: arguments must be a JSON object`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Invoke(ctx, ToolRecent, tt.args)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestRegistry_RequiredParameter(t *testing.T) {
	type args struct {
		Query string `json:"query"`
	}
	r := NewToolRegistry(nil)
	r.MustRegister(NewTool("search", "search",
		json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`),
		func(_ context.Context, a args) (any, error) { return a.Query, nil }))

	res := r.Invoke(context.Background(), "search", `{}`)
	assert.False(t, res.Success)
	assert.Equal(t, `invalid arguments for search: missing required parameter "query"`, res.Error)

	res = r.Invoke(context.Background(), "search", `{"query":"rent"}`)
	require.True(t, res.Success)
	assert.Equal(t, "rent", res.Result)
}

func TestRegistry_FailuresAreGeneric(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"store down", fmt.Errorf("dial 10.0.0.3:5432: %w", ledger.ErrUnavailable), "tool execution failed: data unavailable"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "tool execution failed: timeout"},
		{"anything else", errors.New("pq: relation raw_email_snippet does not exist"), "tool execution failed: internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewToolRegistry(nil)
			(&FinanceTools{Store: failingStore{err: tt.err}}).Register(r)

			for _, name := range r.Names() {
				res := r.Invoke(ctx, name, `{}`)
				assert.False(t, res.Success, name)
				assert.Equal(t, tt.want, res.Error, name)
				assert.NotContains(t, res.ModelPayload(), "10.0.0.3")
				assert.NotContains(t, res.ModelPayload(), "raw_email_snippet")
			}
		})
	}
}

func TestRegistry_RecoversPanics(t *testing.T) {
	r := NewToolRegistry(nil)
	r.MustRegister(NewTool("boom", "panics", json.RawMessage(`{"type":"object"}`),
		func(context.Context, struct{}) (any, error) { panic("secret stack detail") }))

	res := r.Invoke(context.Background(), "boom", `{}`)
	assert.False(t, res.Success)
	assert.Equal(t, "tool execution failed: internal error", res.Error)
}

func TestArgumentError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("bind: %w", invalidArgs("bad %s", "month"))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.EqualError(t, err, "bind: invalid arguments: bad month")
}
