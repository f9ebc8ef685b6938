package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      ProviderName
	available bool
	resp      Response
	calls     int
}

func (p *fakeProvider) Name() ProviderName { return p.name }

func (p *fakeProvider) Model() string { return string(p.name) + "-model" }

func (p *fakeProvider) Available(context.Context) bool { return p.available }

func (p *fakeProvider) Generate(context.Context, []Message, []ToolDefinition) Response {
	p.calls++
	return p.resp
}

func okProvider(name ProviderName, content string) *fakeProvider {
	return &fakeProvider{name: name, available: true, resp: Response{Success: true, Content: content}}
}

func failingProvider(name ProviderName, available bool) *fakeProvider {
	return &fakeProvider{name: name, available: available, resp: Response{Error: string(name) + " request timed out"}}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
	}{
		{"", PolicyAuto},
		{"auto", PolicyAuto},
		{"LOCAL", PolicyLocal},
		{"fixed-local", PolicyLocal},
		{"cloud", PolicyCloud},
		{"groq", PolicyCloud},
		{"fixed-cloud", PolicyCloud},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePolicy("round-robin")
	assert.Error(t, err)
}

func TestRouter_Auto(t *testing.T) {
	ctx := context.Background()

	t.Run("local answers", func(t *testing.T) {
		local, cloud := okProvider(ProviderLocal, "from local"), okProvider(ProviderCloud, "from cloud")
		r := NewRouter(RouterConfig{Policy: PolicyAuto, Local: local, Cloud: cloud})

		resp := r.Generate(ctx, nil, nil)
		assert.True(t, resp.Success)
		assert.Equal(t, "from local", resp.Content)
		assert.Equal(t, ProviderLocal, resp.ProviderUsed)
		assert.Zero(t, cloud.calls)
	})

	t.Run("local unavailable", func(t *testing.T) {
		local := okProvider(ProviderLocal, "from local")
		local.available = false
		cloud := okProvider(ProviderCloud, "from cloud")
		r := NewRouter(RouterConfig{Local: local, Cloud: cloud})

		resp := r.Generate(ctx, nil, nil)
		assert.True(t, resp.Success)
		assert.Equal(t, ProviderCloud, resp.ProviderUsed)
		assert.Zero(t, local.calls)
	})

	t.Run("local fails once then cloud", func(t *testing.T) {
		local, cloud := failingProvider(ProviderLocal, true), okProvider(ProviderCloud, "from cloud")
		r := NewRouter(RouterConfig{Local: local, Cloud: cloud})

		resp := r.Generate(ctx, nil, nil)
		assert.True(t, resp.Success)
		assert.Equal(t, ProviderCloud, resp.ProviderUsed)
		assert.Equal(t, 1, local.calls)
		assert.Equal(t, 1, cloud.calls)
	})

	t.Run("both unavailable", func(t *testing.T) {
		local, cloud := failingProvider(ProviderLocal, false), failingProvider(ProviderCloud, false)
		r := NewRouter(RouterConfig{Local: local, Cloud: cloud})

		resp := r.Generate(ctx, nil, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "no provider available", resp.Error)
		assert.Equal(t, ProviderName(""), resp.ProviderUsed)
		assert.Zero(t, local.calls+cloud.calls)
	})

	t.Run("both fail", func(t *testing.T) {
		local, cloud := failingProvider(ProviderLocal, true), failingProvider(ProviderCloud, true)
		r := NewRouter(RouterConfig{Local: local, Cloud: cloud})

		resp := r.Generate(ctx, nil, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, ErrNoProvider, resp.Error)
		assert.Empty(t, resp.ProviderUsed)
		assert.Equal(t, 1, local.calls)
		assert.Equal(t, 1, cloud.calls)
	})

	t.Run("no cloud configured", func(t *testing.T) {
		r := NewRouter(RouterConfig{Local: failingProvider(ProviderLocal, true)})
		resp := r.Generate(ctx, nil, nil)
		assert.Equal(t, ErrNoProvider, resp.Error)
	})
}

func TestRouter_Fixed(t *testing.T) {
	ctx := context.Background()

	local, cloud := failingProvider(ProviderLocal, true), okProvider(ProviderCloud, "from cloud")
	r := NewRouter(RouterConfig{Policy: PolicyLocal, Local: local, Cloud: cloud})

	resp := r.Generate(ctx, nil, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "local request timed out", resp.Error)
	assert.Equal(t, ProviderLocal, resp.ProviderUsed)
	assert.Zero(t, cloud.calls, "fixed policy never falls back")

	r = NewRouter(RouterConfig{Policy: PolicyCloud, Local: local, Cloud: cloud})
	resp = r.Generate(ctx, nil, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, ProviderCloud, resp.ProviderUsed)

	r = NewRouter(RouterConfig{Policy: PolicyCloud, Local: local})
	resp = r.Generate(ctx, nil, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "cloud provider not configured", resp.Error)
}

func TestRouter_GenerateSimple(t *testing.T) {
	var got []Message
	local := &recordingProvider{fakeProvider: okProvider(ProviderLocal, "hi"), messages: &got}
	r := NewRouter(RouterConfig{Policy: PolicyLocal, Local: local})

	resp := r.GenerateSimple(context.Background(), "hello", "be brief")
	require.True(t, resp.Success)
	require.Len(t, got, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, got[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hello"}, got[1])
}

func TestRouter_Status(t *testing.T) {
	local := NewAdapter(AdapterConfig{
		Name:     ProviderLocal,
		Model:    "qwen",
		Endpoint: "http://localhost:1234/v1",
		Backend:  backendFunc(nil),
		Probe:    func(context.Context) bool { return false },
	})
	cloud := okProvider(ProviderCloud, "")

	st := NewRouter(RouterConfig{Local: local, Cloud: cloud}).Status(context.Background())
	assert.Equal(t, Status{
		Policy: PolicyAuto,
		Local:  ProviderStatus{Available: false, Model: "qwen", URL: "http://localhost:1234/v1"},
		Cloud:  ProviderStatus{Available: true, Model: "cloud-model"},
	}, st)
}

type recordingProvider struct {
	*fakeProvider
	messages *[]Message
}

func (p *recordingProvider) Generate(ctx context.Context, msgs []Message, tools []ToolDefinition) Response {
	*p.messages = append([]Message(nil), msgs...)
	return p.fakeProvider.Generate(ctx, msgs, tools)
}
