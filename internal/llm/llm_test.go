package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/mergeq/internal/shell"
)

type fakeProvider struct {
	name  string
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestFanOut_SettlesAll(t *testing.T) {
	a := &fakeProvider{name: "a", reply: "APPROVE"}
	b := &fakeProvider{name: "b", err: errors.New("rate limited")}
	c := &fakeProvider{name: "c", reply: "COMMENT", delay: 20 * time.Millisecond}

	results := FanOut(context.Background(), []Provider{a, b, c}, "review this", time.Second)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Provider)
	assert.Equal(t, "APPROVE", results[0].Text)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, "b", results[1].Provider)
	assert.Error(t, results[1].Err)
	assert.False(t, results[1].Canceled)

	assert.Equal(t, "COMMENT", results[2].Text)
	assert.EqualValues(t, 1, c.calls.Load())
}

func TestFanOut_PerCallTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", reply: "late", delay: 2 * time.Second}
	fast := &fakeProvider{name: "fast", reply: "APPROVE"}

	start := time.Now()
	results := FanOut(context.Background(), []Provider{slow, fast}, "p", 50*time.Millisecond)

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.False(t, results[0].Canceled)
	assert.Equal(t, "APPROVE", results[1].Text)
}

func TestFanOut_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &fakeProvider{name: "slow", reply: "late", delay: 2 * time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	results := FanOut(ctx, []Provider{slow}, "p", time.Minute)

	require.Len(t, results, 1)
	assert.True(t, results[0].Canceled)
}

func TestFanOut_NoProviders(t *testing.T) {
	assert.Empty(t, FanOut(context.Background(), nil, "p", time.Second))
}

type stubRunner struct {
	got shell.Command
	out string
	err error
}

func (s *stubRunner) Run(_ context.Context, c shell.Command) (shell.Result, error) {
	s.got = c
	return shell.Result{Stdout: s.out}, s.err
}

func TestCommandProvider(t *testing.T) {
	r := &stubRunner{out: "DECISION: APPROVE\n"}
	p := NewCommand("local", "claude -p", "/repo", r)

	text, err := p.Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "DECISION: APPROVE\n", text)
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, "the prompt", r.got.Stdin)
	assert.Equal(t, []string{"-c", "claude -p"}, r.got.Args)
	assert.Equal(t, "/repo", r.got.Dir)
}

func TestCommandProvider_EmptyOutput(t *testing.T) {
	p := NewCommand("local", "true", "", &stubRunner{out: "  \n"})
	_, err := p.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBuild(t *testing.T) {
	s := Settings{
		AnthropicKey: "sk-ant",
		OpenAIKey:    "sk-oai",
		GeminiKey:    "g-key",
		Commands:     map[string]string{"qwen": "qwen -p"},
		Runner:       &stubRunner{},
	}

	providers, err := Build([]string{"claude", "GPT", "gemini", "qwen", "claude"}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "openai", "gemini", "qwen"}, Names(providers))
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, Settings{})
	assert.Error(t, err)

	_, err = Build([]string{"claude"}, Settings{})
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = Build([]string{"mystery"}, Settings{})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = Build([]string{"local"}, Settings{Commands: map[string]string{"local": "x"}})
	assert.ErrorContains(t, err, "no command runner")
}

func TestBuild_CommandOverridesBuiltin(t *testing.T) {
	providers, err := Build([]string{"claude"}, Settings{
		Commands: map[string]string{"claude": "claude -p"},
		Runner:   &stubRunner{},
	})
	require.NoError(t, err)
	require.Len(t, providers, 1)
	_, isCommand := providers[0].(*Command)
	assert.True(t, isCommand)
}

func TestKnown(t *testing.T) {
	names := Known(Settings{Commands: map[string]string{"zeta": "z", "alpha": "a"}})
	assert.Equal(t, []string{"claude", "openai", "gemini", "alpha", "zeta"}, names)
}
