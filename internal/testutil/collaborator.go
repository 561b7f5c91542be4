package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// FakeTextGenerator scripts summarization outcomes. When Respond is set it
// decides each call; otherwise Err (if set) fails the call, else a canned
// draft derived from the period is returned. All requests are recorded.
type FakeTextGenerator struct {
	mu       sync.Mutex
	Respond  func(req *types.SummarizeRequest) (*types.SummaryDraft, error)
	Err      error
	Delay    time.Duration
	Requests []*types.SummarizeRequest
}

func (g *FakeTextGenerator) Summarize(ctx context.Context, req *types.SummarizeRequest) (*types.SummaryDraft, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	respond, err, delay := g.Respond, g.Err, g.Delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if respond != nil {
		return respond(req)
	}
	if err != nil {
		return nil, err
	}
	return &types.SummaryDraft{
		Content:   fmt.Sprintf("summary of %s %s", req.Tier, req.PeriodKey),
		KeyTopics: []string{string(req.Tier)},
	}, nil
}

// CallCount returns how many summarization calls were made.
func (g *FakeTextGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}

// FakeEmbedder produces deterministic vectors of a fixed dimension. Vectors
// are derived from text length so different texts get different directions.
type FakeEmbedder struct {
	mu    sync.Mutex
	Dim   int
	Err   error
	Calls int
}

func (e *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.Calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	vec := make([]float32, e.Dimensions())
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) + 1
	}
	return vec, nil
}

func (e *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *FakeEmbedder) Dimensions() int {
	if e.Dim <= 0 {
		return 4
	}
	return e.Dim
}

// FakeLocker is an in-memory period locker. Preload Held to simulate another
// process holding a lock.
type FakeLocker struct {
	mu       sync.Mutex
	Held     map[string]bool
	Acquires []string
	Releases []string
}

// NewFakeLocker creates an uncontended locker.
func NewFakeLocker() *FakeLocker {
	return &FakeLocker{Held: make(map[string]bool)}
}

func (l *FakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Held[key] {
		return false, nil
	}
	l.Held[key] = true
	l.Acquires = append(l.Acquires, key)
	return true, nil
}

func (l *FakeLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.Held, key)
	l.Releases = append(l.Releases, key)
	return nil
}
