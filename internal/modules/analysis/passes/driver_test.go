package passes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const validPassJSON = `{"categories":{"privacy":{"score":7.5,"confidence":0.9},"payment":{"score":4,"confidence":0.6}},"summary":"Broad data sharing.","keyPoints":["may share data with partners"]}`

func stubCaller(raw string, err error) Caller {
	return func(ctx context.Context, systemPrompt, prompt string) (string, error) {
		return raw, err
	}
}

func TestRunCollectsAllPasses(t *testing.T) {
	var calls int32
	req := Request{
		Passes: 3,
		Kind:   "terms",
		Text:   "You grant us a license to everything.",
		Call: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			atomic.AddInt32(&calls, 1)
			return validPassJSON, nil
		},
	}

	passes, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(passes) != 3 {
		t.Fatalf("got %d passes, want 3", len(passes))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("caller invoked %d times, want 3", got)
	}
	for i, pass := range passes {
		if len(pass.Categories) != 2 {
			t.Errorf("pass %d has %d categories, want 2", i, len(pass.Categories))
		}
	}
}

func TestRunKeepsPartialResults(t *testing.T) {
	var calls int32
	req := Request{
		Passes: 4,
		Text:   "some agreement",
		Call: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			n := atomic.AddInt32(&calls, 1)
			if n%2 == 0 {
				return "", errors.New("provider hiccup")
			}
			return validPassJSON, nil
		},
	}

	passes, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2 survivors", len(passes))
	}
}

func TestRunAllFailed(t *testing.T) {
	req := Request{
		Passes: 3,
		Text:   "some agreement",
		Call:   stubCaller("", errors.New("rate limited")),
	}

	_, err := Run(context.Background(), req)
	if !errors.Is(err, ErrAllPassesFailed) {
		t.Fatalf("error = %v, want ErrAllPassesFailed", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error %q does not carry the cause", err)
	}
}

func TestRunUnparseableOutputIsAFailedPass(t *testing.T) {
	req := Request{
		Passes: 2,
		Text:   "some agreement",
		Call:   stubCaller("I cannot help with that.", nil),
	}

	_, err := Run(context.Background(), req)
	if !errors.Is(err, ErrAllPassesFailed) {
		t.Fatalf("error = %v, want ErrAllPassesFailed", err)
	}
}

func TestRunPerCallTimeout(t *testing.T) {
	var timedOut int32
	req := Request{
		Passes:  2,
		Timeout: 20 * time.Millisecond,
		Text:    "some agreement",
		Call: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			select {
			case <-ctx.Done():
				atomic.AddInt32(&timedOut, 1)
				return "", ctx.Err()
			case <-time.After(2 * time.Second):
				return validPassJSON, nil
			}
		},
	}

	start := time.Now()
	_, err := Run(context.Background(), req)
	if !errors.Is(err, ErrAllPassesFailed) {
		t.Fatalf("error = %v, want ErrAllPassesFailed", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("run took %v, timeout not applied per call", elapsed)
	}
	if got := atomic.LoadInt32(&timedOut); got != 2 {
		t.Errorf("%d calls saw the deadline, want 2", got)
	}
}

func TestRunEmptyText(t *testing.T) {
	_, err := Run(context.Background(), Request{Passes: 1, Text: "   ", Call: stubCaller(validPassJSON, nil)})
	if err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestRunDefaultsToOnePass(t *testing.T) {
	var calls int32
	req := Request{
		Text: "some agreement",
		Call: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			atomic.AddInt32(&calls, 1)
			return validPassJSON, nil
		},
	}
	passes, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(passes) != 1 || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("got %d passes / %d calls, want 1/1", len(passes), calls)
	}
}

func TestRunReportsProgress(t *testing.T) {
	// OnPass fires from the collector loop, so appends are sequential.
	var progress []string
	req := Request{
		Passes: 3,
		Text:   "some agreement",
		Call:   stubCaller(validPassJSON, nil),
		OnPass: func(done, total int) {
			progress = append(progress, fmt.Sprintf("%d/%d", done, total))
		},
	}

	if _, err := Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(progress) != 3 {
		t.Fatalf("progress callbacks = %v, want 3 entries", progress)
	}
	if progress[2] != "3/3" {
		t.Errorf("last progress = %s, want 3/3", progress[2])
	}
}
