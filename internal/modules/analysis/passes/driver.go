package passes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
)

const (
	analysisMaxOutputTokens = 1024

	// ReportMaxOutputTokens caps narrative report generation.
	ReportMaxOutputTokens = 2048
)

// Caller performs one model call. Injected so the driver is testable without
// a network.
type Caller func(ctx context.Context, systemPrompt, prompt string) (string, error)

// Request describes one multi-pass analysis run.
type Request struct {
	Provider *appcfg.AIProvider
	Passes   int
	Timeout  time.Duration // per call; zero means no per-call deadline
	Kind     string
	Title    string
	Text     string
	Context  *PassContext

	// Call overrides the provider-backed caller when set.
	Call Caller

	// OnPass is invoked after each settled pass with the number done so
	// far and the total requested. May be nil.
	OnPass func(done, total int)
}

// ErrAllPassesFailed is wrapped by Run when not a single pass settled.
var ErrAllPassesFailed = errors.New("all analysis passes failed")

// Run issues the requested number of independent passes in parallel and
// returns the ones that settled. Passes fail independently; the run errors
// only when every pass failed.
func Run(ctx context.Context, req Request) ([]aggregate.Pass, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("document text is empty")
	}
	total := req.Passes
	if total < 1 {
		total = 1
	}

	call := req.Call
	if call == nil {
		if req.Provider == nil {
			return nil, errors.New("no enabled AI provider")
		}
		call = ProviderCaller(req.Provider, analysisMaxOutputTokens)
	}

	providerName, modelName := providerLabels(req.Provider)
	systemPrompt, prompt := BuildAnalysisPrompt(req.Kind, req.Text, req.Context)

	type outcome struct {
		pass aggregate.Pass
		err  error
	}
	results := make(chan outcome, total)

	for i := 0; i < total; i++ {
		go func() {
			callCtx := ctx
			var cancel context.CancelFunc = func() {}
			if req.Timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
			}
			defer cancel()

			raw, err := call(callCtx, systemPrompt, prompt)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			pass, err := ParsePass(raw, providerName, modelName)
			results <- outcome{pass: pass, err: err}
		}()
	}

	passes := make([]aggregate.Pass, 0, total)
	var lastErr error
	for i := 0; i < total; i++ {
		settled := <-results
		if settled.err != nil {
			lastErr = settled.err
			continue
		}
		passes = append(passes, settled.pass)
		if req.OnPass != nil {
			req.OnPass(len(passes), total)
		}
	}

	if len(passes) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAllPassesFailed, lastErr)
		}
		return nil, ErrAllPassesFailed
	}
	return passes, nil
}

func providerLabels(provider *appcfg.AIProvider) (name, model string) {
	if provider == nil {
		return "", ""
	}
	name = strings.TrimSpace(provider.Name)
	if name == "" {
		name = strings.TrimSpace(provider.Type)
	}
	return name, strings.TrimSpace(provider.DefaultModel)
}
