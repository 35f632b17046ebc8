package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/cache/memory"
	"github.com/kitbuilder587/textgen/internal/domain"
	"github.com/kitbuilder587/textgen/internal/llm"
	llmMock "github.com/kitbuilder587/textgen/internal/llm/mock"
	"github.com/kitbuilder587/textgen/internal/metrics"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, client llm.Client, cfg GeneratorConfig) (TextGenerator, *metrics.Metrics) {
	t.Helper()

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	cache := memory.New()
	t.Cleanup(cache.Stop)
	return NewGenerator(GeneratorDeps{
		LLM:     client,
		Cache:   cache,
		Logger:  zap.NewNop(),
		Metrics: m,
		Config:  cfg,
		Now:     func() time.Time { return fixedNow },
	}), m
}

func TestGenerator_Generate(t *testing.T) {
	tests := []struct {
		name         string
		prompt       string
		llmResponse  string
		llmError     error
		wantText     string
		wantCategory domain.ErrorCategory
		wantCalls    int
	}{
		{
			name:        "success",
			prompt:      "Tell me a joke",
			llmResponse: "Why did...",
			wantText:    "Why did...",
			wantCalls:   1,
		},
		{
			name:        "response returned verbatim",
			prompt:      "format",
			llmResponse: "  line one\n\n<b>line two</b>  ",
			wantText:    "  line one\n\n<b>line two</b>  ",
			wantCalls:   1,
		},
		{
			name:         "empty prompt",
			prompt:       "",
			wantCategory: domain.CategoryValidation,
			wantCalls:    0,
		},
		{
			name:         "whitespace prompt",
			prompt:       " \n\t ",
			wantCategory: domain.CategoryValidation,
			wantCalls:    0,
		},
		{
			name:         "too long prompt",
			prompt:       strings.Repeat("a", 2001),
			wantCategory: domain.CategoryValidation,
			wantCalls:    0,
		},
		{
			name:         "auth error",
			prompt:       "Tell me a joke",
			llmError:     llm.ErrAuthFailed,
			wantCategory: domain.CategoryAPIError,
			wantCalls:    1,
		},
		{
			name:         "rate limit",
			prompt:       "Tell me a joke",
			llmError:     llm.ErrRateLimit,
			wantCategory: domain.CategoryAPIError,
			wantCalls:    1,
		},
		{
			name:         "empty completion",
			prompt:       "Tell me a joke",
			llmResponse:  "",
			wantCategory: domain.CategoryAPIError,
			wantCalls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llmMock.New().WithResponse(tt.llmResponse).WithUsage("mock-model", 7)
			if tt.llmError != nil {
				client.WithError(tt.llmError)
			}
			gen, _ := newTestGenerator(t, client, GeneratorConfig{})

			resp, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: tt.prompt})

			if client.CallCount() != tt.wantCalls {
				t.Errorf("llm calls = %d, want %d", client.CallCount(), tt.wantCalls)
			}

			switch tt.wantCategory {
			case domain.CategoryValidation:
				var verr *domain.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Generate() error = %v, want ValidationError", err)
				}
				if resp != nil {
					t.Error("response must be nil on error")
				}
				return
			case domain.CategoryAPIError:
				var gwErr *domain.GatewayError
				if !errors.As(err, &gwErr) {
					t.Fatalf("Generate() error = %v, want GatewayError", err)
				}
				if gwErr.Provider != "mock" {
					t.Errorf("Provider = %q, want mock", gwErr.Provider)
				}
				if resp != nil {
					t.Error("response must be nil on error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Generate() unexpected error = %v", err)
			}
			if resp.Response != tt.wantText {
				t.Errorf("Response = %q, want %q", resp.Response, tt.wantText)
			}
			if resp.Model != "mock-model" || resp.TokensUsed != 7 {
				t.Errorf("metadata = (%q, %d), want (mock-model, 7)", resp.Model, resp.TokensUsed)
			}
			if !resp.Timestamp.Equal(fixedNow) {
				t.Errorf("Timestamp = %v, want %v", resp.Timestamp, fixedNow)
			}
		})
	}
}

func TestGenerator_TrimsPromptBeforeGateway(t *testing.T) {
	client := llmMock.New()
	gen, _ := newTestGenerator(t, client, GeneratorConfig{})

	req := &domain.GenerateRequest{Prompt: "  Tell me a joke \n"}
	if _, err := gen.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if client.LastPrompt() != "Tell me a joke" {
		t.Errorf("LastPrompt = %q, want trimmed", client.LastPrompt())
	}
	if req.Prompt != "  Tell me a joke \n" {
		t.Error("caller's request must not be modified")
	}
}

func TestGenerator_NilRequest(t *testing.T) {
	client := llmMock.New()
	gen, _ := newTestGenerator(t, client, GeneratorConfig{})

	_, err := gen.Generate(context.Background(), nil)
	if !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Errorf("Generate(nil) error = %v, want ErrEmptyPrompt", err)
	}
	if client.CallCount() != 0 {
		t.Error("gateway must not be called for nil request")
	}
}

func TestGenerator_Timeout(t *testing.T) {
	client := llmMock.New().WithDelay(time.Second)
	gen, m := newTestGenerator(t, client, GeneratorConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "slow"})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Generate() took %v, timeout not applied", elapsed)
	}

	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("Generate() error = %v, want GatewayError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause should be DeadlineExceeded, got %v", gwErr.Cause)
	}
	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("mock", "timeout")); got != 1 {
		t.Errorf("timeout counter = %v, want 1", got)
	}
}

func TestGenerator_CallerCancellation(t *testing.T) {
	client := llmMock.New().WithDelay(time.Second)
	gen, _ := newTestGenerator(t, client, GeneratorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, &domain.GenerateRequest{Prompt: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestGenerator_Cache(t *testing.T) {
	client := llmMock.New().WithResponse("cached answer")
	gen, m := newTestGenerator(t, client, GeneratorConfig{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		resp, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "same prompt"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if resp.Response != "cached answer" {
			t.Errorf("Response = %q", resp.Response)
		}
	}

	if client.CallCount() != 1 {
		t.Errorf("llm calls = %d, want 1", client.CallCount())
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}

	// пробелы по краям не должны давать новый ключ
	if _, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: " same prompt "}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if client.CallCount() != 1 {
		t.Errorf("llm calls = %d after trimmed duplicate, want 1", client.CallCount())
	}
}

func TestGenerator_CacheHitDoesNotCountTokens(t *testing.T) {
	client := llmMock.New().WithUsage("mock-model", 10)
	gen, m := newTestGenerator(t, client, GeneratorConfig{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		resp, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "same"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if resp.TokensUsed != 10 {
			t.Errorf("TokensUsed = %d, want 10 in every response", resp.TokensUsed)
		}
	}

	if got := testutil.ToFloat64(m.TokensUsedTotal.WithLabelValues("mock", "mock-model")); got != 10 {
		t.Errorf("tokens = %v, want 10 (one provider call)", got)
	}
}

func TestGenerator_CacheDisabledByDefault(t *testing.T) {
	client := llmMock.New()
	gen, _ := newTestGenerator(t, client, GeneratorConfig{})

	for i := 0; i < 2; i++ {
		if _, err := gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "p"}); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}

	if client.CallCount() != 2 {
		t.Errorf("llm calls = %d, want 2 with cache disabled", client.CallCount())
	}
}

func TestGenerator_FailuresAreNotCached(t *testing.T) {
	client := llmMock.New().WithError(llm.ErrRateLimit)
	gen, _ := newTestGenerator(t, client, GeneratorConfig{CacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "p"})
	}

	if client.CallCount() != 2 {
		t.Errorf("llm calls = %d, want 2", client.CallCount())
	}
}

func TestGenerator_Metrics(t *testing.T) {
	client := llmMock.New().WithUsage("mock-model", 11)
	gen, m := newTestGenerator(t, client, GeneratorConfig{})

	gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: "ok"})
	gen.Generate(context.Background(), &domain.GenerateRequest{Prompt: ""})

	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("validation")); got != 1 {
		t.Errorf("validation = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TokensUsedTotal.WithLabelValues("mock", "mock-model")); got != 11 {
		t.Errorf("tokens = %v, want 11", got)
	}
}

func TestLLMStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{llm.ErrAuthFailed, "auth_error"},
		{llm.ErrRateLimit, "rate_limited"},
		{llm.ErrEmptyResponse, "empty"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := llmStatus(tt.err); got != tt.want {
			t.Errorf("llmStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
