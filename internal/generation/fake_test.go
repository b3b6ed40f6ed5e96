package generation

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	"github.com/deckforge/deckforge-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeGateway struct {
	generateFn    func(ctx context.Context, params llm.GenerateParams) (*llm.GenerateResult, error)
	verifyFn      func(ctx context.Context, claim, supportingContext string) (*llm.ClaimVerification, error)
	generateCalls int32
	verifyCalls   int32
}

func (f *fakeGateway) Generate(ctx context.Context, params llm.GenerateParams) (*llm.GenerateResult, error) {
	atomic.AddInt32(&f.generateCalls, 1)
	if f.generateFn == nil {
		return &llm.GenerateResult{Content: "[]", Model: "fake"}, nil
	}
	return f.generateFn(ctx, params)
}

func (f *fakeGateway) VerifyClaim(ctx context.Context, claim, supportingContext string) (*llm.ClaimVerification, error) {
	atomic.AddInt32(&f.verifyCalls, 1)
	if f.verifyFn == nil {
		return &llm.ClaimVerification{Confidence: 0.9}, nil
	}
	return f.verifyFn(ctx, claim, supportingContext)
}

func generateResult(content string) *llm.GenerateResult {
	return &llm.GenerateResult{Content: content, Model: "fake", FinishReason: "stop"}
}
