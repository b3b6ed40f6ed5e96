package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	"github.com/deckforge/deckforge-backend/internal/pipeline"
	"github.com/deckforge/deckforge-backend/internal/types"
)

func claimsContent(claims ...string) string {
	out := `{"claims":[`
	for i, c := range claims {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"claim":%q,"type":"historical","importance":"medium"}`, c)
	}
	return out + `]}`
}

func newFactChecker(t *testing.T, gw *fakeGateway) *FactCheckPipeline {
	t.Helper()
	p, err := NewFactCheckPipeline(gw, testLogger(t))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return p
}

func TestVerdictMappingSingleClaim(t *testing.T) {
	cases := []struct {
		confidence float64
		verdict    string
	}{
		{0.85, VerdictVerified},
		{0.65, VerdictLikelyAccurate},
		{0.45, VerdictUncertain},
		{0.25, VerdictLikelyInaccurate},
		{0.1, VerdictFalse},
	}
	for _, tc := range cases {
		gw := &fakeGateway{
			generateFn: func(_ context.Context, _ llm.GenerateParams) (*llm.GenerateResult, error) {
				return generateResult(claimsContent("the moon orbits the earth")), nil
			},
			verifyFn: func(_ context.Context, _, _ string) (*llm.ClaimVerification, error) {
				return &llm.ClaimVerification{Confidence: tc.confidence}, nil
			},
		}
		report, err := newFactChecker(t, gw).Verify(context.Background(), "some content", "")
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if report.Verdict != tc.verdict {
			t.Fatalf("confidence %v: expected %s, got %s", tc.confidence, tc.verdict, report.Verdict)
		}
	}
}

func TestAggregateIsWeightedMeanWithinBounds(t *testing.T) {
	results := []types.VerificationResult{
		{Claim: types.Claim{Importance: "high"}, Confidence: 0.9},
		{Claim: types.Claim{Importance: "medium"}, Confidence: 0.6},
		{Claim: types.Claim{Importance: "low"}, Confidence: 0.3},
	}
	got := aggregateConfidence(results)
	want := (0.9*1.5 + 0.6*1.0 + 0.3*0.5) / (1.5 + 1.0 + 0.5)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got < 0.3 || got > 0.9 {
		t.Fatalf("aggregate %v escaped [min,max] bounds", got)
	}
}

func TestAggregateUnweightedFallback(t *testing.T) {
	results := []types.VerificationResult{
		{Claim: types.Claim{Importance: "bogus"}, Confidence: 0.2},
		{Claim: types.Claim{Importance: "bogus"}, Confidence: 0.8},
	}
	got := aggregateConfidence(results)
	if diff := got - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected unweighted mean 0.5, got %v", got)
	}
}

func TestEmptyContentIsUnverifiable(t *testing.T) {
	gw := &fakeGateway{}
	report, err := newFactChecker(t, gw).Verify(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if report.Verdict != VerdictUnverifiable {
		t.Fatalf("expected unverifiable, got %s", report.Verdict)
	}
	if report.OverallConfidence != 0.5 {
		t.Fatalf("expected pinned confidence 0.5, got %v", report.OverallConfidence)
	}
	if gw.generateCalls != 0 || gw.verifyCalls != 0 {
		t.Fatal("empty content must not reach the gateway")
	}
}

func TestClaimParseFailureFallsBackToWholeInput(t *testing.T) {
	gw := &fakeGateway{
		generateFn: func(_ context.Context, _ llm.GenerateParams) (*llm.GenerateResult, error) {
			return generateResult("no claims here"), nil
		},
		verifyFn: func(_ context.Context, claim, _ string) (*llm.ClaimVerification, error) {
			if claim != "water is wet" {
				t.Errorf("expected whole input as claim, got %q", claim)
			}
			return &llm.ClaimVerification{Confidence: 0.9}, nil
		},
	}
	state := newFactChecker(t, gw).Run(context.Background(), "water is wet", "", pipeline.Hooks[FactCheckState]{})
	if len(state.Claims) != 1 {
		t.Fatalf("expected 1 fallback claim, got %d", len(state.Claims))
	}
	if state.Claims[0].Type != "unknown" || state.Claims[0].Importance != "medium" {
		t.Fatalf("unexpected fallback claim %+v", state.Claims[0])
	}
}

func TestPerClaimVerifyFailureDegrades(t *testing.T) {
	gw := &fakeGateway{
		generateFn: func(_ context.Context, _ llm.GenerateParams) (*llm.GenerateResult, error) {
			return generateResult(claimsContent("claim a", "claim b")), nil
		},
		verifyFn: func(_ context.Context, claim, _ string) (*llm.ClaimVerification, error) {
			if claim == "claim a" {
				return nil, errors.New("verifier down")
			}
			return &llm.ClaimVerification{Confidence: 0.9}, nil
		},
	}
	state := newFactChecker(t, gw).Run(context.Background(), "content", "", pipeline.Hooks[FactCheckState]{})
	if state.Error != "" {
		t.Fatalf("partial failure must not fail the run: %s", state.Error)
	}
	if len(state.Results) != 2 {
		t.Fatalf("expected both claims processed, got %d", len(state.Results))
	}
	if state.Results[0].Confidence != 0.5 || state.Results[0].Verified {
		t.Fatalf("expected degraded first result, got %+v", state.Results[0])
	}
	if !state.Results[1].Verified {
		t.Fatalf("expected second result verified, got %+v", state.Results[1])
	}
}

func TestContextBecomesPseudoSource(t *testing.T) {
	gw := &fakeGateway{
		generateFn: func(_ context.Context, _ llm.GenerateParams) (*llm.GenerateResult, error) {
			return generateResult(claimsContent("claim a")), nil
		},
	}
	state := newFactChecker(t, gw).Run(context.Background(), "content", "trusted notes", pipeline.Hooks[FactCheckState]{})
	if len(state.Sources) != 1 {
		t.Fatalf("expected one pseudo-source, got %d", len(state.Sources))
	}
	if state.Sources[0].Reliability != 0.8 {
		t.Fatalf("unexpected reliability %v", state.Sources[0].Reliability)
	}
}

func TestSummaryCountsVerifiedClaims(t *testing.T) {
	gw := &fakeGateway{
		generateFn: func(_ context.Context, _ llm.GenerateParams) (*llm.GenerateResult, error) {
			return generateResult(claimsContent("claim a", "claim b", "claim c")), nil
		},
		verifyFn: func(_ context.Context, claim, _ string) (*llm.ClaimVerification, error) {
			if claim == "claim c" {
				return &llm.ClaimVerification{Confidence: 0.2}, nil
			}
			return &llm.ClaimVerification{Confidence: 0.9}, nil
		},
	}
	report, err := newFactChecker(t, gw).Verify(context.Background(), "content", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := fmt.Sprintf("2/3 claims verified. Overall verdict: %s.", report.Verdict)
	if report.Summary != want {
		t.Fatalf("unexpected summary %q", report.Summary)
	}
}
