package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/pipeline"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// Stage names of the fact-check pipeline.
const (
	StageParseClaims   = "parse_claims"
	StageSearchSources = "search_sources"
	StageVerifyClaims  = "verify_claims"
	StageAggregate     = "aggregate"
)

const (
	claimsTemperature = 0.3
	claimsMaxTokens   = 1000

	// Per-claim confidence at or above this counts as individually verified.
	verifiedThreshold = 0.7

	// Neutral confidence used when a verification call fails or when there
	// is nothing to verify.
	neutralConfidence = 0.5
)

// Verdict labels derived from aggregate confidence.
const (
	VerdictVerified         = "verified"
	VerdictLikelyAccurate   = "likely_accurate"
	VerdictUncertain        = "uncertain"
	VerdictLikelyInaccurate = "likely_inaccurate"
	VerdictFalse            = "false"
	VerdictUnverifiable     = "unverifiable"
)

var importanceWeights = map[string]float64{
	"high":   1.5,
	"medium": 1.0,
	"low":    0.5,
}

// FactCheckPipeline verifies arbitrary text: parse_claims ->
// [search_sources -> verify_claims] -> aggregate. Used standalone and as the
// fact-check stage collaborator of the card pipeline.
type FactCheckPipeline struct {
	log     *logger.Logger
	gateway llm.Client
	graph   *pipeline.Graph[FactCheckState]
}

func NewFactCheckPipeline(gateway llm.Client, log *logger.Logger) (*FactCheckPipeline, error) {
	if gateway == nil {
		return nil, fmt.Errorf("llm gateway required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	p := &FactCheckPipeline{
		log:     log.With("service", "FactCheckPipeline"),
		gateway: gateway,
	}

	p.graph = pipeline.New[FactCheckState]().
		AddStage(StageParseClaims, p.parseClaims).
		AddStage(StageSearchSources, p.searchSources).
		AddStage(StageVerifyClaims, p.verifyClaims).
		AddStage(StageAggregate, p.aggregate).
		AddConditional(StageParseClaims, routeToVerification, map[pipeline.Route]string{
			"verify": StageSearchSources,
			"skip":   StageAggregate,
		}).
		AddEdge(StageSearchSources, StageVerifyClaims).
		AddEdge(StageVerifyClaims, StageAggregate).
		SetEntry(StageParseClaims)

	return p, nil
}

// Run verifies content against optional supporting context. The report is
// always present on a non-cancelled run, including the zero-claims case.
func (p *FactCheckPipeline) Run(ctx context.Context, content, supportingContext string, hooks pipeline.Hooks[FactCheckState]) *FactCheckState {
	state := &FactCheckState{Content: content, Context: supportingContext}
	out := p.graph.Run(ctx, state, hooks)
	if out.Cancelled {
		state.Cancelled = true
	}
	if out.Err != nil && state.Error == "" {
		state.Error = out.Err.Error()
	}
	return state
}

// Verify is the standalone entry point, returning just the report.
func (p *FactCheckPipeline) Verify(ctx context.Context, content, supportingContext string) (*types.FactCheckReport, error) {
	state := p.Run(ctx, content, supportingContext, pipeline.Hooks[FactCheckState]{})
	if state.Error != "" {
		return nil, fmt.Errorf("fact check failed: %s", state.Error)
	}
	if state.Report == nil {
		return nil, fmt.Errorf("fact check produced no report")
	}
	return state.Report, nil
}

func routeToVerification(s *FactCheckState) pipeline.Route {
	if s.Error == "" && len(s.Claims) > 0 {
		return "verify"
	}
	return "skip"
}

func (p *FactCheckPipeline) parseClaims(ctx context.Context, s *FactCheckState) error {
	content := strings.TrimSpace(s.Content)
	if content == "" {
		s.Progress = 25
		return nil
	}

	s.Claims = p.extractClaims(ctx, content)
	if len(s.Claims) == 0 {
		// Never zero claims for non-empty input: fall back to treating the
		// whole text as one claim.
		s.Claims = []types.Claim{{Text: content, Type: "unknown", Importance: "medium"}}
	}
	s.Progress = 25
	return nil
}

func (p *FactCheckPipeline) extractClaims(ctx context.Context, content string) []types.Claim {
	result, err := p.gateway.Generate(ctx, llm.GenerateParams{
		System:         claimSystemPrompt,
		User:           claimUserPrompt(content),
		Temperature:    claimsTemperature,
		MaxTokens:      claimsMaxTokens,
		SchemaName:     "claims",
		ResponseSchema: claimResponseSchema(),
	})
	if err != nil {
		p.log.Warn("Claim extraction call failed", "error", err)
		return nil
	}

	var wrapper struct {
		Claims []types.Claim `json:"claims"`
	}
	if err := json.Unmarshal([]byte(result.Content), &wrapper); err == nil && len(wrapper.Claims) > 0 {
		return sanitizeClaims(wrapper.Claims)
	}

	objs, err := ExtractJSONArray(result.Content)
	if err != nil {
		return nil
	}
	claims := make([]types.Claim, 0, len(objs))
	for _, obj := range objs {
		claims = append(claims, types.Claim{
			Text:       stringField(obj, "claim"),
			Type:       stringField(obj, "type"),
			Importance: stringField(obj, "importance"),
		})
	}
	return sanitizeClaims(claims)
}

func sanitizeClaims(in []types.Claim) []types.Claim {
	out := make([]types.Claim, 0, len(in))
	for _, c := range in {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if c.Type == "" {
			c.Type = "unknown"
		}
		if _, ok := importanceWeights[c.Importance]; !ok {
			c.Importance = "medium"
		}
		out = append(out, c)
	}
	return out
}

// searchSources folds caller-supplied context into a single pseudo-source.
// A retrieval collaborator slots in here.
func (p *FactCheckPipeline) searchSources(_ context.Context, s *FactCheckState) error {
	if ctx := strings.TrimSpace(s.Context); ctx != "" {
		s.Sources = append(s.Sources, SourceRef{
			Title:       "User provided context",
			Content:     ctx,
			Reliability: 0.8,
		})
	}
	s.Progress = 50
	return nil
}

func (p *FactCheckPipeline) verifyClaims(ctx context.Context, s *FactCheckState) error {
	s.Results = make([]types.VerificationResult, 0, len(s.Claims))
	for _, claim := range s.Claims {
		verification, err := p.gateway.VerifyClaim(ctx, claim.Text, s.Context)
		if err != nil {
			p.log.Warn("Claim verification failed, using neutral confidence", "claim", claim.Text, "error", err)
			verification = &llm.ClaimVerification{
				Confidence: neutralConfidence,
				Reasoning:  fmt.Sprintf("verification unavailable: %v", err),
			}
		}
		s.Results = append(s.Results, types.VerificationResult{
			Claim:      claim,
			Confidence: verification.Confidence,
			Sources:    verification.Sources,
			Reasoning:  verification.Reasoning,
			Verified:   verification.Confidence >= verifiedThreshold,
		})
	}
	s.Progress = 75
	return nil
}

func (p *FactCheckPipeline) aggregate(_ context.Context, s *FactCheckState) error {
	report := &types.FactCheckReport{
		Claims:  s.Claims,
		Results: s.Results,
	}

	if len(s.Results) == 0 {
		// Nothing to verify is an explicit terminal case, not a failure.
		report.OverallConfidence = neutralConfidence
		report.Verdict = VerdictUnverifiable
		report.Summary = "0/0 claims verified. Overall verdict: unverifiable."
	} else {
		report.OverallConfidence = aggregateConfidence(s.Results)
		report.Verdict = verdictFor(report.OverallConfidence)

		verified := 0
		for _, r := range s.Results {
			if r.Verified {
				verified++
			}
		}
		report.Summary = fmt.Sprintf("%d/%d claims verified. Overall verdict: %s.",
			verified, len(s.Results), report.Verdict)
	}

	s.Report = report
	s.Progress = 100
	return nil
}

// aggregateConfidence is the importance-weighted mean of per-claim
// confidences, falling back to an unweighted mean when the weights sum to 0.
func aggregateConfidence(results []types.VerificationResult) float64 {
	var weightedSum, weightTotal, plainSum float64
	for _, r := range results {
		w := importanceWeights[r.Claim.Importance]
		weightedSum += r.Confidence * w
		weightTotal += w
		plainSum += r.Confidence
	}
	if weightTotal == 0 {
		return plainSum / float64(len(results))
	}
	return weightedSum / weightTotal
}

func verdictFor(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return VerdictVerified
	case confidence >= 0.6:
		return VerdictLikelyAccurate
	case confidence >= 0.4:
		return VerdictUncertain
	case confidence >= 0.2:
		return VerdictLikelyInaccurate
	default:
		return VerdictFalse
	}
}
