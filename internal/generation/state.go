package generation

import (
	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// RetrievedContext is one piece of supporting material fed to the generator.
type RetrievedContext struct {
	Content string
	Source  string
	Score   float64
}

// ParsedCard is a card as extracted from model output, before review.
type ParsedCard struct {
	Front string
	Back  string
	Tags  []string
}

// DuplicateVerdict is the similarity collaborator's judgement on one card.
type DuplicateVerdict struct {
	IsDuplicate     bool
	SimilarityScore float64
	DuplicateID     string
}

// RejectedCard records why a card did not survive routing.
type RejectedCard struct {
	Front  string
	Reason string
}

// CardState is the mutable per-run record of the card-generation pipeline.
// Created fresh per run, never shared across runs, never persisted.
type CardState struct {
	Request types.GenerationRequest

	Context   []RetrievedContext
	RawOutput string
	ModelUsed string
	Cards     []ParsedCard

	// Index-aligned with Cards. FactChecks entries are nil when the
	// fact-check stage was skipped.
	Duplicates []DuplicateVerdict
	FactChecks []*llm.ClaimVerification

	Approved []types.GeneratedCard
	Rejected []RejectedCard
	Saved    []types.GeneratedCard

	Progress  float64
	Error     string
	Cancelled bool
}

// SourceRef is one supporting source consulted during fact checking.
type SourceRef struct {
	Title       string
	Content     string
	Reliability float64
}

// FactCheckState is the mutable per-run record of the fact-check pipeline.
type FactCheckState struct {
	Content string
	Context string

	Claims  []types.Claim
	Sources []SourceRef
	Results []types.VerificationResult
	Report  *types.FactCheckReport

	Progress  float64
	Error     string
	Cancelled bool
}
