package types

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job can no longer change status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// GenerationRequest carries the caller's parameters for one card-generation job.
type GenerationRequest struct {
	Topic          string   `json:"topic"`
	DeckID         string   `json:"deck_id,omitempty"`
	CardType       string   `json:"card_type"`
	NumCards       int      `json:"num_cards"`
	Difficulty     string   `json:"difficulty"`
	Language       string   `json:"language"`
	IncludeSources bool     `json:"include_sources"`
	FactCheck      bool     `json:"fact_check"`
	Context        string   `json:"context,omitempty"`
	ModelID        string   `json:"model_id,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Normalize fills defaults in place.
func (r *GenerationRequest) Normalize() {
	if r.CardType == "" {
		r.CardType = "basic"
	}
	if r.NumCards == 0 {
		r.NumCards = 5
	}
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
	if r.Language == "" {
		r.Language = "en"
	}
}

func (r *GenerationRequest) Validate() error {
	topic := strings.TrimSpace(r.Topic)
	if topic == "" || len(topic) > 500 {
		return fmt.Errorf("topic must be 1-500 characters")
	}
	switch r.CardType {
	case "basic", "cloze", "basic_reversed":
	default:
		return fmt.Errorf("card_type must be one of basic, cloze, basic_reversed")
	}
	if r.NumCards < 1 || r.NumCards > 20 {
		return fmt.Errorf("num_cards must be between 1 and 20")
	}
	switch r.Difficulty {
	case "easy", "medium", "hard":
	default:
		return fmt.Errorf("difficulty must be one of easy, medium, hard")
	}
	if len(r.Context) > 5000 {
		return fmt.Errorf("context must be at most 5000 characters")
	}
	if len(r.Tags) > 20 {
		return fmt.Errorf("at most 20 tags allowed")
	}
	return nil
}

// GeneratedCard is one reviewed flashcard produced by a generation run.
// Immutable once attached to a Job.
type GeneratedCard struct {
	Front           string   `json:"front"`
	Back            string   `json:"back"`
	CardType        string   `json:"card_type"`
	Tags            []string `json:"tags,omitempty"`
	Source          string   `json:"source,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	IsDuplicate     bool     `json:"is_duplicate"`
	DuplicateOf     string   `json:"duplicate_of,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// Job is the unit of trackable, cancellable generation work. The job store
// holds the full serialized record; the lifecycle manager is its only writer.
type Job struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Status         JobStatus         `json:"status"`
	Request        GenerationRequest `json:"request"`
	GeneratedCount int               `json:"generated_count"`
	Cards          []GeneratedCard   `json:"cards,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// JobStatusSummary is the poll-friendly projection of a job.
type JobStatusSummary struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress"`
	Generated   int       `json:"generated"`
	Requested   int       `json:"requested"`
	CurrentStep string    `json:"current_step,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Claim is one assertion extracted from text for verification.
type Claim struct {
	Text       string `json:"claim"`
	Type       string `json:"type"`
	Importance string `json:"importance"`
}

// VerificationResult is the per-claim outcome of a gateway verification call.
type VerificationResult struct {
	Claim      Claim    `json:"claim"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Verified   bool     `json:"verified"`
}

// FactCheckReport is the aggregate outcome of a fact-check pipeline run.
type FactCheckReport struct {
	OverallConfidence float64              `json:"overall_confidence"`
	Verdict           string               `json:"verdict"`
	Claims            []Claim              `json:"claims,omitempty"`
	Results           []VerificationResult `json:"results,omitempty"`
	Summary           string               `json:"summary"`
}

type StreamEventType string

const (
	StreamEventProgress StreamEventType = "progress"
	StreamEventCard     StreamEventType = "card"
	StreamEventComplete StreamEventType = "complete"
	StreamEventError    StreamEventType = "error"
)

// StreamEvent is one push-based update from a live generation run.
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Stage    string          `json:"stage,omitempty"`
	Progress float64         `json:"progress,omitempty"`
	Card     *GeneratedCard  `json:"card,omitempty"`
	Message  string          `json:"message,omitempty"`
}
