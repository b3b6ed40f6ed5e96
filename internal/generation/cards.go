package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/pipeline"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// Stage names of the card-generation pipeline.
const (
	StageFetchContext    = "fetch_context"
	StageGenerate        = "generate"
	StageCheckDuplicates = "check_duplicates"
	StageFactCheck       = "fact_check"
	StageRoute           = "route"
	StageSave            = "save"
)

const (
	generateTemperature = 0.7
	generateMaxTokens   = 4000

	rejectReasonDuplicate     = "duplicate"
	rejectReasonLowConfidence = "low_confidence"

	// Cards below this confidence are rejected during routing.
	minRoutableConfidence = 0.3
)

var stageProgress = map[string]float64{
	StageFetchContext:    20,
	StageGenerate:        50,
	StageCheckDuplicates: 65,
	StageFactCheck:       80,
	StageRoute:           90,
	StageSave:            100,
}

// StageProgress maps a card-pipeline stage name to its progress percentage.
// Unknown stage names map to 0.
func StageProgress(stage string) float64 {
	return stageProgress[stage]
}

// DuplicateChecker judges whether a card duplicates existing content. The
// default implementation never reports a duplicate; a similarity-search
// collaborator slots in here.
type DuplicateChecker func(ctx context.Context, card ParsedCard) (DuplicateVerdict, error)

func neverDuplicate(context.Context, ParsedCard) (DuplicateVerdict, error) {
	return DuplicateVerdict{}, nil
}

// CardPipeline turns a generation request into reviewed flashcards:
// fetch_context -> generate -> check_duplicates -> [fact_check] -> route -> save.
type CardPipeline struct {
	log      *logger.Logger
	gateway  llm.Client
	checkDup DuplicateChecker
	graph    *pipeline.Graph[CardState]
}

func NewCardPipeline(gateway llm.Client, checkDup DuplicateChecker, log *logger.Logger) (*CardPipeline, error) {
	if gateway == nil {
		return nil, fmt.Errorf("llm gateway required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if checkDup == nil {
		checkDup = neverDuplicate
	}

	p := &CardPipeline{
		log:      log.With("service", "CardPipeline"),
		gateway:  gateway,
		checkDup: checkDup,
	}

	p.graph = pipeline.New[CardState]().
		AddStage(StageFetchContext, p.fetchContext).
		AddStage(StageGenerate, p.generate).
		AddStage(StageCheckDuplicates, p.checkDuplicates).
		AddStage(StageFactCheck, p.factCheck).
		AddStage(StageRoute, p.route).
		AddStage(StageSave, p.save).
		AddEdge(StageFetchContext, StageGenerate).
		AddEdge(StageGenerate, StageCheckDuplicates).
		AddConditional(StageCheckDuplicates, routeToFactCheck, map[pipeline.Route]string{
			"fact_check": StageFactCheck,
			"skip":       StageRoute,
		}).
		AddEdge(StageFactCheck, StageRoute).
		AddEdge(StageRoute, StageSave).
		SetEntry(StageFetchContext)

	return p, nil
}

// Run executes one generation. The returned state always reflects how far the
// run got; failures land in state.Error, cancellation in state.Cancelled.
func (p *CardPipeline) Run(ctx context.Context, req types.GenerationRequest, hooks pipeline.Hooks[CardState]) *CardState {
	state := &CardState{Request: req}
	out := p.graph.Run(ctx, state, hooks)
	if out.Cancelled {
		state.Cancelled = true
	}
	if out.Err != nil && state.Error == "" {
		state.Error = out.Err.Error()
	}
	return state
}

func routeToFactCheck(s *CardState) pipeline.Route {
	if s.Error == "" && s.Request.FactCheck && len(s.Cards) > 0 {
		return "fact_check"
	}
	return "skip"
}

func (p *CardPipeline) fetchContext(_ context.Context, s *CardState) error {
	if ctx := strings.TrimSpace(s.Request.Context); ctx != "" {
		s.Context = append(s.Context, RetrievedContext{
			Content: ctx,
			Source:  "user_provided",
			Score:   1.0,
		})
	}
	s.Progress = 20
	return nil
}

func (p *CardPipeline) generate(ctx context.Context, s *CardState) error {
	system := cardSystemPrompt(s.Request.CardType, s.Request.Difficulty, s.Request.Language)
	user := cardUserPrompt(s.Request.Topic, s.Request.NumCards, s.Context, s.Request.Tags)

	// Schema-constrained request first; plain text with best-effort
	// extraction as the fallback.
	result, err := p.gateway.Generate(ctx, llm.GenerateParams{
		Model:          s.Request.ModelID,
		System:         system,
		User:           user,
		Temperature:    generateTemperature,
		MaxTokens:      generateMaxTokens,
		SchemaName:     "flashcards",
		ResponseSchema: cardResponseSchema(),
	})
	if err != nil {
		p.log.Warn("Structured generation failed, retrying as plain text", "error", err)
		result, err = p.gateway.Generate(ctx, llm.GenerateParams{
			Model:       s.Request.ModelID,
			System:      system,
			User:        user,
			Temperature: generateTemperature,
			MaxTokens:   generateMaxTokens,
		})
	}
	if err != nil {
		// A failed generation surfaces as a terminal Failed job, never as a
		// crash of the host process.
		p.log.Error("Generation call failed", "topic", s.Request.Topic, "error", err)
		s.Cards = nil
		s.Error = fmt.Sprintf("generation failed: %v", err)
		s.Progress = 50
		return nil
	}

	s.RawOutput = result.Content
	s.ModelUsed = result.Model
	s.Cards = parseCards(result.Content, s.Request)
	s.Progress = 50
	return nil
}

func parseCards(content string, req types.GenerationRequest) []ParsedCard {
	objs := extractCardObjects(content)
	cards := make([]ParsedCard, 0, len(objs))
	for _, obj := range objs {
		front := stringField(obj, "front")
		back := stringField(obj, "back")
		if front == "" || back == "" {
			continue
		}
		tags := stringSliceField(obj, "tags")
		if tags == nil {
			tags = req.Tags
		}
		cards = append(cards, ParsedCard{Front: front, Back: back, Tags: tags})
	}
	if len(cards) > req.NumCards {
		cards = cards[:req.NumCards]
	}
	return cards
}

// extractCardObjects accepts either the schema-constrained {"cards": [...]}
// wrapper or a bare array somewhere in the text.
func extractCardObjects(content string) []map[string]any {
	var wrapper struct {
		Cards []map[string]any `json:"cards"`
	}
	if err := decodeObject(content, &wrapper); err == nil && wrapper.Cards != nil {
		return wrapper.Cards
	}
	objs, err := ExtractJSONArray(content)
	if err != nil {
		return nil
	}
	return objs
}

func (p *CardPipeline) checkDuplicates(ctx context.Context, s *CardState) error {
	s.Duplicates = make([]DuplicateVerdict, len(s.Cards))
	for i, card := range s.Cards {
		verdict, err := p.checkDup(ctx, card)
		if err != nil {
			// A broken similarity collaborator must not sink the batch.
			p.log.Warn("Duplicate check failed, treating card as unique", "front", card.Front, "error", err)
			verdict = DuplicateVerdict{}
		}
		s.Duplicates[i] = verdict
	}
	s.Progress = 65
	return nil
}

func (p *CardPipeline) factCheck(ctx context.Context, s *CardState) error {
	s.FactChecks = make([]*llm.ClaimVerification, len(s.Cards))
	for i, card := range s.Cards {
		claim := card.Front + " " + card.Back
		verification, err := p.gateway.VerifyClaim(ctx, claim, s.Request.Context)
		if err != nil {
			p.log.Warn("Claim verification failed, using neutral confidence", "front", card.Front, "error", err)
			verification = &llm.ClaimVerification{
				Confidence: 0.5,
				Reasoning:  fmt.Sprintf("verification unavailable: %v", err),
			}
		}
		s.FactChecks[i] = verification
	}
	s.Progress = 80
	return nil
}

func (p *CardPipeline) route(_ context.Context, s *CardState) error {
	for i, card := range s.Cards {
		var dup DuplicateVerdict
		if i < len(s.Duplicates) {
			dup = s.Duplicates[i]
		}
		var fc *llm.ClaimVerification
		if i < len(s.FactChecks) {
			fc = s.FactChecks[i]
		}

		if dup.IsDuplicate {
			s.Rejected = append(s.Rejected, RejectedCard{Front: card.Front, Reason: rejectReasonDuplicate})
			continue
		}
		if fc != nil && fc.Confidence < minRoutableConfidence {
			s.Rejected = append(s.Rejected, RejectedCard{Front: card.Front, Reason: rejectReasonLowConfidence})
			continue
		}

		out := types.GeneratedCard{
			Front:    card.Front,
			Back:     card.Back,
			CardType: s.Request.CardType,
			Tags:     card.Tags,
		}
		if fc != nil {
			conf := fc.Confidence
			out.Confidence = &conf
			if s.Request.IncludeSources && len(fc.Sources) > 0 {
				out.Source = strings.Join(fc.Sources, ", ")
			}
		}
		if dup.SimilarityScore > 0 {
			score := dup.SimilarityScore
			out.SimilarityScore = &score
			out.DuplicateOf = dup.DuplicateID
		}
		s.Approved = append(s.Approved, out)
	}
	s.Progress = 90
	return nil
}

// save projects the approved list into the final card records. Durable card
// storage is the caller's concern, not this stage's.
func (p *CardPipeline) save(_ context.Context, s *CardState) error {
	s.Saved = make([]types.GeneratedCard, len(s.Approved))
	copy(s.Saved, s.Approved)
	s.Progress = 100
	return nil
}
