package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/repos"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type fakeDeckRepo struct {
	mu      sync.Mutex
	decks   map[uuid.UUID]*types.Deck
	deleted map[uuid.UUID]bool
}

func newFakeDeckRepo() *fakeDeckRepo {
	return &fakeDeckRepo{
		decks:   map[uuid.UUID]*types.Deck{},
		deleted: map[uuid.UUID]bool{},
	}
}

func (r *fakeDeckRepo) Create(_ context.Context, _ *gorm.DB, deck *types.Deck) (*types.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deck.ID == uuid.Nil {
		deck.ID = uuid.New()
	}
	r.decks[deck.ID] = deck
	return deck, nil
}

func (r *fakeDeckRepo) GetByID(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.UserID != userID || r.deleted[deckID] {
		return nil, pkgerrors.ErrNotFound
	}
	return deck, nil
}

func (r *fakeDeckRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Deck
	for id, d := range r.decks {
		if d.UserID == userID && !r.deleted[id] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeckRepo) ListChildren(_ context.Context, _ *gorm.DB, userID, parentID uuid.UUID) ([]*types.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Deck
	for id, d := range r.decks {
		if d.UserID == userID && !r.deleted[id] && d.ParentID != nil && *d.ParentID == parentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeckRepo) Update(_ context.Context, _ *gorm.DB, deck *types.Deck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decks[deck.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	r.decks[deck.ID] = deck
	return nil
}

func (r *fakeDeckRepo) SoftDelete(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.UserID != userID || r.deleted[deckID] {
		return pkgerrors.ErrNotFound
	}
	r.deleted[deckID] = true
	return nil
}

func (r *fakeDeckRepo) Restore(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.UserID != userID {
		return pkgerrors.ErrNotFound
	}
	delete(r.deleted, deckID)
	return nil
}

func (r *fakeDeckRepo) GetDeleted(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[deckID]
	if !ok || deck.UserID != userID || !r.deleted[deckID] {
		return nil, pkgerrors.ErrNotFound
	}
	return deck, nil
}

type fakeCardRepo struct {
	mu           sync.Mutex
	cards        map[uuid.UUID]*types.Card
	deletedDecks []uuid.UUID
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: map[uuid.UUID]*types.Card{}}
}

func (r *fakeCardRepo) Create(_ context.Context, _ *gorm.DB, cards []*types.Card) ([]*types.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cards {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		r.cards[c.ID] = c
	}
	return cards, nil
}

func (r *fakeCardRepo) GetByID(_ context.Context, _ *gorm.DB, userID, cardID uuid.UUID) (*types.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[cardID]
	if !ok || card.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return card, nil
}

func (r *fakeCardRepo) ListByDeck(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID, _, _ int) ([]*types.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Card
	for _, c := range r.cards {
		if c.UserID == userID && c.DeckID == deckID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCardRepo) Update(_ context.Context, _ *gorm.DB, card *types.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cards[card.ID]; !ok {
		return pkgerrors.ErrNotFound
	}
	r.cards[card.ID] = card
	return nil
}

func (r *fakeCardRepo) SoftDelete(_ context.Context, _ *gorm.DB, userID, cardID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	card, ok := r.cards[cardID]
	if !ok || card.UserID != userID {
		return pkgerrors.ErrNotFound
	}
	delete(r.cards, cardID)
	return nil
}

func (r *fakeCardRepo) SoftDeleteByDeck(_ context.Context, _ *gorm.DB, userID, deckID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedDecks = append(r.deletedDecks, deckID)
	for id, c := range r.cards {
		if c.UserID == userID && c.DeckID == deckID {
			delete(r.cards, id)
		}
	}
	return nil
}

func (r *fakeCardRepo) Restore(_ context.Context, _ *gorm.DB, _, _ uuid.UUID) error {
	return nil
}

var (
	_ repos.DeckRepo = (*fakeDeckRepo)(nil)
	_ repos.CardRepo = (*fakeCardRepo)(nil)
)

func newTestDeckService(t *testing.T) (DeckService, *fakeDeckRepo, *fakeCardRepo) {
	t.Helper()
	deckRepo := newFakeDeckRepo()
	cardRepo := newFakeCardRepo()
	svc := NewDeckService(nil, testLogger(t), deckRepo, cardRepo)
	return svc, deckRepo, cardRepo
}

func mustCreateDeck(t *testing.T, svc DeckService, userID uuid.UUID, name string, parent *uuid.UUID) *types.Deck {
	t.Helper()
	deck, err := svc.Create(context.Background(), userID, DeckInput{Name: name, ParentID: parent})
	if err != nil {
		t.Fatalf("create deck %q: %v", name, err)
	}
	return deck
}

func TestMoveToParentRejectsCycles(t *testing.T) {
	svc, _, _ := newTestDeckService(t)
	userID := uuid.New()
	ctx := context.Background()

	root := mustCreateDeck(t, svc, userID, "root", nil)
	child := mustCreateDeck(t, svc, userID, "child", &root.ID)
	grandchild := mustCreateDeck(t, svc, userID, "grandchild", &child.ID)

	// Moving the root under its own grandchild would close a loop.
	if _, err := svc.MoveToParent(ctx, userID, root.ID, &grandchild.ID); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("cycle move err = %v, want ErrInvalidArgument", err)
	}
	if _, err := svc.MoveToParent(ctx, userID, root.ID, &root.ID); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("self-parent err = %v, want ErrInvalidArgument", err)
	}

	// A legal reparent: grandchild straight under root.
	moved, err := svc.MoveToParent(ctx, userID, grandchild.ID, &root.ID)
	if err != nil {
		t.Fatalf("legal move: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != root.ID {
		t.Fatalf("parent = %v, want %s", moved.ParentID, root.ID)
	}

	// Detach to top level.
	detached, err := svc.MoveToParent(ctx, userID, child.ID, nil)
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if detached.ParentID != nil {
		t.Fatalf("detached parent = %v, want nil", detached.ParentID)
	}
}

func TestAncestorsWalksToRoot(t *testing.T) {
	svc, _, _ := newTestDeckService(t)
	userID := uuid.New()
	ctx := context.Background()

	root := mustCreateDeck(t, svc, userID, "root", nil)
	child := mustCreateDeck(t, svc, userID, "child", &root.ID)
	grandchild := mustCreateDeck(t, svc, userID, "grandchild", &child.ID)

	ancestors, err := svc.Ancestors(ctx, userID, grandchild.ID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("ancestors = %d, want 2", len(ancestors))
	}
	if ancestors[0].ID != child.ID || ancestors[1].ID != root.ID {
		t.Fatalf("ancestor order = [%s %s], want [%s %s]", ancestors[0].ID, ancestors[1].ID, child.ID, root.ID)
	}

	top, err := svc.Ancestors(ctx, userID, root.ID)
	if err != nil {
		t.Fatalf("Ancestors root: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("root ancestors = %d, want 0", len(top))
	}
}

func TestDeleteCascadesOverSubtree(t *testing.T) {
	svc, deckRepo, cardRepo := newTestDeckService(t)
	userID := uuid.New()
	ctx := context.Background()

	root := mustCreateDeck(t, svc, userID, "root", nil)
	child := mustCreateDeck(t, svc, userID, "child", &root.ID)
	grandchild := mustCreateDeck(t, svc, userID, "grandchild", &child.ID)
	sibling := mustCreateDeck(t, svc, userID, "sibling", nil)

	if err := svc.Delete(ctx, userID, root.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, id := range []uuid.UUID{root.ID, child.ID, grandchild.ID} {
		if !deckRepo.deleted[id] {
			t.Fatalf("deck %s not deleted", id)
		}
	}
	if deckRepo.deleted[sibling.ID] {
		t.Fatalf("sibling deck deleted unexpectedly")
	}
	if len(cardRepo.deletedDecks) != 3 {
		t.Fatalf("card cascade hit %d decks, want 3", len(cardRepo.deletedDecks))
	}
}

func TestDeckOwnershipScoping(t *testing.T) {
	svc, _, _ := newTestDeckService(t)
	owner := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	deck := mustCreateDeck(t, svc, owner, "private", nil)

	if _, err := svc.Get(ctx, stranger, deck.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("cross-user get err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, stranger, deck.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("cross-user delete err = %v, want ErrNotFound", err)
	}
}

func TestRestoreBringsDeckBack(t *testing.T) {
	svc, _, _ := newTestDeckService(t)
	userID := uuid.New()
	ctx := context.Background()

	deck := mustCreateDeck(t, svc, userID, "doomed", nil)
	if err := svc.Delete(ctx, userID, deck.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, userID, deck.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("deleted deck still visible: %v", err)
	}

	restored, err := svc.Restore(ctx, userID, deck.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.ID != deck.ID {
		t.Fatalf("restored id = %s, want %s", restored.ID, deck.ID)
	}
	if _, err := svc.Get(ctx, userID, deck.ID); err != nil {
		t.Fatalf("restored deck not visible: %v", err)
	}
}

func TestSaveGeneratedMapsCards(t *testing.T) {
	deckRepo := newFakeDeckRepo()
	cardRepo := newFakeCardRepo()
	log := testLogger(t)
	decks := NewDeckService(nil, log, deckRepo, cardRepo)
	cards := NewCardService(nil, log, deckRepo, cardRepo)
	userID := uuid.New()
	ctx := context.Background()

	deck := mustCreateDeck(t, decks, userID, "biology", nil)

	conf := 0.9
	saved, err := cards.SaveGenerated(ctx, userID, deck.ID, []types.GeneratedCard{
		{Front: "F1", Back: "B1", CardType: "basic", Tags: []string{"cells"}, Confidence: &conf},
		{Front: "F2", Back: "B2", CardType: "basic"},
	})
	if err != nil {
		t.Fatalf("SaveGenerated: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d cards, want 2", len(saved))
	}
	if saved[0].DeckID != deck.ID || saved[0].UserID != userID {
		t.Fatalf("card not scoped to deck/user")
	}
	if saved[0].Confidence == nil || *saved[0].Confidence != 0.9 {
		t.Fatalf("confidence not carried")
	}

	if _, err := cards.SaveGenerated(ctx, userID, uuid.New(), nil); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing deck err = %v, want ErrNotFound", err)
	}
}
