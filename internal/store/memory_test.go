package store

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/gaia-game-search/internal/query"
	"github.com/park285/gaia-game-search/internal/vocab"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	g := sampleGame(3, "AlabeSons", "zed")
	if err := repo.InsertGame(ctx, g); err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if err := repo.InsertGame(ctx, sampleGame(3, "other")); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	g.Players[0].Name = "mutated"
	got, err := repo.GetGame(ctx, 3)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Players[0].Name != "AlabeSons" {
		t.Fatalf("repository shares memory with the caller")
	}
	if _, err := repo.GetGame(ctx, 4); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}

	plan, err := query.Compile(query.SearchRequest{Clauses: []query.SearchClause{{PlayerName: "ALABE"}}}, vocab.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	page, err := repo.Search(ctx, plan, 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 1 || page.Games[0].TableID != 3 {
		t.Fatalf("search: %+v", page)
	}
	page, err = repo.Search(ctx, plan, 10, 5)
	if err != nil || page.Total != 1 || len(page.Games) != 0 {
		t.Fatalf("offset past the end: %+v %v", page, err)
	}
}
