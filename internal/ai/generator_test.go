package ai

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/windoze95/recipe-search-api/internal/testutil"
)

func TestGenerate_ResolvesImages(t *testing.T) {
	text := &testutil.MockTextProvider{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return twoRecipes, nil
		},
	}
	images := &testutil.MockImageSearchProvider{
		SearchImageFunc: func(ctx context.Context, query string) (string, error) {
			if query == "Chicken Salad" {
				return "", errors.New("no results")
			}
			return "https://images.example.com/" + query, nil
		},
	}
	g := NewRecipeGenerator(text, images, nil, nil, 2, 2)

	recipes := g.Generate(context.Background(), "chicken")
	if len(recipes) != 2 {
		t.Fatalf("len = %d, want 2", len(recipes))
	}
	if recipes[0].ImageURL != "https://images.example.com/Chicken Curry" {
		t.Errorf("image = %q", recipes[0].ImageURL)
	}
	if recipes[1].ImageURL != PlaceholderImageURL("Chicken Salad") {
		t.Errorf("failed lookup should fall back to placeholder, got %q", recipes[1].ImageURL)
	}

	if len(text.Prompts) != 1 || !strings.Contains(text.Prompts[0], "chicken") {
		t.Errorf("prompt should mention the term: %v", text.Prompts)
	}
}

func TestGenerate_TextFailureYieldsEmpty(t *testing.T) {
	text := &testutil.MockTextProvider{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return "", errors.New("backend down")
		},
	}
	var lookups atomic.Int32
	images := &testutil.MockImageSearchProvider{
		SearchImageFunc: func(ctx context.Context, query string) (string, error) {
			lookups.Add(1)
			return "x", nil
		},
	}
	g := NewRecipeGenerator(text, images, nil, nil, 5, 3)

	recipes := g.Generate(context.Background(), "soup")
	if recipes == nil || len(recipes) != 0 {
		t.Errorf("recipes = %v, want empty slice", recipes)
	}
	if lookups.Load() != 0 {
		t.Error("no image lookups expected when generation fails")
	}
}

func TestGenerate_NoImageProvider(t *testing.T) {
	text := &testutil.MockTextProvider{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return twoRecipes, nil
		},
	}
	g := NewRecipeGenerator(text, nil, nil, nil, 5, 3)

	for _, r := range g.Generate(context.Background(), "chicken") {
		if r.ImageURL != PlaceholderImageURL(r.Name) {
			t.Errorf("%s: image = %q, want placeholder", r.Name, r.ImageURL)
		}
	}
}

func TestGenerate_Mirror(t *testing.T) {
	text := &testutil.MockTextProvider{
		CompleteFunc: func(ctx context.Context, system, prompt string) (string, error) {
			return twoRecipes, nil
		},
	}
	images := &testutil.MockImageSearchProvider{
		SearchImageFunc: func(ctx context.Context, query string) (string, error) {
			return "https://images.example.com/photo", nil
		},
	}
	mirror := &testutil.MockImageMirror{
		MirrorImageFunc: func(ctx context.Context, sourceURL, recipeName string) (string, error) {
			if recipeName == "Chicken Salad" {
				return "", errors.New("bucket unavailable")
			}
			return "https://bucket.example.com/" + recipeName, nil
		},
	}
	g := NewRecipeGenerator(text, images, mirror, nil, 5, 1)

	recipes := g.Generate(context.Background(), "chicken")
	if recipes[0].ImageURL != "https://bucket.example.com/Chicken Curry" {
		t.Errorf("mirrored image = %q", recipes[0].ImageURL)
	}
	if recipes[1].ImageURL != "https://images.example.com/photo" {
		t.Errorf("mirror failure should keep source url, got %q", recipes[1].ImageURL)
	}
}
