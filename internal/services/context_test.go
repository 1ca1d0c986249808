package services_test

import (
	"context"
	"testing"

	"mmt/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithSource(ctx, "/media/movie.mkv")
	ctx = services.WithStage(ctx, "encode")
	ctx = services.WithTier(ctx, 1080)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "/media/movie.mkv" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "encode" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if tier, ok := services.TierFromContext(ctx); !ok || tier != 1080 {
		t.Fatalf("unexpected tier: %v %v", tier, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithTier(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.TierFromContext(ctx); ok {
		t.Fatal("expected no tier value")
	}
}
