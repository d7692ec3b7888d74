package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestProjectionMirrorsXPAndLevel(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	projection := NewProjection(client)

	if err := projection.SetXPAndLevel(context.Background(), "s1", 150, 2); err != nil {
		t.Fatalf("mirror: %v", err)
	}

	if got := mr.HGet("user:s1", "xp"); got != "150" {
		t.Fatalf("expected xp=150, got %q", got)
	}
	if got := mr.HGet("user:s1", "level"); got != "2" {
		t.Fatalf("expected level=2, got %q", got)
	}

	// Overwrites on subsequent commits.
	if err := projection.SetXPAndLevel(context.Background(), "s1", 210, 3); err != nil {
		t.Fatalf("mirror 2: %v", err)
	}
	if got := mr.HGet("user:s1", "level"); got != "3" {
		t.Fatalf("expected level=3 after update, got %q", got)
	}
}
