package headless

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func TestNewChromedpLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}
	renderer, err := NewChromedp(Config{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = renderer.Close() }()
	if cap(renderer.limiter) != 2 {
		t.Fatalf("expected limiter capacity 2, got %d", cap(renderer.limiter))
	}
	if renderer.cfg.NavigationTimeout != defaultNavTimeout {
		t.Fatalf("expected default nav timeout, got %v", renderer.cfg.NavigationTimeout)
	}
}

func TestRendererNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	renderer := &Renderer{}
	if got := renderer.navTimeout(); got != defaultNavTimeout {
		t.Fatalf("expected default nav timeout, got %v", got)
	}
	renderer.cfg.NavigationTimeout = time.Second
	if got := renderer.navTimeout(); got != time.Second {
		t.Fatalf("expected override to be used, got %v", got)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	renderer := &Renderer{limiter: make(chan struct{}, 1)}
	if err := renderer.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := renderer.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled wait, got %v", err)
	}

	renderer.release()
	if err := renderer.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestDocumentStatusCapturesDocumentOnly(t *testing.T) {
	t.Parallel()

	status := &documentStatus{}
	status.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500},
	})
	if got := status.get(); got != 0 {
		t.Fatalf("script response should be ignored, got %d", got)
	}

	status.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 403},
	})
	if got := status.get(); got != 403 {
		t.Fatalf("expected 403, got %d", got)
	}
}
