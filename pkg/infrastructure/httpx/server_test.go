package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	srv := New("256.0.0.1:bad", http.NotFoundHandler())
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("Expected a listen error for an invalid address")
	}
}
