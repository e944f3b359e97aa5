package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

// Edge uses the Microsoft Edge read-aloud service.
type Edge struct {
	tmpDir         string
	receiveTimeout int
}

// NewEdge writes intermediate files under tmpDir (os.TempDir when empty).
func NewEdge(tmpDir string) *Edge {
	return &Edge{tmpDir: tmpDir, receiveTimeout: 20}
}

func (e *Edge) Name() string { return "edge" }

func (e *Edge) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	dir, err := os.MkdirTemp(e.tmpDir, "edge-tts-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "speech.mp3")

	done := make(chan error, 1)
	go func() {
		conn, err := edge_tts.NewCommunicate(text,
			edge_tts.SetVoice(voice),
			edge_tts.SetReceiveTimeout(e.receiveTimeout),
		)
		if err != nil {
			done <- fmt.Errorf("create edge tts connection: %w", err)
			return
		}
		done <- conn.Save(out, "")
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("edge tts synthesis failed: %w", err)
		}
	}
	return os.ReadFile(out)
}
