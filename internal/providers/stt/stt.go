package stt

import "context"

// Provider transcribes a recorded prompt (voice memo) into the text the
// reply pipeline conditions on.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
