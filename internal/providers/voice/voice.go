package voice

import "context"

// DefaultVoiceID is used when the caller supplies no voice identity.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

type Provider interface {
	// Synthesize converts text to speech. Returns raw audio bytes and the
	// MIME type of the encoding.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error)
}
