package services

import (
	"bytes"
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/storage"
	"github.com/yoockh/yoopersona/internal/utils"
)

type VoiceService interface {
	// Preview synthesizes the given text with the voice category and stores
	// the audio, returning a retrievable URL. Used by owners to audition a
	// voice identity before attaching it to their persona.
	Preview(ctx context.Context, userID, text, voiceID string) (url, mime string, err error)
}

type voiceService struct {
	gw       Invoker
	uploader storage.Uploader
}

func NewVoiceService(gw Invoker, uploader storage.Uploader) VoiceService {
	return &voiceService{gw: gw, uploader: uploader}
}

func (s *voiceService) Preview(ctx context.Context, userID, text, voiceID string) (string, string, error) {
	const op = "VoiceService.Preview"

	if userID == "" || text == "" {
		return "", "", utils.E(utils.CodeInvalidArgument, op, "user_id and text are required", nil)
	}
	if s.uploader == nil {
		return "", "", utils.E(utils.CodeUnavailable, op, "preview storage is not configured", nil)
	}

	res, err := s.gw.Invoke(ctx, models.CategoryVoice, gateway.Request{
		Text:    text,
		VoiceID: voiceID,
	})
	if err != nil {
		return "", "", err
	}

	audio, err := base64.StdEncoding.DecodeString(res.AudioBase64)
	if err != nil {
		return "", "", utils.E(utils.CodeInternal, op, "decode synthesized audio", err)
	}

	object := "voice-previews/" + userID + "/" + uuid.NewString() + ".mp3"
	url, err := s.uploader.Upload(ctx, object, res.AudioMIME, bytes.NewReader(audio))
	if err != nil {
		return "", "", utils.E(utils.CodeInternal, op, "failed to store preview audio", err)
	}
	return url, res.AudioMIME, nil
}
