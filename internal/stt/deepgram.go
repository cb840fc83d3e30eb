package stt

import (
	"bytes"
	"context"
	"fmt"

	restapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// DeepgramTranscriber uses Deepgram's pre-recorded REST API.
type DeepgramTranscriber struct {
	client *restapi.Client
	model  string
}

// NewDeepgramTranscriber creates a Deepgram client for the given API key and
// model.
func NewDeepgramTranscriber(apiKey, model string) *DeepgramTranscriber {
	c := listenClient.NewREST(apiKey, &interfaces.ClientOptions{})
	return &DeepgramTranscriber{
		client: restapi.New(c),
		model:  model,
	}
}

// Name implements Transcriber.
func (d *DeepgramTranscriber) Name() string { return "deepgram" }

// Transcribe implements Transcriber.
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:     d.model,
		Language:  language,
		Punctuate: false,
	}

	res, err := d.client.FromStream(ctx, bytes.NewReader(wav), options)
	if err != nil {
		return "", fmt.Errorf("deepgram: %w: %v", ErrUnavailable, err)
	}
	if res == nil || res.Results == nil {
		return "", ErrUnrecognizable
	}
	for _, channel := range res.Results.Channels {
		for _, alt := range channel.Alternatives {
			return checkTranscript(alt.Transcript)
		}
	}
	return "", ErrUnrecognizable
}
