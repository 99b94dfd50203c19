package pipeline

import (
	"context"
	"strings"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/generate"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
)

// ChatResult is the non-streaming variant of one full turn: the assistant's
// reply, its rendered audio, and the updated history.
type ChatResult struct {
	ReplyText   string
	Audio       []byte
	AudioFormat string
	History     []history.Entry
}

// Chat runs generate then synthesize over a caller-supplied history without
// any session state. The whole reply is rendered as one audio unit.
func (o *Orchestrator) Chat(ctx context.Context, userText string, prior []history.Entry) (ChatResult, error) {
	convo := history.NewLog()
	convo.Replace(prior)

	req := generate.Request{
		UserText:       userText,
		Window:         convo.Window(o.historyWindow),
		SystemPreamble: generate.BuildPreamble(o.knowledgeBase.Text()),
	}

	var (
		reply generate.Reply
		err   error
	)
	if poolErr := o.pool.Do(ctx, func() {
		reply, err = o.generator.Generate(ctx, req, nil)
	}); poolErr != nil {
		return ChatResult{}, &GenerationError{Err: poolErr}
	}
	if err != nil {
		return ChatResult{}, &GenerationError{Err: err}
	}

	audio, format, err := o.SynthesizeOnce(ctx, reply.Text)
	if err != nil {
		return ChatResult{}, err
	}

	convo.Append(history.RoleUser, userText)
	convo.Append(history.RoleAssistant, reply.Text)
	return ChatResult{
		ReplyText:   reply.Text,
		Audio:       audio,
		AudioFormat: format,
		History:     convo.Snapshot(),
	}, nil
}

// TranscribeOnce runs a single blocking transcription. Empty output means no
// speech was detected.
func (o *Orchestrator) TranscribeOnce(ctx context.Context, audio []byte) (string, error) {
	var (
		text string
		err  error
	)
	if poolErr := o.pool.Do(ctx, func() {
		text, err = o.transcriber.Transcribe(ctx, audio)
	}); poolErr != nil {
		return "", &TranscriptionError{Err: poolErr}
	}
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	return strings.TrimSpace(text), nil
}

// SynthesizeOnce renders one text as a single audio unit.
func (o *Orchestrator) SynthesizeOnce(ctx context.Context, text string) ([]byte, string, error) {
	var (
		audio []byte
		err   error
	)
	if poolErr := o.pool.Do(ctx, func() {
		audio, err = o.synthesizer.Synthesize(ctx, text)
	}); poolErr != nil {
		return nil, "", &SynthesisError{Err: poolErr}
	}
	if err != nil {
		return nil, "", &SynthesisError{Err: err}
	}
	return audio, o.synthesizer.Format(), nil
}
