// Package pipeline drives the per-connection turn state machine: accumulate
// audio, transcribe, generate, synthesize, and stream fragments back over the
// duplex protocol.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pranav-shellkode/voice-agent-learning/internal/archive"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/generate"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/history"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/knowledge"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/observability"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/policy"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/protocol"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/segment"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/session"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/synthesize"
	"github.com/Pranav-shellkode/voice-agent-learning/internal/transcribe"
)

const (
	defaultHistoryWindow = 5
	defaultTurnTimeout   = 60 * time.Second
	archiveSaveTimeout   = 2 * time.Second
)

// Deps carries the orchestrator's collaborators. ArchiveStore may be nil when
// turn persistence is disabled.
type Deps struct {
	Sessions      *session.Manager
	Transcriber   transcribe.Transcriber
	Generator     generate.Generator
	Synthesizer   synthesize.Synthesizer
	KnowledgeBase *knowledge.Base
	ArchiveStore  archive.Store
	Metrics       *observability.Metrics
	Pool          *WorkerPool
	HistoryWindow int
	TurnTimeout   time.Duration
}

// Orchestrator owns turn sequencing for every connection. Sessions are fully
// independent; the only shared state is the knowledge base snapshot and the
// bounded worker pool.
type Orchestrator struct {
	sessions      *session.Manager
	transcriber   transcribe.Transcriber
	generator     generate.Generator
	synthesizer   synthesize.Synthesizer
	knowledgeBase *knowledge.Base
	archiveStore  archive.Store
	metrics       *observability.Metrics
	pool          *WorkerPool
	historyWindow int
	turnTimeout   time.Duration

	archiveWG sync.WaitGroup
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.HistoryWindow <= 0 {
		deps.HistoryWindow = defaultHistoryWindow
	}
	if deps.TurnTimeout <= 0 {
		deps.TurnTimeout = defaultTurnTimeout
	}
	if deps.Pool == nil {
		deps.Pool = NewWorkerPool(0)
	}
	return &Orchestrator{
		sessions:      deps.Sessions,
		transcriber:   deps.Transcriber,
		generator:     deps.Generator,
		synthesizer:   deps.Synthesizer,
		knowledgeBase: deps.KnowledgeBase,
		archiveStore:  deps.ArchiveStore,
		metrics:       deps.Metrics,
		pool:          deps.Pool,
		historyWindow: deps.HistoryWindow,
		turnTimeout:   deps.TurnTimeout,
	}
}

// SynthesisFormat names the audio container the active synthesizer emits.
func (o *Orchestrator) SynthesisFormat() string {
	return o.synthesizer.Format()
}

// turnOutcome is what a finished turn hands back to the connection loop. The
// loop emits the terminal protocol message itself, so a new turn boundary is
// only ever recognized after the previous turn's terminal message is out.
type turnOutcome struct {
	outcome  string
	errText  string
	provider string
	err      error
	snapshot []history.Entry
}

// RunConnection drives one websocket session until close or disconnect.
//
// The loop is the session's single sequential consumer: one inbound message
// is fully handled before the next is read. A running turn occupies its own
// goroutine so ping and close stay responsive, but turn-starting messages are
// rejected until the turn's terminal message has been emitted.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	convo := history.NewLog()
	acc := &Accumulator{}

	var (
		turnDone   chan turnOutcome
		turnCancel context.CancelFunc
	)

	// Waits for the in-flight turn goroutine to return and discards its
	// outcome, so the log is never shared after exit.
	stopTurn := func() {
		if turnCancel == nil {
			return
		}
		turnCancel()
		<-turnDone
		turnDone = nil
		turnCancel = nil
	}
	defer stopTurn()

	startTurn := func(userText string, audio []byte) {
		turnCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
		done := make(chan turnOutcome, 1)
		turnDone = done
		turnCancel = cancel
		go func() {
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("pipeline: turn panic session=%s: %v", s.ID, r)
					done <- turnOutcome{outcome: "internal_error", provider: "pipeline", errText: "internal error", err: fmt.Errorf("turn panic: %v", r)}
				}
			}()
			done <- o.runTurn(turnCtx, s.ID, convo, userText, audio, outbound)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-turnDone:
			turnCancel()
			turnDone = nil
			turnCancel = nil
			o.finishTurn(ctx, outbound, res)
			_ = o.sessions.Touch(s.ID)

		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			if t, known := protocol.TypeOf(msg); known {
				o.metrics.ObserveWSMessage("inbound", string(t))
			}
			_ = o.sessions.Touch(s.ID)

			switch m := msg.(type) {
			case protocol.Ping:
				o.send(ctx, outbound, protocol.Pong{Type: protocol.TypePong})

			case protocol.Close:
				stopTurn()
				return nil

			case protocol.AudioChunk:
				if turnDone != nil {
					o.sendError(ctx, outbound, ErrTurnInFlight.Error())
					continue
				}
				fragment, err := base64.StdEncoding.DecodeString(m.Data)
				if err != nil {
					o.sendError(ctx, outbound, "invalid audio encoding")
					continue
				}
				count := acc.Append(fragment)
				o.send(ctx, outbound, protocol.AudioReceived{Type: protocol.TypeAudioReceived, Chunks: count})

			case protocol.EndTurn:
				if turnDone != nil {
					o.sendError(ctx, outbound, ErrTurnInFlight.Error())
					continue
				}
				if m.ConversationHistory != nil {
					convo.Replace(m.ConversationHistory)
				}
				audio, err := acc.DrainAndReset()
				if err != nil {
					o.sendError(ctx, outbound, ErrNoAudio.Error())
					o.metrics.ObserveTurnOutcome("no_audio")
					continue
				}
				startTurn("", audio)

			case protocol.TextTurn:
				if turnDone != nil {
					o.sendError(ctx, outbound, ErrTurnInFlight.Error())
					continue
				}
				if m.ConversationHistory != nil {
					convo.Replace(m.ConversationHistory)
				}
				startTurn(m.Data, nil)
			}
		}
	}
}

// runTurn executes one full turn and returns its outcome for the connection
// loop to report. audio is nil for the text path; userText is empty for the
// audio path until transcription fills it in. Intermediate protocol messages
// are streamed from here; the terminal message is the loop's job.
func (o *Orchestrator) runTurn(ctx context.Context, sessionID string, convo *history.Log, userText string, audio []byte, outbound chan<- any) turnOutcome {
	turnStart := time.Now()

	if audio != nil {
		text, err := o.transcribeStage(ctx, audio)
		if err != nil {
			return turnOutcome{outcome: "transcription_error", provider: "stt", err: err, errText: err.Error()}
		}
		if strings.TrimSpace(text) == "" {
			return turnOutcome{outcome: "no_speech", errText: ErrNoSpeech.Error()}
		}
		userText = text
		o.send(ctx, outbound, protocol.Transcription{Type: protocol.TypeTranscription, Text: text})
	}

	reply, err := o.generateStage(ctx, convo, userText, outbound)
	if err != nil {
		return turnOutcome{outcome: "generation_error", provider: "llm", err: err, errText: err.Error()}
	}

	convo.Append(history.RoleUser, userText)
	convo.Append(history.RoleAssistant, reply)
	o.archiveTurnBestEffort(sessionID, userText, reply)

	firstAudio, err := o.synthesizeStage(ctx, reply, outbound)
	if err != nil {
		return turnOutcome{outcome: "synthesis_error", provider: "tts", err: err, errText: err.Error()}
	}
	if !firstAudio.IsZero() {
		o.metrics.RecordTurnStage(observability.StageFirstAudio, firstAudio.Sub(turnStart))
	}
	o.metrics.RecordTurnStage(observability.StageTurnTotal, time.Since(turnStart))

	return turnOutcome{outcome: "success", snapshot: convo.Snapshot()}
}

// finishTurn emits the turn's terminal protocol message and records the
// outcome.
func (o *Orchestrator) finishTurn(ctx context.Context, outbound chan<- any, res turnOutcome) {
	o.metrics.ObserveTurnOutcome(res.outcome)
	if res.errText != "" {
		if res.err != nil {
			log.Printf("turn failed (%s): %v", res.outcome, res.err)
			o.metrics.ObserveProviderError(res.provider, res.outcome)
		}
		o.sendError(ctx, outbound, res.errText)
		return
	}
	o.send(ctx, outbound, protocol.TurnComplete{
		Type:                protocol.TypeTurnComplete,
		ConversationHistory: res.snapshot,
	})
}

func (o *Orchestrator) transcribeStage(ctx context.Context, audio []byte) (string, error) {
	start := time.Now()
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
	o.metrics.RecordTurnStage(observability.StageTranscribe, time.Since(start))
	return text, nil
}

// generateStage streams model fragments to the client as they arrive and
// returns the assembled full reply.
func (o *Orchestrator) generateStage(ctx context.Context, convo *history.Log, userText string, outbound chan<- any) (string, error) {
	start := time.Now()
	req := generate.Request{
		UserText:       userText,
		Window:         convo.Window(o.historyWindow),
		SystemPreamble: generate.BuildPreamble(o.knowledgeBase.Text()),
	}

	o.send(ctx, outbound, protocol.LLMStart{Type: protocol.TypeLLMStart})

	var (
		reply generate.Reply
		err   error
	)
	if poolErr := o.pool.Do(ctx, func() {
		reply, err = o.generator.Generate(ctx, req, func(delta string) error {
			if !o.send(ctx, outbound, protocol.LLMChunk{Type: protocol.TypeLLMChunk, Text: delta}) {
				return ctx.Err()
			}
			return nil
		})
	}); poolErr != nil {
		return "", &GenerationError{Err: poolErr}
	}
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if strings.TrimSpace(reply.Text) == "" {
		return "", &GenerationError{Err: fmt.Errorf("model returned an empty reply")}
	}

	o.send(ctx, outbound, protocol.LLMComplete{Type: protocol.TypeLLMComplete, FullText: reply.Text})
	o.metrics.RecordTurnStage(observability.StageGenerate, time.Since(start))
	return reply.Text, nil
}

// synthesizeStage renders the reply one sentence at a time, forwarding each
// unit with its zero-based index. Returns the wall-clock moment the first
// audio unit was sent.
func (o *Orchestrator) synthesizeStage(ctx context.Context, reply string, outbound chan<- any) (time.Time, error) {
	start := time.Now()
	var firstAudioAt time.Time

	o.send(ctx, outbound, protocol.TTSStart{Type: protocol.TypeTTSStart})

	sentences := segment.Sentences(reply)
	for i, sentence := range sentences {
		var (
			audio []byte
			err   error
		)
		if poolErr := o.pool.Do(ctx, func() {
			audio, err = o.synthesizer.Synthesize(ctx, sentence)
		}); poolErr != nil {
			return firstAudioAt, &SynthesisError{SentenceIndex: i, Err: poolErr}
		}
		if err != nil {
			return firstAudioAt, &SynthesisError{SentenceIndex: i, Err: err}
		}

		o.send(ctx, outbound, protocol.TTSChunk{
			Type:       protocol.TypeTTSChunk,
			Audio:      base64.StdEncoding.EncodeToString(audio),
			ChunkIndex: i,
			IsLast:     i == len(sentences)-1,
		})
		if firstAudioAt.IsZero() {
			firstAudioAt = time.Now()
		}
	}

	o.send(ctx, outbound, protocol.TTSComplete{Type: protocol.TypeTTSComplete})
	o.metrics.RecordTurnStage(observability.StageSynthesizeAll, time.Since(start))
	return firstAudioAt, nil
}

// send delivers one outbound message, giving up when the turn or connection
// context ends so a cancelled turn stops forwarding fragments.
func (o *Orchestrator) send(ctx context.Context, outbound chan<- any, msg any) bool {
	select {
	case outbound <- msg:
		if t, known := protocol.TypeOf(msg); known {
			o.metrics.ObserveWSMessage("outbound", string(t))
		}
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) sendError(ctx context.Context, outbound chan<- any, message string) {
	o.send(ctx, outbound, protocol.ErrorMessage{Type: protocol.TypeError, Message: message})
}

func (o *Orchestrator) archiveTurnBestEffort(sessionID, userText, assistantText string) {
	if o.archiveStore == nil {
		return
	}
	now := time.Now().UTC()
	records := make([]archive.TurnRecord, 0, 2)
	for _, pair := range []struct {
		role, content string
	}{
		{history.RoleUser, userText},
		{history.RoleAssistant, assistantText},
	} {
		content, redacted := policy.Redact(pair.content)
		records = append(records, archive.TurnRecord{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      pair.role,
			Content:   content,
			Redacted:  redacted,
			CreatedAt: now,
		})
	}
	o.archiveWG.Add(1)
	go func() {
		defer o.archiveWG.Done()
		saveCtx, cancel := context.WithTimeout(context.Background(), archiveSaveTimeout)
		defer cancel()
		for _, r := range records {
			if err := o.archiveStore.SaveTurn(saveCtx, r); err != nil {
				o.metrics.SessionEvents.WithLabelValues("archive_save_failed").Inc()
				return
			}
		}
	}()
}

// DrainArchives blocks until every in-flight archive save has finished, or
// ctx expires. Called on shutdown so pending saves are not cut off when the
// store closes.
func (o *Orchestrator) DrainArchives(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.archiveWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
