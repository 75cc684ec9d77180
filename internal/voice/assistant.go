// Package voice chains speech recognition, interpretation, pointing and
// announcement into one assistant.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/intent"
	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/stt"
	"github.com/star/starseeker/internal/tts"
)

// Pointer runs one pointing request.
type Pointer interface {
	Point(ctx context.Context, req sky.Request, opts pointing.Options) (pointing.Result, error)
}

// Outcome describes one handled request.
type Outcome struct {
	Transcript string           `json:"transcript"`
	Request    *sky.Request     `json:"request,omitempty"`
	Result     *pointing.Result `json:"result,omitempty"`
	Message    string           `json:"message"`
	Kind       string           `json:"kind"`
}

// Assistant runs spoken or typed requests through transcription,
// interpretation and pointing, then announces the outcome. Its methods are
// safe for concurrent use when the collaborators are.
type Assistant struct {
	source    audio.Source
	stt       stt.Transcriber
	intent    intent.Interpreter
	pointer   Pointer
	announcer tts.Announcer
	transmit  bool
	logger    *slog.Logger
}

// NewAssistant wires the collaborators. source may be nil when only
// HandleText and HandleClip are used. transmit decides whether transcribed
// clips move the mount; HandleText takes its own flag.
func NewAssistant(
	source audio.Source,
	transcriber stt.Transcriber,
	interpreter intent.Interpreter,
	pointer Pointer,
	announcer tts.Announcer,
	transmit bool,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		source:    source,
		stt:       transcriber,
		intent:    interpreter,
		pointer:   pointer,
		announcer: announcer,
		transmit:  transmit,
		logger:    logger,
	}
}

// Run handles clips from the audio source until ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	if a.source == nil {
		return errors.New("voice assistant has no audio source")
	}
	a.logger.Info("voice assistant listening", "component", "voice", "source", a.source.Name())
	for {
		clip, err := a.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Error("reading audio", "component", "voice", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if _, err := a.HandleClip(ctx, clip); err != nil {
			a.logger.Warn("voice request failed", "component", "voice", "clip", clip.Name, "error", err)
		}
	}
}

// HandleClip transcribes clip and handles the text.
func (a *Assistant) HandleClip(ctx context.Context, clip audio.Clip) (Outcome, error) {
	start := time.Now()
	text, err := a.stt.Transcribe(ctx, clip)
	metrics.ObserveVoiceStage("stt", time.Since(start))
	if err != nil {
		out := Outcome{Kind: sky.KindOf(err), Message: "Sorry, I did not understand that."}
		a.announce(ctx, out.Message)
		return out, fmt.Errorf("transcribing: %w", err)
	}
	a.logger.Info("transcribed", "component", "voice", "clip", clip.Name, "text", text)
	return a.HandleText(ctx, text, a.transmit)
}

// HandleText interprets text, points and announces the outcome.
func (a *Assistant) HandleText(ctx context.Context, text string, transmit bool) (Outcome, error) {
	out := Outcome{Transcript: text}

	start := time.Now()
	req, err := a.intent.Interpret(ctx, text)
	metrics.ObserveVoiceStage("intent", time.Since(start))
	if err != nil {
		out.Kind = sky.KindOf(err)
		out.Message = describeFailure(sky.Request{}, err)
		a.announce(ctx, out.Message)
		return out, fmt.Errorf("interpreting: %w", err)
	}
	out.Request = &req

	start = time.Now()
	res, err := a.pointer.Point(ctx, req, pointing.Options{Transmit: transmit, Source: "voice", Transcript: text})
	metrics.ObserveVoiceStage("point", time.Since(start))
	out.Kind = sky.KindOf(err)
	if err != nil {
		out.Message = describeFailure(req, err)
		a.announce(ctx, out.Message)
		return out, err
	}
	out.Result = &res
	out.Message = describe(req, res)

	start = time.Now()
	a.announce(ctx, out.Message)
	metrics.ObserveVoiceStage("announce", time.Since(start))
	return out, nil
}

func (a *Assistant) announce(ctx context.Context, text string) {
	if a.announcer == nil {
		return
	}
	if err := a.announcer.Announce(ctx, text); err != nil {
		a.logger.Warn("announcement failed", "component", "voice", "error", err)
	}
}

func describe(req sky.Request, res pointing.Result) string {
	if res.BelowHorizon {
		return fmt.Sprintf("%s is below the horizon at %.0f degrees altitude.", req.Name, res.Raw.AltitudeDeg)
	}
	return fmt.Sprintf("Pointing at %s: azimuth %.0f degrees, altitude %.0f degrees.",
		req.Name, res.Raw.AzimuthDeg, res.Raw.AltitudeDeg)
}

func describeFailure(req sky.Request, err error) string {
	switch sky.KindOf(err) {
	case sky.KindUnknownObject:
		return fmt.Sprintf("I could not find %s.", req.Name)
	case sky.KindUnknownCategory, sky.KindMalformedRequest:
		return "Sorry, I did not understand which object you mean."
	case sky.KindReferenceDataUnavailable:
		return "The position data is not available right now."
	case sky.KindTransmitFailed:
		return fmt.Sprintf("I found %s but could not move the mount.", req.Name)
	default:
		return "Something went wrong."
	}
}
