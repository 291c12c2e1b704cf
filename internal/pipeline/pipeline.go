// Package pipeline sequences one screenshot-to-speech cycle.
//
// A run walks capture → locate → isolate → recognize → voice assignment →
// cache/synthesis → playback. Runs are single-flight: a trigger while a run
// is in progress is rejected with [ErrBusy] instead of queueing, because a
// second screenshot of the same dialog adds nothing. Every run terminates
// with an explicit recognition result; collaborator failures degrade to the
// not-found sentinel or an error-tagged result, never to a panic or a
// missing answer.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/lorespeaker/internal/audiocache"
	"github.com/MrWong99/lorespeaker/internal/capture"
	"github.com/MrWong99/lorespeaker/internal/config"
	"github.com/MrWong99/lorespeaker/internal/isolate"
	"github.com/MrWong99/lorespeaker/internal/locate"
	"github.com/MrWong99/lorespeaker/internal/observe"
	"github.com/MrWong99/lorespeaker/internal/recognize"
	"github.com/MrWong99/lorespeaker/internal/voice"
	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
	"github.com/MrWong99/lorespeaker/pkg/provider/vision"
)

// ErrBusy is returned when a run is triggered while another is in flight.
var ErrBusy = errors.New("pipeline: run already in progress")

// repeatSimilarity is the Jaro-Winkler score above which newly recognized
// text counts as a repeat of the previous run. OCR output jitters by a few
// characters between screenshots of the same dialog, so exact comparison is
// not enough.
const repeatSimilarity = 0.92

// repeatWindow is how long after a clip was spoken that near-identical text
// is suppressed. A dialog box usually stays on screen for several seconds,
// so an accidental double trigger reads the same text twice in a row.
// Outside the window a repeat is legitimate (the player reopened the quest)
// and is spoken again, straight from the cache.
const repeatWindow = 10 * time.Second

// Debug artifact file names, consumed by the calibration UI.
const (
	debugDetectionFile = "debug_detection_view.png"
	debugOCRInputFile  = "debug_ocr_input.png"
)

// Locator finds the dialog region in a frame.
type Locator interface {
	Locate(frame image.Image, pad locate.Padding) (locate.Region, error)
}

// SpeakerSource names the NPC currently speaking.
type SpeakerSource interface {
	LatestSpeaker() (name, gender string)
}

// AudioPlayer plays a finished clip from disk.
type AudioPlayer interface {
	Play(path string) error
}

// Deps bundles the collaborators of a [Pipeline].
type Deps struct {
	Config   *config.Store
	Frames   capture.Source
	Locator  Locator
	Vision   vision.Transcriber // nil when no AI vision backend is configured
	Synth    tts.Synthesizer
	Assigner *voice.Assigner
	Cache    *audiocache.Cache
	Speakers SpeakerSource
	Player   AudioPlayer
	Metrics  *observe.Metrics
}

// RunOptions control a single pipeline run.
type RunOptions struct {
	// SkipAudio short-circuits after recognition, returning text without
	// voice assignment, synthesis or playback.
	SkipAudio bool
}

// Pipeline executes screenshot-to-speech cycles.
type Pipeline struct {
	deps Deps
	log  *slog.Logger

	mu         sync.Mutex // held for the whole duration of one run
	lastText   string     // most recently spoken text, guarded by mu
	lastSpoken time.Time  // when lastText was spoken, guarded by mu
}

// New creates a Pipeline. Metrics defaults to [observe.DefaultMetrics].
func New(deps Deps) *Pipeline {
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	return &Pipeline{
		deps: deps,
		log:  slog.With("component", "pipeline"),
	}
}

// Run executes one full cycle and returns the recognition result. It
// returns [ErrBusy] without doing any work when another run holds the
// pipeline.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (recognize.Result, error) {
	if !p.mu.TryLock() {
		return recognize.Result{}, ErrBusy
	}
	defer p.mu.Unlock()

	start := time.Now()
	res := p.run(ctx, opts)

	outcome := "spoken"
	switch {
	case res.NotFound():
		outcome = "no_text"
	case res.Source == recognize.SourceError:
		outcome = "error"
	}
	p.deps.Metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("outcome", outcome)))
	p.deps.Metrics.RecordRecognition(ctx, string(res.Source))
	return res, nil
}

// notFound is the uniform terminal result for pre-recognition failures.
func notFound() recognize.Result {
	return recognize.Result{Text: recognize.NoTextFound, Source: recognize.SourceSystem}
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions) recognize.Result {
	snap := p.deps.Config.Snapshot()

	// Capture.
	stageStart := time.Now()
	frame, err := p.deps.Frames.Capture(ctx, snap.MonitorIndex)
	if err != nil {
		p.log.Warn("frame capture failed", "monitor", snap.MonitorIndex, "error", err)
		return notFound()
	}
	p.deps.Metrics.RecordStage(ctx, "capture", time.Since(stageStart).Seconds())

	// Locate.
	stageStart = time.Now()
	region, err := p.deps.Locator.Locate(frame, locate.Padding{
		Top:    snap.PaddingTop,
		Bottom: snap.PaddingBottom,
		Left:   snap.PaddingLeft,
		Right:  snap.PaddingRight,
	})
	if err != nil {
		if !errors.Is(err, locate.ErrNotFound) {
			p.log.Warn("region localization failed", "error", err)
		}
		return notFound()
	}
	p.deps.Metrics.RecordStage(ctx, "locate", time.Since(stageStart).Seconds())

	crop := imaging.Crop(frame, region.Rect())
	if snap.DebugMode {
		p.saveDebugArtifact(debugDetectionFile, locate.Annotate(frame, region))
	}

	// Recognize. The AI path gets the raw crop; classical OCR gets the
	// binarized image. The two are deliberately different inputs.
	res := p.recognizeCrop(ctx, snap, crop)
	if res.NotFound() || res.Source == recognize.SourceError || opts.SkipAudio {
		return res
	}

	return p.speak(ctx, snap, res)
}

// recognizeCrop selects the recognition engine from the config snapshot and
// runs it over the prepared input.
func (p *Pipeline) recognizeCrop(ctx context.Context, snap config.Config, crop image.Image) recognize.Result {
	stageStart := time.Now()
	defer func() {
		p.deps.Metrics.RecordStage(ctx, "recognize", time.Since(stageStart).Seconds())
	}()

	if snap.UseAIVision {
		if p.deps.Vision == nil {
			p.log.Warn("AI vision requested but not configured, using classical OCR")
		} else {
			if snap.DebugMode {
				p.saveDebugArtifact(debugOCRInputFile, crop)
			}
			res, err := recognize.NewVision(p.deps.Vision).Recognize(ctx, crop)
			if err != nil {
				p.log.Warn("vision recognition failed", "error", err)
				return notFound()
			}
			return res
		}
	}

	isoStart := time.Now()
	prepared := isolate.Isolate(crop)
	p.deps.Metrics.RecordStage(ctx, "isolate", time.Since(isoStart).Seconds())
	if snap.DebugMode {
		p.saveDebugArtifact(debugOCRInputFile, prepared)
	}

	classical := recognize.NewClassical(snap.OCRLanguage, snap.OCRPageSegMode, snap.OCRWhitelist)
	res, err := classical.Recognize(ctx, prepared)
	if err != nil {
		p.log.Warn("classical recognition failed", "error", err)
		return notFound()
	}
	return res
}

// speak resolves a voice, fetches or synthesizes the clip and plays it.
// Failures past recognition degrade to returning the text silently.
func (p *Pipeline) speak(ctx context.Context, snap config.Config, res recognize.Result) recognize.Result {
	if p.isRepeat(res.Text) {
		p.log.Debug("skipping repeated dialogue", "text", res.Text)
		return res
	}

	name, gender := p.deps.Speakers.LatestSpeaker()
	voiceID, method := p.deps.Assigner.Assign(ctx, name, gender)
	p.deps.Metrics.RecordVoiceAssignment(ctx, string(method))

	stageStart := time.Now()
	path, hit, err := p.deps.Cache.GetOrCreate(ctx, res.Text, voiceID, p.deps.Synth)
	if err != nil {
		p.log.Warn("audio synthesis failed", "npc", name, "error", err)
		p.deps.Metrics.RecordProviderError(ctx, "tts", "synthesize")
		return res
	}
	p.deps.Metrics.RecordStage(ctx, "synthesize", time.Since(stageStart).Seconds())
	p.deps.Metrics.RecordCacheLookup(ctx, hit)

	if delay := time.Duration(snap.AudioDelayMS) * time.Millisecond; delay > 0 {
		select {
		case <-ctx.Done():
			return res
		case <-time.After(delay):
		}
	}

	if err := p.deps.Player.Play(path); err != nil {
		p.log.Warn("audio playback failed", "path", path, "error", err)
		return res
	}
	p.lastText = res.Text
	p.lastSpoken = time.Now()
	p.log.Info("dialogue spoken", "npc", name, "voice_id", voiceID, "cache_hit", hit, "source", res.Source)
	return res
}

// isRepeat reports whether text is close enough to the recently spoken
// text to count as the same dialog read twice in quick succession.
func (p *Pipeline) isRepeat(text string) bool {
	if p.lastText == "" || time.Since(p.lastSpoken) >= repeatWindow {
		return false
	}
	return matchr.JaroWinkler(text, p.lastText, false) >= repeatSimilarity
}

// saveDebugArtifact writes a calibration image next to the working
// directory. Failures only log; debug output must never break a run.
func (p *Pipeline) saveDebugArtifact(name string, img image.Image) {
	if err := imaging.Save(img, name); err != nil {
		p.log.Warn("could not save debug artifact", "file", name, "error", err)
	}
}
