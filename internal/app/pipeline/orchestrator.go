// Package pipeline turns tutor text into a spoken response and student audio
// into text, using the artifact cache and the speech providers.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"tutor-voice-server/internal/domain/asr"
	"tutor-voice-server/internal/domain/cachekey"
	"tutor-voice-server/internal/domain/eventbus"
	"tutor-voice-server/internal/domain/interaction"
	"tutor-voice-server/internal/domain/lipsync"
	"tutor-voice-server/internal/domain/tts"
	"tutor-voice-server/internal/domain/voicecache"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
	"tutor-voice-server/internal/platform/observability"
	"tutor-voice-server/internal/util/audio"
)

// LipSyncer produces cues for an audio clip and never fails.
type LipSyncer interface {
	Generate(ctx context.Context, data []byte, format string) lipsync.Result
	Available() bool
}

// Config holds defaults and stage budgets.
type Config struct {
	Language         string
	MaxTextLength    int
	SynthesisTimeout time.Duration
	LipSyncTimeout   time.Duration
	TotalTimeout     time.Duration
	RecorderTimeout  time.Duration

	ListenLanguage string
	ListenLimits   asr.Limits
}

// Dependencies are the collaborators of an Orchestrator. Transcriber, Recorder
// and Events are optional.
type Dependencies struct {
	Synthesizer tts.Synthesizer
	LipSync     LipSyncer
	Transcriber asr.Transcriber
	Cache       *voicecache.Cache
	Coordinator *Coordinator
	Recorder    interaction.Recorder
	Events      eventbus.Publisher
	Logger      *logging.Logger
}

// SpeakRequest asks for a spoken rendition of Text. Empty voice parameters use
// the configured defaults. UseCache defaults to true.
type SpeakRequest struct {
	Text     string
	Voice    string
	Model    string
	Language string
	UseCache *bool

	SubjectID string
	SessionID string
	Category  string
}

// SpeakResponse is a complete spoken response.
type SpeakResponse struct {
	Audio           []byte
	Format          string
	LipSync         lipsync.Sequence
	DurationSeconds float64
	CacheHit        bool
	LipSyncDegraded bool
	Voice           string
	Model           string
	Language        string
	CacheKey        string
}

// ListenRequest carries a recorded student answer.
type ListenRequest struct {
	Audio     []byte
	Format    string
	Language  string
	Prompt    string
	SessionID string
}

// ListenResponse is the transcription of a ListenRequest.
type ListenResponse struct {
	Text                    string
	Language                string
	DurationEstimateSeconds float64
	Segments                []asr.Segment
}

// Orchestrator is the voice pipeline entry point used by the HTTP handlers.
type Orchestrator struct {
	cfg         Config
	synth       tts.Synthesizer
	lipsync     LipSyncer
	transcriber asr.Transcriber
	cache       *voicecache.Cache
	coord       *Coordinator
	recorder    interaction.Recorder
	events      eventbus.Publisher
	logger      *logging.Logger
	now         func() time.Time
}

// New 创建语音管线
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Synthesizer == nil {
		return nil, errors.New(errors.KindConfig, "pipeline.new", "synthesizer is required")
	}
	if deps.LipSync == nil {
		return nil, errors.New(errors.KindConfig, "pipeline.new", "lip-sync service is required")
	}
	if deps.Cache == nil {
		return nil, errors.New(errors.KindConfig, "pipeline.new", "artifact cache is required")
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 30 * time.Second
	}
	if cfg.LipSyncTimeout <= 0 {
		cfg.LipSyncTimeout = 20 * time.Second
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = 60 * time.Second
	}
	if cfg.RecorderTimeout <= 0 {
		cfg.RecorderTimeout = 2 * time.Second
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = tts.DefaultMaxTextLength
	}
	if deps.Coordinator == nil {
		deps.Coordinator = NewCoordinator(cfg.TotalTimeout)
	}
	if deps.Recorder == nil {
		deps.Recorder = interaction.Discard
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	return &Orchestrator{
		cfg:         cfg,
		synth:       deps.Synthesizer,
		lipsync:     deps.LipSync,
		transcriber: deps.Transcriber,
		cache:       deps.Cache,
		coord:       deps.Coordinator,
		recorder:    deps.Recorder,
		events:      deps.Events,
		logger:      deps.Logger,
		now:         time.Now,
	}, nil
}

// speakRun tracks one Speak invocation.
type speakRun struct {
	key   string
	state State
	opts  tts.Options
	lang  string
}

func (o *Orchestrator) transition(run *speakRun, next State) {
	o.logger.DebugTag("Pipeline", "speak %s: %s -> %s", shortKey(run.key), run.state, next)
	run.state = next
}

// produced is the value shared between coalesced callers.
type produced struct {
	artifact  *voicecache.Artifact
	fromCache bool
}

// Speak returns audio, lip-sync cues and timing for req.Text.
func (o *Orchestrator) Speak(ctx context.Context, req SpeakRequest) (resp *SpeakResponse, err error) {
	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.TotalTimeout)
	defer cancel()

	ctx, finish := observability.StartSpan(ctx, "pipeline", "speak")
	run := &speakRun{state: StateRequested}
	defer func() {
		finish(err)
		o.complete(ctx, run, req, resp, err, start)
	}()

	if err := tts.ValidateText(req.Text, o.cfg.MaxTextLength); err != nil {
		return nil, err
	}

	run.opts = tts.Merge(tts.Options{Voice: req.Voice, Model: req.Model}, o.synth.Defaults())
	run.lang = req.Language
	if run.lang == "" {
		run.lang = o.cfg.Language
	}
	normalized, key := cachekey.For(req.Text, run.opts.Voice, run.opts.Model, run.lang)
	run.key = key
	o.transition(run, StateKeyDerived)

	if req.UseCache != nil && !*req.UseCache {
		o.transition(run, StateCacheMissSynthesizing)
		a, err := o.produce(ctx, run, req.Text, normalized)
		if err != nil {
			return nil, err
		}
		return toResponse(a, false), nil
	}

	cached, lookupErr := o.cache.Lookup(ctx, key)
	o.transition(run, StateCacheProbed)
	if lookupErr == nil {
		o.transition(run, StateCacheHit)
		return toResponse(cached, true), nil
	}
	if !stderrors.Is(lookupErr, voicecache.ErrNotFound) {
		o.logger.WarnTag("Pipeline", "cache probe for %s failed, treating as miss: %v", shortKey(key), lookupErr)
	}

	o.transition(run, StateCacheMissSynthesizing)
	opts, lang := run.opts, run.lang
	val, shared, err := o.coord.RunExclusive(ctx, key, func(fctx context.Context) (interface{}, error) {
		if a, err := o.cache.Recheck(fctx, key); err == nil {
			return &produced{artifact: a, fromCache: true}, nil
		}
		// the computation may outlive this caller, so it tracks its own state
		leader := &speakRun{key: key, state: StateCacheMissSynthesizing, opts: opts, lang: lang}
		a, err := o.produce(fctx, leader, req.Text, normalized)
		if err != nil {
			return nil, err
		}
		o.store(fctx, a)
		return &produced{artifact: a}, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && stderrors.Is(err, ctxErr) {
			return nil, errors.WrapAs(errors.KindDependency, "pipeline.speak",
				fmt.Sprintf("speak %s abandoned", shortKey(key)), err)
		}
		return nil, err
	}
	if shared {
		o.logger.DebugTag("Pipeline", "speak %s joined an in-flight computation", shortKey(key))
	}

	p := val.(*produced)
	return toResponse(p.artifact, p.fromCache), nil
}

// produce synthesizes and lip-syncs one artifact. Only synthesis can fail.
func (o *Orchestrator) produce(ctx context.Context, run *speakRun, text, normalized string) (*voicecache.Artifact, error) {
	synthCtx, cancel := context.WithTimeout(ctx, o.cfg.SynthesisTimeout)
	res, err := o.synth.Synthesize(synthCtx, text, run.opts)
	cancel()
	if err != nil {
		if errors.IsKind(err, errors.KindValidation) {
			return nil, err
		}
		return nil, errors.WrapAs(errors.KindDependency, "pipeline.synthesize",
			fmt.Sprintf("synthesis via %s failed for %s", o.synth.Name(), shortKey(run.key)), err)
	}

	o.transition(run, StateLipSyncing)
	lsCtx, cancel := context.WithTimeout(ctx, o.cfg.LipSyncTimeout)
	ls := o.lipsync.Generate(lsCtx, res.Audio, res.Format)
	cancel()
	if ls.Degraded {
		o.publish(eventbus.EventLipSyncDegraded, eventbus.SpeakEventData{
			CacheKey: run.key,
			Voice:    run.opts.Voice,
			Model:    run.opts.Model,
			Degraded: true,
			Error:    ls.Reason,
		})
	}

	voice, model := res.Voice, res.Model
	if voice == "" {
		voice = run.opts.Voice
	}
	if model == "" {
		model = run.opts.Model
	}

	return &voicecache.Artifact{
		Key:             run.key,
		OriginalText:    text,
		NormalizedText:  normalized,
		Voice:           voice,
		Model:           model,
		Language:        run.lang,
		Format:          res.Format,
		Audio:           res.Audio,
		DurationSeconds: ls.Sequence.Duration,
		Cues:            ls.Sequence.Cues,
		LipSyncDegraded: ls.Degraded,
	}, nil
}

// store writes a to the cache. A failed write never fails the request.
func (o *Orchestrator) store(ctx context.Context, a *voicecache.Artifact) {
	if err := o.cache.Store(ctx, a); err != nil {
		o.logger.ErrorTag("Pipeline", "cache write for %s failed: %v", shortKey(a.Key), err)
		o.publish(eventbus.EventCacheWriteFailed, eventbus.CacheEventData{
			CacheKey: a.Key,
			Driver:   o.cache.Driver(),
			Error:    err.Error(),
		})
	}
}

// complete moves run into its terminal state, then records and publishes it.
func (o *Orchestrator) complete(ctx context.Context, run *speakRun, req SpeakRequest, resp *SpeakResponse, err error, start time.Time) {
	latency := o.now().Sub(start).Milliseconds()

	rec := interaction.Record{
		SubjectID:    req.SubjectID,
		SessionID:    req.SessionID,
		Category:     req.Category,
		ResponseText: req.Text,
		Voice:        run.opts.Voice,
		Model:        run.opts.Model,
		Language:     run.lang,
		CacheKey:     run.key,
		LatencyMs:    latency,
		CreatedAt:    start.UTC(),
	}
	event := eventbus.SpeakEventData{
		CacheKey:  run.key,
		SubjectID: req.SubjectID,
		SessionID: req.SessionID,
		Voice:     run.opts.Voice,
		Model:     run.opts.Model,
		LatencyMs: latency,
	}

	if err != nil {
		o.transition(run, StateFailed)
		rec.Outcome = interaction.OutcomeFailed
		rec.ErrorKind = string(errors.KindOf(err))
		event.ErrorKind = rec.ErrorKind
		event.Error = errors.MessageOf(err)
		o.logger.WarnTag("Pipeline", "speak %s failed: %v", shortKey(run.key), err)
		o.publish(eventbus.EventSpeakFailed, event)
	} else {
		o.transition(run, StateCompleted)
		rec.Outcome = interaction.OutcomeCompleted
		rec.AudioDurationSeconds = resp.DurationSeconds
		rec.Voice, rec.Model = resp.Voice, resp.Model
		rec.CacheHit = resp.CacheHit
		rec.LipSyncProduced = !resp.LipSyncDegraded
		event.Voice, event.Model = resp.Voice, resp.Model
		event.CacheHit = resp.CacheHit
		event.Degraded = resp.LipSyncDegraded
		o.publish(eventbus.EventSpeakCompleted, event)
		observability.RecordMetric(ctx, "pipeline.speak_latency_ms", float64(latency),
			map[string]string{"cache_hit": fmt.Sprintf("%t", resp.CacheHit)})
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.RecorderTimeout)
	defer cancel()
	if rerr := o.recorder.Record(recCtx, rec); rerr != nil {
		o.logger.WarnTag("Pipeline", "interaction record for %s failed: %v", shortKey(run.key), rerr)
	}
}

// Listen transcribes a recorded answer.
func (o *Orchestrator) Listen(ctx context.Context, req ListenRequest) (*ListenResponse, error) {
	if err := asr.Validate(req.Audio, o.cfg.ListenLimits); err != nil {
		return nil, err
	}
	if o.transcriber == nil {
		return nil, errors.New(errors.KindDependency, "pipeline.listen", "transcription is not configured")
	}

	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.TotalTimeout)
	defer cancel()
	ctx, finish := observability.StartSpan(ctx, "pipeline", "listen")

	format := req.Format
	if format == "" {
		format = audio.Sniff(req.Audio)
	}
	lang := req.Language
	if lang == "" {
		lang = o.cfg.ListenLanguage
	}

	res, err := o.transcriber.Transcribe(ctx, req.Audio, asr.Options{Language: lang, Format: format, Prompt: req.Prompt})
	finish(err)
	if err != nil {
		if !errors.IsKind(err, errors.KindValidation) {
			err = errors.Wrap(errors.KindDependency, "pipeline.listen",
				fmt.Sprintf("transcription via %s failed", o.transcriber.Name()), err)
		}
		o.logger.WarnTag("Pipeline", "listen failed: %v", err)
		return nil, err
	}

	duration := res.Duration
	if duration <= 0 {
		duration = audio.Estimate(req.Audio, format)
	}
	if res.Language != "" {
		lang = res.Language
	}
	segments := res.Segments
	if segments == nil {
		segments = []asr.Segment{}
	}

	latency := o.now().Sub(start).Milliseconds()
	o.publish(eventbus.EventListenCompleted, eventbus.ListenEventData{
		SessionID: req.SessionID,
		Bytes:     len(req.Audio),
		Duration:  duration,
		LatencyMs: latency,
	})

	return &ListenResponse{
		Text:                    res.Text,
		Language:                lang,
		DurationEstimateSeconds: duration,
		Segments:                segments,
	}, nil
}

// SynthesisAvailable checks the speech provider.
func (o *Orchestrator) SynthesisAvailable(ctx context.Context) error {
	return o.synth.HealthCheck(ctx)
}

// LipSyncAvailable reports whether the viseme tool can run.
func (o *Orchestrator) LipSyncAvailable() bool {
	return o.lipsync.Available()
}

// InFlight is the number of running coalesced computations.
func (o *Orchestrator) InFlight() int64 {
	return o.coord.InFlight()
}

func (o *Orchestrator) publish(topic string, data interface{}) {
	if o.events != nil {
		o.events.PublishAsync(topic, data)
	}
}

func toResponse(a *voicecache.Artifact, hit bool) *SpeakResponse {
	cues := a.Cues
	if cues == nil {
		cues = []lipsync.Cue{}
	}
	return &SpeakResponse{
		Audio:           a.Audio,
		Format:          a.Format,
		LipSync:         lipsync.Sequence{Duration: a.DurationSeconds, Cues: cues},
		DurationSeconds: a.DurationSeconds,
		CacheHit:        hit,
		LipSyncDegraded: a.LipSyncDegraded,
		Voice:           a.Voice,
		Model:           a.Model,
		Language:        a.Language,
		CacheKey:        a.Key,
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	if key == "" {
		return "-"
	}
	return key
}
