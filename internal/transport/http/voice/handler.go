// Package voice exposes the voice pipeline over HTTP.
package voice

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tutor-voice-server/internal/app/health"
	"tutor-voice-server/internal/app/pipeline"
	"tutor-voice-server/internal/domain/asr"
	"tutor-voice-server/internal/domain/interaction"
	"tutor-voice-server/internal/domain/lipsync"
	"tutor-voice-server/internal/domain/voicecache"
	"tutor-voice-server/internal/platform/errors"
	"tutor-voice-server/internal/platform/logging"
	httptransport "tutor-voice-server/internal/transport/http"
)

// Pipeline is the orchestrator as seen by the handlers.
type Pipeline interface {
	Speak(ctx context.Context, req pipeline.SpeakRequest) (*pipeline.SpeakResponse, error)
	Listen(ctx context.Context, req pipeline.ListenRequest) (*pipeline.ListenResponse, error)
}

// HealthChecker produces the health report.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// CacheStats reports artifact cache statistics.
type CacheStats interface {
	Stats(ctx context.Context) (voicecache.Stats, error)
}

// InteractionLog lists recorded interactions.
type InteractionLog interface {
	Recent(ctx context.Context, limit int) ([]interaction.Record, error)
	Summary(ctx context.Context) (interaction.Summary, error)
}

// Handler serves /api/voice. Health, Cache and Interactions are optional.
type Handler struct {
	pipeline      Pipeline
	health        HealthChecker
	cache         CacheStats
	interactions  InteractionLog
	maxAudioBytes int
	logger        *logging.Logger
}

// Options wires the handler collaborators.
type Options struct {
	Pipeline      Pipeline
	Health        HealthChecker
	Cache         CacheStats
	Interactions  InteractionLog
	MaxAudioBytes int
	Logger        *logging.Logger
}

// NewHandler 创建语音接口处理器
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = 25 * 1024 * 1024
	}
	return &Handler{
		pipeline:      opts.Pipeline,
		health:        opts.Health,
		cache:         opts.Cache,
		interactions:  opts.Interactions,
		maxAudioBytes: opts.MaxAudioBytes,
		logger:        opts.Logger,
	}
}

// RegisterRoutes 注册语音相关路由
func (h *Handler) RegisterRoutes(router *httptransport.Router) {
	group := router.API.Group("/voice")
	group.POST("/speak", h.Speak)
	group.POST("/listen", h.Listen)
	group.GET("/health", h.Health)
	group.GET("/cache/stats", h.CacheStats)
	group.GET("/interactions", h.Interactions)
}

// SpeakBody is the JSON body of POST /speak.
type SpeakBody struct {
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	Model     string `json:"model"`
	Language  string `json:"language"`
	UseCache  *bool  `json:"use_cache"`
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id"`
	Category  string `json:"category"`
}

// LipSyncPayload is the cue track of a spoken response.
type LipSyncPayload struct {
	Duration float64       `json:"duration"`
	Cues     []lipsync.Cue `json:"cues"`
}

// SpeakPayload is the data of a successful POST /speak.
type SpeakPayload struct {
	AudioBase64     string         `json:"audio_base64"`
	Format          string         `json:"format"`
	LipSync         LipSyncPayload `json:"lip_sync"`
	DurationSeconds float64        `json:"duration_seconds"`
	CacheHit        bool           `json:"cache_hit"`
	LipSyncDegraded bool           `json:"lip_sync_degraded"`
	Voice           string         `json:"voice"`
	Model           string         `json:"model"`
}

// ListenPayload is the data of a successful POST /listen.
type ListenPayload struct {
	Text                    string        `json:"text"`
	Language                string        `json:"language"`
	DurationEstimateSeconds float64       `json:"duration_estimate_seconds"`
	Segments                []asr.Segment `json:"segments"`
}

// Speak 合成语音
// @Summary Speak text
// @Description Synthesizes the text (or serves it from cache) and returns base64 audio with lip-sync cues
// @Tags Voice
// @Accept json
// @Produce json
// @Param request body SpeakBody true "speak request"
// @Success 200 {object} SpeakPayload
// @Failure 400 {object} httptransport.APIResponse
// @Failure 503 {object} httptransport.APIResponse
// @Router /voice/speak [post]
func (h *Handler) Speak(c *gin.Context) {
	var body SpeakBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", gin.H{"kind": string(errors.KindValidation)})
		return
	}

	resp, err := h.pipeline.Speak(c.Request.Context(), pipeline.SpeakRequest{
		Text:      body.Text,
		Voice:     body.Voice,
		Model:     body.Model,
		Language:  body.Language,
		UseCache:  body.UseCache,
		SubjectID: body.SubjectID,
		SessionID: body.SessionID,
		Category:  body.Category,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	cues := resp.LipSync.Cues
	if cues == nil {
		cues = []lipsync.Cue{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, SpeakPayload{
		AudioBase64:     base64.StdEncoding.EncodeToString(resp.Audio),
		Format:          resp.Format,
		LipSync:         LipSyncPayload{Duration: resp.LipSync.Duration, Cues: cues},
		DurationSeconds: resp.DurationSeconds,
		CacheHit:        resp.CacheHit,
		LipSyncDegraded: resp.LipSyncDegraded,
		Voice:           resp.Voice,
		Model:           resp.Model,
	}, "")
}

// Listen 语音转写
// @Summary Transcribe audio
// @Description Transcribes a recorded answer sent as multipart field audio or as a raw audio body
// @Tags Voice
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file false "recorded audio"
// @Param language query string false "language tag"
// @Success 200 {object} ListenPayload
// @Failure 400 {object} httptransport.APIResponse
// @Failure 413 {object} httptransport.APIResponse
// @Failure 503 {object} httptransport.APIResponse
// @Router /voice/listen [post]
func (h *Handler) Listen(c *gin.Context) {
	data, format, err := h.readAudio(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	language := c.Query("language")
	if language == "" {
		language = c.PostForm("language")
	}

	resp, err := h.pipeline.Listen(c.Request.Context(), pipeline.ListenRequest{
		Audio:     data,
		Format:    format,
		Language:  language,
		Prompt:    c.PostForm("prompt"),
		SessionID: c.Query("session_id"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	httptransport.RespondSuccess(c, http.StatusOK, ListenPayload{
		Text:                    resp.Text,
		Language:                resp.Language,
		DurationEstimateSeconds: resp.DurationEstimateSeconds,
		Segments:                resp.Segments,
	}, "")
}

// readAudio reads at most maxAudioBytes+1 bytes so the size check in the
// pipeline can tell an exact-limit upload from an oversized one.
func (h *Handler) readAudio(c *gin.Context) ([]byte, string, error) {
	limit := int64(h.maxAudioBytes) + 1
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))

	if mediaType == "multipart/form-data" {
		fh, err := c.FormFile("audio")
		if err != nil {
			return nil, "", errors.Wrap(errors.KindValidation, "voice.listen.form", "multipart field audio is required", asr.ErrEmptyAudio)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", errors.Wrap(errors.KindValidation, "voice.listen.form", "cannot read uploaded audio", err)
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, limit))
		if err != nil {
			return nil, "", errors.Wrap(errors.KindValidation, "voice.listen.form", "cannot read uploaded audio", err)
		}
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
		if format == "" {
			ct, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
			format = formatFromMediaType(ct)
		}
		return data, format, nil
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		return nil, "", errors.Wrap(errors.KindValidation, "voice.listen.body", "cannot read request body", err)
	}
	return data, formatFromMediaType(mediaType), nil
}

func formatFromMediaType(mediaType string) string {
	if !strings.HasPrefix(mediaType, "audio/") {
		return ""
	}
	switch sub := strings.TrimPrefix(mediaType, "audio/"); sub {
	case "mpeg", "mp3":
		return "mp3"
	case "wav", "wave", "x-wav", "vnd.wave":
		return "wav"
	case "x-m4a", "mp4":
		return "m4a"
	default:
		return sub
	}
}

// Health 健康检查
// @Summary Dependency health
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /voice/health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		httptransport.RespondError(c, http.StatusNotFound, "health probe not configured", nil)
		return
	}
	report := h.health.Check(c.Request.Context())
	httptransport.RespondSuccess(c, http.StatusOK, report, report.Status)
}

// CacheStats 缓存统计
// @Summary Artifact cache statistics
// @Tags Diagnostics
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /voice/cache/stats [get]
func (h *Handler) CacheStats(c *gin.Context) {
	if h.cache == nil {
		httptransport.RespondError(c, http.StatusNotFound, "cache not configured", nil)
		return
	}
	st, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		h.logger.WarnTag("HTTP", "cache stats failed: %v", err)
		httptransport.RespondErr(c, http.StatusServiceUnavailable, errors.Wrap(errors.KindDependency, "voice.cache_stats", "cache store unreachable", err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, st, "")
}

// Interactions 最近交互记录
// @Summary Recent interactions
// @Tags Diagnostics
// @Produce json
// @Param limit query int false "max records"
// @Success 200 {object} httptransport.APIResponse
// @Router /voice/interactions [get]
func (h *Handler) Interactions(c *gin.Context) {
	if h.interactions == nil {
		httptransport.RespondError(c, http.StatusNotFound, "interaction log not configured", nil)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	records, err := h.interactions.Recent(ctx, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	summary, err := h.interactions.Summary(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"records": records, "summary": summary}, "")
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := httptransport.StatusFor(err)
	if stderrors.Is(err, asr.ErrPayloadTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorTag("HTTP", "%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	httptransport.RespondErr(c, status, err)
}
