// Package tts converts text to MP3 speech.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"alttext-server-go/internal/platform/errors"
	"alttext-server-go/internal/platform/logging"
	"alttext-server-go/internal/platform/observability"
)

// Speech is synthesized audio.
type Speech struct {
	Audio    []byte
	Format   string
	Duration time.Duration
}

// Engine renders text with a voice into MP3 bytes.
type Engine interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	Name() string
}

// ErrNoText is returned for blank input.
var ErrNoText = errors.New(errors.KindValidation, "tts.speak", "No text provided")

// Service caches recent renderings and stops calling a failing engine
// for a while.
type Service struct {
	engine  Engine
	voice   string
	cache   *audioCache
	breaker *breaker
	logger  *logging.Logger
}

type Options struct {
	Voice     string
	CacheSize int
	CacheTTL  time.Duration
	// MaxFailures opens the breaker; RetryAfter closes it again.
	MaxFailures int
	RetryAfter  time.Duration
}

func NewService(engine Engine, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Voice == "" {
		opts.Voice = "en-US-AriaNeural"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 30 * time.Second
	}
	return &Service{
		engine:  engine,
		voice:   opts.Voice,
		cache:   newAudioCache(opts.CacheSize, opts.CacheTTL),
		breaker: &breaker{maxFailures: opts.MaxFailures, retryAfter: opts.RetryAfter},
		logger:  logger,
	}
}

// Speak synthesizes text with the configured voice.
func (s *Service) Speak(ctx context.Context, text string) (speech *Speech, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	ctx, end := observability.StartSpan(ctx, "tts", s.engine.Name())
	defer func() { end(err) }()

	key := s.voice + "|" + text
	if audio := s.cache.get(key); audio != nil {
		return s.speech(audio), nil
	}
	if s.breaker.isOpen() {
		return nil, errors.New(errors.KindPlatform, "tts.speak", "speech engine unavailable")
	}

	start := time.Now()
	audio, err := s.engine.Synthesize(ctx, text, s.voice)
	if err == nil && len(audio) == 0 {
		err = fmt.Errorf("engine returned no audio")
	}
	if err != nil {
		s.breaker.recordFailure()
		s.logger.ErrorTag("TTS", "synthesis failed: %v", err)
		return nil, errors.Wrap(errors.KindPlatform, "tts.speak", "synthesis failed", err)
	}
	s.breaker.recordSuccess()
	s.cache.set(key, audio)
	s.logger.DebugTag("TTS", "synthesized %d chars in %s (%d bytes)", len(text), time.Since(start), len(audio))
	return s.speech(audio), nil
}

func (s *Service) speech(audio []byte) *Speech {
	sp := &Speech{Audio: audio, Format: "mp3"}
	if d, err := Duration(audio); err == nil {
		sp.Duration = d
	}
	return sp
}

// Duration decodes an MP3 stream and reports its playing time.
func Duration(audio []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	length := dec.Length()
	if length < 0 {
		// unknown length, count by draining
		n, err := io.Copy(io.Discard, dec)
		if err != nil {
			return 0, fmt.Errorf("decode mp3: %w", err)
		}
		length = n
	}
	if dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("decode mp3: invalid sample rate")
	}
	// 16-bit stereo PCM
	samples := length / 4
	return time.Duration(samples) * time.Second / time.Duration(dec.SampleRate()), nil
}
