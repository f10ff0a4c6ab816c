// Package audio synthesizes pronunciation tracks through a streaming TTS
// provider and stores them as MP3 blobs. A failed track degrades to an
// ERROR-prefixed URL string instead of failing the whole entry.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

const (
	wordSpeed     = 0.85
	syllableSpeed = 0.7

	maxAttempts    = 3
	attemptTimeout = 30 * time.Second

	contentType = "audio/mpeg"
)

type synthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) (io.ReadCloser, error)
}

type blobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// Service produces the pronunciation artifacts for an entry.
type Service struct {
	log      *slog.Logger
	tts      synthesizer
	blobs    blobStore
	minBytes int64
	maxBytes int64

	backoff func(attempt int) time.Duration
}

// NewService creates an audio service. minBytes rejects placeholder-sized
// provider responses; maxBytes aborts runaway streams.
func NewService(log *slog.Logger, tts synthesizer, blobs blobStore, minBytes, maxBytes int64) *Service {
	return &Service{
		log:      log.With("service", "audio"),
		tts:      tts,
		blobs:    blobs,
		minBytes: minBytes,
		maxBytes: maxBytes,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1))*time.Second + rand.N(time.Second)
		},
	}
}

// Synthesize produces the word track, plus a slowed syllable track when the
// word has more than one syllable. Already-stored artifacts are returned
// unchanged. The error is always nil: synthesis failures come back as
// ERROR-prefixed URL strings.
func (s *Service) Synthesize(ctx context.Context, req tool.AudioRequest) (domain.Pronunciations, error) {
	wordKey := blobKey(req.Language, req.Word, "pronunciation")
	syllableKey := blobKey(req.Language, req.Word, "syllables")
	wantSyllables := len(req.Syllables) > 1

	if s.stored(ctx, wordKey) && (!wantSyllables || s.stored(ctx, syllableKey)) {
		pron := domain.Pronunciations{Audio: s.blobs.URL(wordKey)}
		if wantSyllables {
			pron.Syllables = s.blobs.URL(syllableKey)
		}
		s.log.InfoContext(ctx, "audio already stored", slog.String("word", req.Word))
		return pron, nil
	}

	pron := domain.Pronunciations{Audio: s.track(ctx, req.Word, wordSpeed, wordKey)}
	if wantSyllables {
		pron.Syllables = s.track(ctx, strings.Join(req.Syllables, " - "), syllableSpeed, syllableKey)
	}
	return pron, nil
}

func (s *Service) stored(ctx context.Context, key string) bool {
	ok, err := s.blobs.Exists(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "blob check failed",
			slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return ok
}

func (s *Service) track(ctx context.Context, text string, speed float64, key string) string {
	url, err := s.store(ctx, text, speed, key)
	if err != nil {
		s.log.ErrorContext(ctx, "audio synthesis failed",
			slog.String("key", key), slog.String("error", err.Error()))
		return "ERROR: " + err.Error()
	}
	s.log.InfoContext(ctx, "audio stored", slog.String("key", key))
	return url
}

func (s *Service) store(ctx context.Context, text string, speed float64, key string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(s.backoff(attempt - 1)):
			}
		}

		url, err := s.attempt(ctx, text, speed, key)
		if err == nil {
			return url, nil
		}
		lastErr = err
		s.log.WarnContext(ctx, "audio attempt failed",
			slog.Int("attempt", attempt), slog.String("error", err.Error()))
		if ctx.Err() != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (s *Service) attempt(ctx context.Context, text string, speed float64, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	stream, err := s.tts.Synthesize(ctx, text, speed)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	// The provider streams without a length header, so the size gates apply
	// as the body flows: too-small tracks are rejected before the upload
	// starts, too-large ones abort it mid-flight.
	head := make([]byte, s.minBytes)
	n, err := io.ReadFull(stream, head)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("audio too small: %d bytes, need at least %d", n, s.minBytes)
		}
		return "", fmt.Errorf("read audio: %w", err)
	}

	body := io.MultiReader(bytes.NewReader(head), &capReader{
		r:         stream,
		remaining: s.maxBytes - s.minBytes,
		max:       s.maxBytes,
	})
	return s.blobs.Upload(ctx, key, contentType, body)
}

func blobKey(lang domain.Language, word, track string) string {
	return fmt.Sprintf("vocabs/%s/%s/audio/%s.mp3", lang, domain.SafeWord(word), track)
}

// capReader fails once more than its budget flows through. A stream landing
// exactly on the budget still ends in a clean EOF.
type capReader struct {
	r         io.Reader
	remaining int64
	max       int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		var probe [1]byte
		n, err := c.r.Read(probe[:])
		if n > 0 {
			return 0, fmt.Errorf("audio exceeds %d bytes", c.max)
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
