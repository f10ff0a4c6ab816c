// Package media implements the image half of enrichment: search terms from
// the LLM, reuse through the stored-media index, fresh fetch from Pexels with
// LLM candidate selection, and blob storage of the chosen renditions.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/provider/pexels"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

const (
	searchPerPage  = 10
	maxSearchTerms = 3
)

type generator interface {
	Generate(ctx context.Context, call llm.Call, out any) error
}

type mediaFinder interface {
	FindMediaByTerms(ctx context.Context, terms []string) (*domain.Media, error)
}

type photoCatalog interface {
	Search(ctx context.Context, query string, perPage int) ([]pexels.Photo, error)
	Download(ctx context.Context, rawURL string) (io.ReadCloser, string, error)
}

type blobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type reuseRecorder interface {
	RecordMediaReuse(ctx context.Context, hit bool)
}

// Service runs the media flow for the media tool.
type Service struct {
	log     *slog.Logger
	gen     generator
	finder  mediaFinder
	photos  photoCatalog
	blobs   blobStore
	metrics reuseRecorder
}

// NewService creates a media service.
func NewService(log *slog.Logger, gen generator, finder mediaFinder, photos photoCatalog, blobs blobStore, metrics reuseRecorder) *Service {
	return &Service{
		log:     log.With("service", "media"),
		gen:     gen,
		finder:  finder,
		photos:  photos,
		blobs:   blobs,
		metrics: metrics,
	}
}

// Enrich finds the representative image for a word. A reuse hit keeps the
// stored URLs and only rewrites the description into the learner's source
// language; a fresh fetch selects a candidate, stores its renditions, and
// points media.src at the stored copies. An empty catalog yields placeholder
// media, not an error.
func (s *Service) Enrich(ctx context.Context, req tool.MediaRequest) (tool.MediaOutcome, error) {
	prompt := searchTermsPrompt(req)

	var phase1 struct {
		EnglishWord string   `json:"english_word"`
		SearchTerms []string `json:"search_terms"`
	}
	err := s.gen.Generate(ctx, llm.Call{
		Schema: tool.SearchQuerySchema,
		System: mediaSystem,
		User:   prompt,
		Tier:   req.Tier,
	}, &phase1)
	if err != nil {
		return tool.MediaOutcome{}, fmt.Errorf("search terms: %w", err)
	}

	terms := phase1.SearchTerms
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}

	outcome := tool.MediaOutcome{
		EnglishWord: phase1.EnglishWord,
		SearchQuery: terms,
		Prompt:      prompt,
	}

	found, err := s.finder.FindMediaByTerms(ctx, terms)
	if err != nil {
		// A broken index degrades to a fresh fetch.
		s.log.WarnContext(ctx, "media reuse lookup failed", slog.String("error", err.Error()))
	}
	if found != nil {
		media, err := s.localizeReused(ctx, req, *found)
		if err != nil {
			return tool.MediaOutcome{}, err
		}
		outcome.Media = media
		outcome.Reused = true
		s.metrics.RecordMediaReuse(ctx, true)
		return outcome, nil
	}

	media, err := s.fetchFresh(ctx, req, phase1.EnglishWord, terms)
	if err != nil {
		return tool.MediaOutcome{}, err
	}
	outcome.Media = media
	s.metrics.RecordMediaReuse(ctx, false)
	return outcome, nil
}

// localizeReused rewrites a stored media's description fields into the
// learner's source language. The stored URLs never change.
func (s *Service) localizeReused(ctx context.Context, req tool.MediaRequest, found domain.Media) (domain.Media, error) {
	var loc struct {
		Alt         string `json:"alt"`
		Explanation string `json:"explanation"`
		MemoryTip   string `json:"memory_tip"`
	}
	err := s.gen.Generate(ctx, llm.Call{
		Schema: localizeSchema,
		System: mediaSystem,
		User:   localizePrompt(req, found),
		Tier:   req.Tier,
	}, &loc)
	if err != nil {
		return domain.Media{}, fmt.Errorf("localize reused media: %w", err)
	}

	found.Alt = loc.Alt
	found.Explanation = loc.Explanation
	found.MemoryTip = loc.MemoryTip

	s.log.InfoContext(ctx, "media reused",
		slog.String("word", req.Word),
		slog.String("matched_word", found.MatchedWord),
	)
	return found, nil
}

func (s *Service) fetchFresh(ctx context.Context, req tool.MediaRequest, englishWord string, terms []string) (domain.Media, error) {
	query := strings.Join(terms, " ")
	photos, err := s.photos.Search(ctx, query, searchPerPage)
	if err != nil {
		return domain.Media{}, fmt.Errorf("photo search: %w", err)
	}
	if len(photos) == 0 {
		s.log.InfoContext(ctx, "no photos for query", slog.String("query", query))
		return domain.PlaceholderMedia(req.Word), nil
	}

	chosen, desc, err := s.selectPhoto(ctx, req, terms, photos)
	if err != nil {
		return domain.Media{}, err
	}

	stored, err := s.storeRenditions(ctx, englishWord, chosen)
	if err != nil {
		return domain.Media{}, err
	}

	return domain.Media{
		URL:         chosen.URL,
		Src:         stored,
		Alt:         desc.alt,
		Explanation: desc.explanation,
		MemoryTip:   desc.memoryTip,
	}, nil
}

type description struct {
	alt, explanation, memoryTip string
}

// selectPhoto asks the LLM which candidate depicts the word best and for
// localized description fields. An answer naming an unknown candidate falls
// back to the first photo.
func (s *Service) selectPhoto(ctx context.Context, req tool.MediaRequest, terms []string, photos []pexels.Photo) (pexels.Photo, description, error) {
	var sel struct {
		PhotoID     int    `json:"photo_id"`
		Alt         string `json:"alt"`
		Explanation string `json:"explanation"`
		MemoryTip   string `json:"memory_tip"`
	}
	err := s.gen.Generate(ctx, llm.Call{
		Schema: selectionSchema,
		System: mediaSystem,
		User:   selectionPrompt(req, terms, photos),
		Tier:   req.Tier,
	}, &sel)
	if err != nil {
		return pexels.Photo{}, description{}, fmt.Errorf("select photo: %w", err)
	}

	desc := description{alt: sel.Alt, explanation: sel.Explanation, memoryTip: sel.MemoryTip}
	for _, ph := range photos {
		if ph.ID == sel.PhotoID {
			return ph, desc, nil
		}
	}

	s.log.WarnContext(ctx, "selection named an unknown photo, using first candidate",
		slog.Int("photo_id", sel.PhotoID))
	return photos[0], desc, nil
}

// storeRenditions streams the chosen photo's large and small renditions from
// the CDN into blob storage, falling back one size down when a rendition is
// missing, and returns the stored URLs.
func (s *Service) storeRenditions(ctx context.Context, englishWord string, photo pexels.Photo) (domain.MediaSources, error) {
	word := domain.SafeWord(englishWord)
	if word == "" {
		word = "unknown"
	}

	large := photo.Src.Large2x
	if large == "" {
		large = photo.Src.Large
	}
	small := photo.Src.Small
	if small == "" {
		small = photo.Src.Medium
	}
	if large == "" && small == "" {
		return domain.MediaSources{}, fmt.Errorf("photo %d has no usable renditions", photo.ID)
	}

	var out domain.MediaSources
	if large != "" {
		url, err := s.storeOne(ctx, word, "large2x", large)
		if err != nil {
			return domain.MediaSources{}, err
		}
		out.Large2x = url
	}
	if small != "" {
		url, err := s.storeOne(ctx, word, "small", small)
		if err != nil {
			return domain.MediaSources{}, err
		}
		out.Small = url
	}
	return out, nil
}

func (s *Service) storeOne(ctx context.Context, word, size, srcURL string) (string, error) {
	body, contentType, err := s.photos.Download(ctx, srcURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", size, err)
	}
	defer body.Close()

	key := fmt.Sprintf("vocabs/en/%s/images/%s.jpg", word, size)
	url, err := s.blobs.Upload(ctx, key, contentType, body)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", size, err)
	}
	return url, nil
}
