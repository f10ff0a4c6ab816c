package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/provider/pexels"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
	"github.com/heartmarshall/vocab-enricher/internal/llm"
	"github.com/heartmarshall/vocab-enricher/internal/tool"
)

type fakeGen struct {
	mu        sync.Mutex
	responses map[string]string // schema name -> JSON answer
	errs      map[string]error
	calls     []llm.Call
}

func (f *fakeGen) Generate(_ context.Context, call llm.Call, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if err := f.errs[call.Schema.Name]; err != nil {
		return err
	}
	raw, ok := f.responses[call.Schema.Name]
	if !ok {
		return errors.New("unexpected call: " + call.Schema.Name)
	}
	return json.Unmarshal([]byte(raw), out)
}

type fakeFinder struct {
	media *domain.Media
	err   error
	terms []string
}

func (f *fakeFinder) FindMediaByTerms(_ context.Context, terms []string) (*domain.Media, error) {
	f.terms = terms
	return f.media, f.err
}

type fakeCatalog struct {
	photos    []pexels.Photo
	searchErr error
	queries   []string
	downloads []string
}

func (f *fakeCatalog) Search(_ context.Context, query string, _ int) ([]pexels.Photo, error) {
	f.queries = append(f.queries, query)
	return f.photos, f.searchErr
}

func (f *fakeCatalog) Download(_ context.Context, rawURL string) (io.ReadCloser, string, error) {
	f.downloads = append(f.downloads, rawURL)
	return io.NopCloser(strings.NewReader("jpeg-bytes")), "image/jpeg", nil
}

type upload struct {
	key, contentType string
}

type fakeBlobs struct {
	uploads []upload
}

func (f *fakeBlobs) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	io.Copy(io.Discard, body)
	f.uploads = append(f.uploads, upload{key: key, contentType: contentType})
	return "https://blobs.test/" + key, nil
}

type fakeMetrics struct {
	hits []bool
}

func (f *fakeMetrics) RecordMediaReuse(_ context.Context, hit bool) {
	f.hits = append(f.hits, hit)
}

func testRequest() tool.MediaRequest {
	return tool.MediaRequest{
		Word:           "casa",
		SourceLanguage: domain.LanguageEnglish,
		TargetLanguage: domain.LanguageSpanish,
		Definitions:    []string{"a building for living in"},
		Tier:           llm.TierExecutor,
	}
}

func searchAnswer(word string, terms ...string) string {
	doc := map[string]any{"english_word": word, "search_terms": terms}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

func twoPhotos() []pexels.Photo {
	return []pexels.Photo{
		{
			ID:  101,
			URL: "https://www.pexels.com/photo/101",
			Alt: "a brick house",
			Src: pexels.PhotoSources{Large2x: "https://img.test/101-l2x.jpg", Small: "https://img.test/101-s.jpg"},
		},
		{
			ID:  202,
			URL: "https://www.pexels.com/photo/202",
			Alt: "a wooden cottage",
			Src: pexels.PhotoSources{Large2x: "https://img.test/202-l2x.jpg", Small: "https://img.test/202-s.jpg"},
		},
	}
}

func newTestService(gen *fakeGen, finder *fakeFinder, catalog *fakeCatalog, blobs *fakeBlobs, metrics *fakeMetrics) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), gen, finder, catalog, blobs, metrics)
}

func TestService_Enrich_FreshFetch(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house", "building"),
		"select_photo":          `{"photo_id":202,"alt":"una cabaña","explanation":"muestra una casa","memory_tip":"piensa en tu casa"}`,
	}}
	finder := &fakeFinder{}
	catalog := &fakeCatalog{photos: twoPhotos()}
	blobs := &fakeBlobs{}
	metrics := &fakeMetrics{}
	svc := newTestService(gen, finder, catalog, blobs, metrics)

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if out.Reused {
		t.Error("fresh fetch reported as reuse")
	}
	if out.EnglishWord != "house" {
		t.Errorf("english word = %q", out.EnglishWord)
	}
	if len(out.SearchQuery) != 2 || out.SearchQuery[0] != "house" {
		t.Errorf("search query = %v", out.SearchQuery)
	}
	if out.Prompt == "" || !strings.Contains(out.Prompt, "casa") {
		t.Errorf("prompt does not mention the word: %q", out.Prompt)
	}

	if out.Media.URL != "https://www.pexels.com/photo/202" {
		t.Errorf("media URL = %q", out.Media.URL)
	}
	if out.Media.Src.Large2x != "https://blobs.test/vocabs/en/house/images/large2x.jpg" {
		t.Errorf("large2x = %q", out.Media.Src.Large2x)
	}
	if out.Media.Src.Small != "https://blobs.test/vocabs/en/house/images/small.jpg" {
		t.Errorf("small = %q", out.Media.Src.Small)
	}
	if out.Media.Alt != "una cabaña" || out.Media.MemoryTip != "piensa en tu casa" {
		t.Errorf("description fields = %+v", out.Media)
	}

	if len(catalog.queries) != 1 || catalog.queries[0] != "house building" {
		t.Errorf("queries = %v", catalog.queries)
	}
	wantDownloads := []string{"https://img.test/202-l2x.jpg", "https://img.test/202-s.jpg"}
	if len(catalog.downloads) != 2 || catalog.downloads[0] != wantDownloads[0] || catalog.downloads[1] != wantDownloads[1] {
		t.Errorf("downloads = %v, want %v", catalog.downloads, wantDownloads)
	}
	if len(metrics.hits) != 1 || metrics.hits[0] {
		t.Errorf("reuse metric = %v, want one miss", metrics.hits)
	}

	phase1 := gen.calls[0]
	if phase1.Schema.Name != "generate_search_query" || phase1.System != mediaSystem {
		t.Errorf("phase one call = %+v", phase1)
	}
	if phase1.Tier != llm.TierExecutor {
		t.Errorf("tier = %v", phase1.Tier)
	}
}

func TestService_Enrich_ReuseHit(t *testing.T) {
	t.Parallel()

	stored := &domain.Media{
		URL: "https://www.pexels.com/photo/7",
		Src: domain.MediaSources{
			Large2x: "https://blobs.test/vocabs/en/cottage/images/large2x.jpg",
			Small:   "https://blobs.test/vocabs/en/cottage/images/small.jpg",
		},
		Alt:         "a cottage",
		MatchedWord: "cottage",
	}
	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
		"localize_media":        `{"alt":"una casa","explanation":"es una casa","memory_tip":"casa como cottage"}`,
	}}
	finder := &fakeFinder{media: stored}
	catalog := &fakeCatalog{}
	metrics := &fakeMetrics{}
	svc := newTestService(gen, finder, catalog, &fakeBlobs{}, metrics)

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if !out.Reused {
		t.Error("reuse hit not flagged")
	}
	if out.Media.URL != stored.URL || out.Media.Src != stored.Src {
		t.Errorf("stored URLs changed: %+v", out.Media)
	}
	if out.Media.Alt != "una casa" || out.Media.Explanation != "es una casa" {
		t.Errorf("description not localized: %+v", out.Media)
	}
	if out.Media.MatchedWord != "cottage" {
		t.Errorf("matched word = %q", out.Media.MatchedWord)
	}
	if len(catalog.queries) != 0 || len(catalog.downloads) != 0 {
		t.Error("reuse hit still called the photo catalog")
	}
	if len(metrics.hits) != 1 || !metrics.hits[0] {
		t.Errorf("reuse metric = %v, want one hit", metrics.hits)
	}
	if finder.terms == nil {
		t.Error("finder never consulted")
	}
}

func TestService_Enrich_NoPhotosYieldsPlaceholder(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
	}}
	svc := newTestService(gen, &fakeFinder{}, &fakeCatalog{}, &fakeBlobs{}, &fakeMetrics{})

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out.Media != domain.PlaceholderMedia("casa") {
		t.Errorf("media = %+v, want placeholder", out.Media)
	}
	if out.Reused {
		t.Error("placeholder flagged as reuse")
	}
}

func TestService_Enrich_UnknownSelectionFallsBackToFirst(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
		"select_photo":          `{"photo_id":999,"alt":"a","explanation":"b","memory_tip":"c"}`,
	}}
	catalog := &fakeCatalog{photos: twoPhotos()}
	svc := newTestService(gen, &fakeFinder{}, catalog, &fakeBlobs{}, &fakeMetrics{})

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out.Media.URL != "https://www.pexels.com/photo/101" {
		t.Errorf("media URL = %q, want first candidate", out.Media.URL)
	}
}

func TestService_Enrich_RenditionFallback(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
		"select_photo":          `{"photo_id":5,"alt":"a","explanation":"b","memory_tip":"c"}`,
	}}
	catalog := &fakeCatalog{photos: []pexels.Photo{{
		ID:  5,
		URL: "https://www.pexels.com/photo/5",
		Src: pexels.PhotoSources{Large: "https://img.test/5-l.jpg", Medium: "https://img.test/5-m.jpg"},
	}}}
	blobs := &fakeBlobs{}
	svc := newTestService(gen, &fakeFinder{}, catalog, blobs, &fakeMetrics{})

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	// Fallback renditions are fetched, but the stored slots keep their names.
	if catalog.downloads[0] != "https://img.test/5-l.jpg" || catalog.downloads[1] != "https://img.test/5-m.jpg" {
		t.Errorf("downloads = %v", catalog.downloads)
	}
	if len(blobs.uploads) != 2 ||
		blobs.uploads[0].key != "vocabs/en/house/images/large2x.jpg" ||
		blobs.uploads[1].key != "vocabs/en/house/images/small.jpg" {
		t.Errorf("uploads = %+v", blobs.uploads)
	}
	if out.Media.Src.Large2x == "" || out.Media.Src.Small == "" {
		t.Errorf("stored sources = %+v", out.Media.Src)
	}
}

func TestService_Enrich_NoUsableRenditions(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
		"select_photo":          `{"photo_id":5,"alt":"a","explanation":"b","memory_tip":"c"}`,
	}}
	catalog := &fakeCatalog{photos: []pexels.Photo{{ID: 5, URL: "https://www.pexels.com/photo/5"}}}
	svc := newTestService(gen, &fakeFinder{}, catalog, &fakeBlobs{}, &fakeMetrics{})

	_, err := svc.Enrich(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "no usable renditions") {
		t.Fatalf("err = %v", err)
	}
}

func TestService_Enrich_LookupFailureDegradesToFresh(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "house"),
		"select_photo":          `{"photo_id":101,"alt":"a","explanation":"b","memory_tip":"c"}`,
	}}
	finder := &fakeFinder{err: errors.New("index offline")}
	catalog := &fakeCatalog{photos: twoPhotos()}
	svc := newTestService(gen, finder, catalog, &fakeBlobs{}, &fakeMetrics{})

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out.Reused {
		t.Error("degraded lookup reported as reuse")
	}
	if out.Media.URL != "https://www.pexels.com/photo/101" {
		t.Errorf("media URL = %q", out.Media.URL)
	}
}

func TestService_Enrich_CapsSearchTerms(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{responses: map[string]string{
		"generate_search_query": searchAnswer("house", "one", "two", "three", "four", "five"),
		"select_photo":          `{"photo_id":101,"alt":"a","explanation":"b","memory_tip":"c"}`,
	}}
	finder := &fakeFinder{}
	catalog := &fakeCatalog{photos: twoPhotos()}
	svc := newTestService(gen, finder, catalog, &fakeBlobs{}, &fakeMetrics{})

	out, err := svc.Enrich(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(out.SearchQuery) != 3 {
		t.Errorf("search query = %v, want 3 terms", out.SearchQuery)
	}
	if len(finder.terms) != 3 {
		t.Errorf("lookup terms = %v", finder.terms)
	}
	if catalog.queries[0] != "one two three" {
		t.Errorf("query = %q", catalog.queries[0])
	}
}

func TestService_Enrich_SearchTermsError(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{errs: map[string]error{"generate_search_query": errors.New("model down")}}
	catalog := &fakeCatalog{}
	svc := newTestService(gen, &fakeFinder{}, catalog, &fakeBlobs{}, &fakeMetrics{})

	_, err := svc.Enrich(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(catalog.queries) != 0 {
		t.Error("search ran after a failed phase one")
	}
}

func TestService_Enrich_LocalizeErrorSurfaces(t *testing.T) {
	t.Parallel()

	gen := &fakeGen{
		responses: map[string]string{"generate_search_query": searchAnswer("house", "house")},
		errs:      map[string]error{"localize_media": errors.New("model down")},
	}
	finder := &fakeFinder{media: &domain.Media{URL: "u", MatchedWord: "cottage"}}
	svc := newTestService(gen, finder, &fakeCatalog{}, &fakeBlobs{}, &fakeMetrics{})

	_, err := svc.Enrich(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "localize reused media") {
		t.Fatalf("err = %v", err)
	}
}
