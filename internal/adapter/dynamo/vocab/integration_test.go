package vocab_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/testhelper"
	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo/vocab"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

func setupRepo(t *testing.T) *vocab.Repo {
	t.Helper()
	client := testhelper.SetupTestTables(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return vocab.New(client, testhelper.VocabTable, log)
}

// uniqueWord keeps tests on the shared container from colliding.
func uniqueWord(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

func seedEntry(word string) *domain.VocabEntry {
	entry := &domain.VocabEntry{
		SourceWord:          word,
		SourceLanguage:      domain.LanguageEnglish,
		TargetLanguage:      domain.LanguageSpanish,
		TargetWord:          "palabra",
		TargetPOS:           domain.PartOfSpeechNoun,
		EnglishWord:         word,
		OverallQualityScore: 8.5,
		CreatedAt:           time.Now().UTC(),
	}
	entry.Keys()
	return entry
}

func TestRepo_PutEntry_AndCheckExists(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := uniqueWord("exist")
	entry := seedEntry(word)

	err := repo.PutEntry(ctx, entry)
	require.NoError(t, err)

	got, err := repo.CheckExists(ctx, domain.LanguageEnglish, word, domain.LanguageSpanish)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.PK, got.PK)
	assert.Equal(t, entry.SK, got.SK)
	assert.Equal(t, "palabra", got.TargetWord)
	require.NotNil(t, got.Entry)
	assert.Equal(t, word, got.Entry.SourceWord)

	// Same word toward another language is a different artifact.
	other, err := repo.CheckExists(ctx, domain.LanguageEnglish, word, domain.Language("de"))
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRepo_CheckExists_Miss(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)

	got, err := repo.CheckExists(context.Background(), domain.LanguageEnglish, uniqueWord("miss"), domain.LanguageSpanish)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepo_PutEntry_FirstWriteWins(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := uniqueWord("race")
	first := seedEntry(word)
	require.NoError(t, repo.PutEntry(ctx, first))

	// Same keys, different content -- must NOT overwrite and must NOT error.
	second := seedEntry(word)
	second.TargetWord = "vocablo"
	second.Keys()
	require.NoError(t, repo.PutEntry(ctx, second))

	got, err := repo.CheckExists(ctx, domain.LanguageEnglish, word, domain.LanguageSpanish)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "palabra", got.TargetWord, "first write should win")
}

func TestRepo_FindMediaByTerms_ThroughIndex(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := uniqueWord("lighthouse")
	entry := seedEntry(word)
	entry.Media = &domain.Media{
		Src: domain.MediaSources{
			Large2x: "https://bucket.s3.amazonaws.com/vocabs/en/" + word + "/images/large2x.jpg",
			Small:   "https://bucket.s3.amazonaws.com/vocabs/en/" + word + "/images/small.jpg",
		},
		Alt: "a lighthouse at dusk",
	}
	require.NoError(t, repo.PutEntry(ctx, entry))

	got, err := repo.FindMediaByTerms(ctx, []string{uniqueWord("unrelated"), word})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, word, got.MatchedWord)
	assert.Equal(t, entry.Media.Src.Large2x, got.Src.Large2x)
}

func TestRepo_FindMediaByTerms_IgnoresPlaceholders(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := uniqueWord("blank")
	entry := seedEntry(word)
	placeholder := domain.PlaceholderMedia(word)
	entry.Media = &placeholder
	require.NoError(t, repo.PutEntry(ctx, entry))

	got, err := repo.FindMediaByTerms(ctx, []string{word})
	require.NoError(t, err)
	assert.Nil(t, got, "placeholder media must not be reused")
}

func TestRepo_PutSearchRefs_MakesTermsDiscoverable(t *testing.T) {
	t.Parallel()
	repo := setupRepo(t)
	ctx := context.Background()

	word := uniqueWord("harbor")
	term := uniqueWord("seaport")
	entry := seedEntry(word)
	entry.Media = &domain.Media{
		Src: domain.MediaSources{Large2x: "https://bucket.s3.amazonaws.com/vocabs/en/" + word + "/images/large2x.jpg"},
		Alt: "ships in a harbor",
	}
	require.NoError(t, repo.PutEntry(ctx, entry))
	require.NoError(t, repo.PutSearchRefs(ctx, entry, []string{term}))

	// The fan-out row surfaces the media under the search term itself.
	got, err := repo.FindMediaByTerms(ctx, []string{term})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, term, got.MatchedWord)
	assert.Equal(t, entry.Media.Src.Large2x, got.Src.Large2x)
}
