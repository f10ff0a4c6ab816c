// Package vocab implements the vocabulary artifact repository on DynamoDB.
// One table holds two row kinds: the canonical artifact row per
// (source word, target language, part of speech) triple, and SEARCH fan-out
// rows that put a freshly fetched image into the media-reuse index under
// every normalized search term.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/heartmarshall/vocab-enricher/internal/adapter/dynamo"
	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// MediaIndex is the GSI keyed by the normalized english_word attribute.
// Both artifact rows and SEARCH fan-out rows project into it.
const MediaIndex = "english_word-index"

const (
	maxMediaTerms = 3
	batchAttempts = 3
	batchBackoff  = 100 * time.Millisecond
)

// Client is the subset of the DynamoDB API the repository uses.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Repo provides vocabulary artifact persistence backed by DynamoDB.
// A nil client puts the repository into local mode: reads answer "nothing
// stored" and writes are skipped, so a run without cloud credentials still
// produces an artifact.
type Repo struct {
	client Client
	table  string
	log    *slog.Logger
}

// New creates a vocabulary repository against the given table.
func New(client Client, table string, logger *slog.Logger) *Repo {
	return &Repo{
		client: client,
		table:  table,
		log:    logger.With("adapter", "dynamo.vocab"),
	}
}

// CheckExists reports whether any artifact is already stored for the
// (source language, base word, target language) prefix, regardless of part
// of speech. Returns nil when nothing is stored.
func (r *Repo) CheckExists(ctx context.Context, src domain.Language, baseWord string, tgt domain.Language) (*domain.ExistingItem, error) {
	if r.client == nil {
		r.log.DebugContext(ctx, "no dynamodb client, skipping existence check", slog.String("word", baseWord))
		return nil, nil
	}

	pk := domain.VocabPK(src, baseWord)
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: domain.VocabSKPrefix(tgt)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, dynamo.MapError(err, "vocab_entry", pk)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var entry domain.VocabEntry
	if err := attributevalue.UnmarshalMap(out.Items[0], &entry); err != nil {
		return nil, fmt.Errorf("vocab_entry %s: unmarshal: %w", pk, err)
	}

	return &domain.ExistingItem{
		PK:         entry.PK,
		SK:         entry.SK,
		TargetWord: entry.TargetWord,
		Entry:      &entry,
	}, nil
}

// FindMediaByTerms looks the search terms up in the media-reuse index
// concurrently. The first query returning a non-empty media wins and cancels
// the rest; the result carries MatchedWord = the term that hit. A miss returns
// nil, nil, and so does a failed lookup, since reuse is an optimization.
func (r *Repo) FindMediaByTerms(ctx context.Context, terms []string) (*domain.Media, error) {
	if r.client == nil || len(terms) == 0 {
		return nil, nil
	}
	if len(terms) > maxMediaTerms {
		terms = terms[:maxMediaTerms]
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Every lookup sends exactly one result, hit or nil, so the early return
	// below never blocks a straggler.
	hits := make(chan *domain.Media, len(terms))
	for _, term := range terms {
		go func() {
			m, err := r.findMediaByTerm(ctx, term)
			if err != nil && ctx.Err() == nil {
				r.log.WarnContext(ctx, "media reuse lookup failed",
					slog.String("term", term), slog.String("error", err.Error()))
			}
			hits <- m
		}()
	}

	for range terms {
		if m := <-hits; m != nil {
			cancel()
			r.log.InfoContext(ctx, "media reused", slog.String("matched_word", m.MatchedWord))
			return m, nil
		}
	}
	return nil, nil
}

// mediaRow is the index projection used by the reuse lookup.
type mediaRow struct {
	EnglishWord string        `dynamodbav:"english_word"`
	Media       *domain.Media `dynamodbav:"media"`
}

func (r *Repo) findMediaByTerm(ctx context.Context, term string) (*domain.Media, error) {
	key := domain.NormalizeKey(term)
	if key == "" {
		return nil, nil
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.table),
		IndexName:                aws.String(MediaIndex),
		KeyConditionExpression:   aws.String("#ew = :ew"),
		ProjectionExpression:     aws.String("#ew, #media"),
		ExpressionAttributeNames: map[string]string{"#ew": "english_word", "#media": "media"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ew": &types.AttributeValueMemberS{Value: key},
		},
		Limit: aws.Int32(5),
	})
	if err != nil {
		return nil, dynamo.MapError(err, "media_lookup", key)
	}

	// Placeholder artifacts sit in the index with empty sources; skip them.
	for _, item := range out.Items {
		var row mediaRow
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, fmt.Errorf("media_lookup %s: unmarshal: %w", key, err)
		}
		if row.Media == nil || row.Media.Src.Empty() {
			continue
		}
		m := *row.Media
		m.MatchedWord = term
		return &m, nil
	}
	return nil, nil
}

// PutEntry stores the artifact row with a create-only condition. A
// conditional failure means a concurrent request already stored this triple;
// the first write wins and the duplicate is reported as success.
func (r *Repo) PutEntry(ctx context.Context, entry *domain.VocabEntry) error {
	if r.client == nil {
		r.log.WarnContext(ctx, "no dynamodb client, artifact not persisted", slog.String("word", entry.SourceWord))
		return nil
	}

	entry.OverallQualityScore = domain.Quantize4(entry.OverallQualityScore)

	item, err := marshalStripped(entry)
	if err != nil {
		return fmt.Errorf("vocab_entry %s: marshal: %w", entry.PK, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		mapped := dynamo.MapError(err, "vocab_entry", entry.PK)
		if errors.Is(mapped, domain.ErrAlreadyExists) {
			r.log.InfoContext(ctx, "artifact already stored, keeping the first write",
				slog.String("pk", entry.PK), slog.String("sk", entry.SK))
			return nil
		}
		return mapped
	}

	r.log.InfoContext(ctx, "artifact stored", slog.String("pk", entry.PK), slog.String("sk", entry.SK))
	return nil
}

// searchRef is one fan-out row. Its english_word is the normalized search
// term, which is what makes the media-reuse index find the entry's media
// under any of its terms.
type searchRef struct {
	PK          string        `dynamodbav:"PK"`
	SK          string        `dynamodbav:"SK"`
	EnglishWord string        `dynamodbav:"english_word,omitempty"`
	Media       *domain.Media `dynamodbav:"media,omitempty"`
	CreatedAt   time.Time     `dynamodbav:"created_at"`
}

// PutSearchRefs writes one SEARCH row per normalized term in a single batch,
// retrying unprocessed items with a short backoff. Terms normalizing to the
// same key are written once.
func (r *Repo) PutSearchRefs(ctx context.Context, entry *domain.VocabEntry, terms []string) error {
	if r.client == nil || len(terms) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(terms))
	writes := make([]types.WriteRequest, 0, len(terms))
	for _, term := range terms {
		norm := domain.NormalizeKey(term)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		item, err := marshalStripped(searchRef{
			PK:          domain.SearchPK(term),
			SK:          domain.SearchSK(entry.PK, entry.SK),
			EnglishWord: norm,
			Media:       entry.Media,
			CreatedAt:   entry.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("search_ref %s: marshal: %w", norm, err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	if len(writes) == 0 {
		return nil
	}

	pending := map[string][]types.WriteRequest{r.table: writes}
	for attempt := 1; ; attempt++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return dynamo.MapError(err, "search_refs", entry.PK)
		}
		if len(out.UnprocessedItems) == 0 {
			r.log.DebugContext(ctx, "search refs stored",
				slog.String("pk", entry.PK), slog.Int("terms", len(writes)))
			return nil
		}
		if attempt == batchAttempts {
			return fmt.Errorf("search_refs %s: %d unprocessed after %d attempts: %w",
				entry.PK, len(out.UnprocessedItems[r.table]), attempt, domain.ErrUnavailable)
		}
		pending = out.UnprocessedItems

		select {
		case <-ctx.Done():
			return dynamo.MapError(ctx.Err(), "search_refs", entry.PK)
		case <-time.After(time.Duration(attempt) * batchBackoff):
		}
	}
}

// marshalStripped marshals a row and drops NULL and empty-string attributes,
// recursively. Sparse index attributes (english_word, LKP) must be absent
// rather than empty, and failed branches must not leave empty markers.
func marshalStripped(v any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMapWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.OmitNullAttributeValues = true
	})
	if err != nil {
		return nil, err
	}
	stripEmpty(item)
	return item, nil
}

func stripEmpty(item map[string]types.AttributeValue) {
	for k, v := range item {
		switch av := v.(type) {
		case *types.AttributeValueMemberNULL:
			delete(item, k)
		case *types.AttributeValueMemberS:
			if av.Value == "" {
				delete(item, k)
			}
		case *types.AttributeValueMemberM:
			stripEmpty(av.Value)
			if len(av.Value) == 0 {
				delete(item, k)
			}
		}
	}
}
