package ctxutil

import (
	"context"
)

type ctxKey string

const (
	userIDKey    ctxKey = "user_id"
	requestIDKey ctxKey = "request_id"
	vocabWordKey ctxKey = "vocab_word"
)

// WithUserID stores the requesting user's ID in the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromCtx extracts the user ID from the context.
// Returns an empty string if absent.
func UserIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithVocabWord stores the entry's routing key ("{lang}#{word}") in the
// context. The notifier uses it to find the request's WebSocket subscribers.
func WithVocabWord(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, vocabWordKey, key)
}

// VocabWordFromCtx extracts the routing key from the context.
// Returns an empty string if absent.
func VocabWordFromCtx(ctx context.Context) string {
	key, _ := ctx.Value(vocabWordKey).(string)
	return key
}
