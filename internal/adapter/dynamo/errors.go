// Package dynamo holds what the vocabulary and connection repositories
// share: mapping of AWS SDK failures onto domain errors.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// MapError converts DynamoDB errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped — they pass through.
func MapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ConditionalCheckFailedException":
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrAlreadyExists)
		case "ResourceNotFoundException":
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrUnavailable)
		case "ValidationException":
			return fmt.Errorf("%s %s: %w", entity, key, domain.ErrValidation)
		}
	}

	// Everything else: wrap with context
	return fmt.Errorf("%s %s: %w", entity, key, err)
}
