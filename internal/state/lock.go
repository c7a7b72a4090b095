package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const lockKey = "lock#sweep"

// ErrLockHeld indicates another sweep currently holds the lock.
var ErrLockHeld = errors.New("sweep lock held by another run")

type lockItem struct {
	PK        string `dynamodbav:"pk"`
	Owner     string `dynamodbav:"owner"`
	ExpiresAt int64  `dynamodbav:"expires_at"` // TTL epoch seconds
}

// AcquireLock takes the singleton sweep lock with set-if-absent semantics.
// DynamoDB's TTL sweeper deletes expired items lazily, so the condition also
// treats an expired item as absent. Returns ErrLockHeld on contention.
func (s *Store) AcquireLock(ctx context.Context, owner string, ttl time.Duration) error {
	now := s.nowFunc()
	item, err := attributevalue.MarshalMap(lockItem{
		PK:        lockKey,
		Owner:     owner,
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal lock item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(pk) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrLockHeld
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

// ReleaseLock drops the sweep lock unconditionally. The TTL covers the case
// where release fails or the holder crashes.
func (s *Store) ReleaseLock(ctx context.Context) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: lockKey},
		},
	})
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Helper
func awsString(s string) *string { return &s }
