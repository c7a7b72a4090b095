// Package state persists sweep state in DynamoDB: per-product status records,
// inventory totals, and the dual-keyed subscriber lists. One table, string pk,
// expires_at TTL attribute. Writes are last-writer-wins; the sweep lock keeps
// a single writer per sweep.
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bundlewatch/go-restock-sweep/internal/aws"
	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
)

const defaultSubscriberTTL = 90 * 24 * time.Hour

// Store encapsulates sweep state operations against DynamoDB.
type Store struct {
	client        aws.DynamoDBAPI
	tableName     string
	subscriberTTL time.Duration // refreshed on every subscriber-list write
	nowFunc       func() time.Time
}

// NewStore returns a configured Store bound to a table.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		subscriberTTL: defaultSubscriberTTL,
		nowFunc:       time.Now,
	}
}

// StatusRecord tracks the previous and current computed status for a product.
type StatusRecord struct {
	Previous string `dynamodbav:"previous"`
	Current  string `dynamodbav:"current"`
}

type statusItem struct {
	PK        string    `dynamodbav:"pk"`
	Previous  string    `dynamodbav:"previous"`
	Current   string    `dynamodbav:"current"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

type inventoryItem struct {
	PK        string    `dynamodbav:"pk"`
	Total     int       `dynamodbav:"total"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

type subscriberItem struct {
	PK        string               `dynamodbav:"pk"`
	Records   []subscribers.Record `dynamodbav:"records"`
	UpdatedAt time.Time            `dynamodbav:"updated_at"`
	ExpiresAt int64                `dynamodbav:"expires_at"` // TTL epoch seconds
}

// Key builders. Subscriber lists live under both an id key and a handle key;
// the merge engine keeps the two in sync.

func statusKey(productID int64) string  { return fmt.Sprintf("status#%d", productID) }
func totalKey(productID int64) string   { return fmt.Sprintf("inventory#%d", productID) }
func SubscriberIDKey(productID int64) string { return fmt.Sprintf("subs#id#%d", productID) }
func SubscriberHandleKey(handle string) string { return fmt.Sprintf("subs#handle#%s", handle) }

func (s *Store) getItem(ctx context.Context, pk string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", pk, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func (s *Store) putItem(ctx context.Context, pk string, item interface{}) error {
	m, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item %s: %w", pk, err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      m,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", pk, err)
	}
	return nil
}

// GetStatus retrieves a product's status record. If not found, returns (nil, nil).
func (s *Store) GetStatus(ctx context.Context, productID int64) (*StatusRecord, error) {
	item, err := s.getItem(ctx, statusKey(productID))
	if err != nil || item == nil {
		return nil, err
	}
	var rec StatusRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal status record: %w", err)
	}
	return &rec, nil
}

// PutStatus persists a product's status record.
func (s *Store) PutStatus(ctx context.Context, productID int64, rec StatusRecord) error {
	return s.putItem(ctx, statusKey(productID), statusItem{
		PK:        statusKey(productID),
		Previous:  rec.Previous,
		Current:   rec.Current,
		UpdatedAt: s.nowFunc(),
	})
}

// GetInventoryTotal retrieves a product's last observed inventory total.
// found=false when no total has been recorded yet.
func (s *Store) GetInventoryTotal(ctx context.Context, productID int64) (total int, found bool, err error) {
	item, err := s.getItem(ctx, totalKey(productID))
	if err != nil || item == nil {
		return 0, false, err
	}
	var it inventoryItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return 0, false, fmt.Errorf("unmarshal inventory total: %w", err)
	}
	return it.Total, true, nil
}

// PutInventoryTotal persists a product's inventory total.
func (s *Store) PutInventoryTotal(ctx context.Context, productID int64, total int) error {
	return s.putItem(ctx, totalKey(productID), inventoryItem{
		PK:        totalKey(productID),
		Total:     total,
		UpdatedAt: s.nowFunc(),
	})
}

// GetSubscribers retrieves the subscriber list stored under one physical key.
// An absent key yields an empty list, never an error.
func (s *Store) GetSubscribers(ctx context.Context, key string) ([]subscribers.Record, error) {
	item, err := s.getItem(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	var it subscriberItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal subscriber list: %w", err)
	}
	return it.Records, nil
}

// PutSubscribers persists a subscriber list under one physical key,
// refreshing the retention TTL.
func (s *Store) PutSubscribers(ctx context.Context, key string, records []subscribers.Record) error {
	now := s.nowFunc()
	return s.putItem(ctx, key, subscriberItem{
		PK:        key,
		Records:   records,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.subscriberTTL).Unix(),
	})
}

// PutSubscribersBoth writes the merged list back to both lookup keys,
// keeping them in sync going forward.
func (s *Store) PutSubscribersBoth(ctx context.Context, productID int64, handle string, records []subscribers.Record) error {
	if err := s.PutSubscribers(ctx, SubscriberIDKey(productID), records); err != nil {
		return err
	}
	return s.PutSubscribers(ctx, SubscriberHandleKey(handle), records)
}
