package state

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory stand-in for the DynamoDB client, keyed by
// the pk attribute. It understands the lock's conditional expression.
type simpleMock struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue

	putCalls    int
	getCalls    int
	deleteCalls int
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func pkOf(item map[string]types.AttributeValue) (string, error) {
	attr, ok := item["pk"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing pk")
	}
	return attr.Value, nil
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	pk, err := pkOf(params.Item)
	if err != nil {
		return nil, err
	}

	// implement ConditionExpression: attribute_not_exists(pk) OR expires_at < :now
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(pk) OR expires_at < :now" {
		if existing, ok := m.table[pk]; ok {
			nowAttr := params.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN)
			now, _ := strconv.ParseInt(nowAttr.Value, 10, 64)
			expAttr, ok := existing["expires_at"].(*types.AttributeValueMemberN)
			if !ok {
				return nil, &types.ConditionalCheckFailedException{}
			}
			exp, _ := strconv.ParseInt(expAttr.Value, 10, 64)
			if exp >= now {
				// simulate conditional failure
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	m.table[pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++

	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.table, pk)
	return &dyn.DeleteItemOutput{}, nil
}
