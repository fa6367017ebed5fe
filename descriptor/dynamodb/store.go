// Package dynamodb provides a descriptor.Store backed by an Amazon DynamoDB
// table.
//
// Table schema:
//   - Partition key: namespace (string) - groups the descriptors of one population
//   - Sort key: id (number) - the descriptor identifier
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name mrpt-descriptors \
//	  --attribute-definitions AttributeName=namespace,AttributeType=S AttributeName=id,AttributeType=N \
//	  --key-schema AttributeName=namespace,KeyType=HASH AttributeName=id,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/mrpt/descriptor"
)

const (
	attrNamespace = "namespace"
	attrID        = "id"
	attrVector    = "vector"

	// DynamoDB service limits per batch request.
	maxBatchGet   = 100
	maxBatchWrite = 25

	// maxUnprocessedRounds bounds resubmission of throttled batch items.
	maxUnprocessedRounds = 8
)

// ErrUnprocessed is returned when DynamoDB keeps returning unprocessed items.
var ErrUnprocessed = errors.New("dynamodb: unprocessed items remain")

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store is a descriptor.Store holding one namespace of a DynamoDB table.
// It also implements descriptor.Writer and descriptor.BatchGetter.
type Store struct {
	client    Client
	tableName string
	namespace string
}

// NewStore creates a store for namespace in tableName.
func NewStore(client Client, tableName, namespace string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		namespace: namespace,
	}
}

func (s *Store) key(id descriptor.ID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrNamespace: &types.AttributeValueMemberS{Value: s.namespace},
		attrID:        &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(id), 10)},
	}
}

// GetVector implements descriptor.Store.
func (s *Store) GetVector(ctx context.Context, id descriptor.ID) ([]float64, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get %d: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return nil, &descriptor.NotFoundError{ID: id}
	}
	_, v, err := decodeItem(resp.Item)
	return v, err
}

// GetMany implements descriptor.BatchGetter.
func (s *Store) GetMany(ctx context.Context, ids []descriptor.ID) ([][]float64, error) {
	found := make(map[descriptor.ID][]float64, len(ids))

	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	for start := 0; start < len(unique); start += maxBatchGet {
		chunk := unique[start:min(start+maxBatchGet, len(unique))]
		keys := make([]map[string]types.AttributeValue, len(chunk))
		for i, id := range chunk {
			keys[i] = s.key(id)
		}

		request := map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys, ConsistentRead: aws.Bool(true)},
		}
		for round := 0; len(request) > 0; round++ {
			if round == maxUnprocessedRounds {
				return nil, ErrUnprocessed
			}
			resp, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("dynamodb: batch get: %w", err)
			}
			for _, item := range resp.Responses[s.tableName] {
				id, v, err := decodeItem(item)
				if err != nil {
					return nil, err
				}
				found[id] = v
			}
			request = resp.UnprocessedKeys
		}
	}

	out := make([][]float64, len(ids))
	for i, id := range ids {
		v, ok := found[id]
		if !ok {
			return nil, &descriptor.NotFoundError{ID: id}
		}
		out[i] = v
	}
	return out, nil
}

// AllIdentifiers implements descriptor.Store.
func (s *Store) AllIdentifiers(ctx context.Context) ([]descriptor.ID, error) {
	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#ns = :ns"),
		ExpressionAttributeNames: map[string]string{
			"#ns": attrNamespace,
			"#id": attrID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ns": &types.AttributeValueMemberS{Value: s.namespace},
		},
		ProjectionExpression: aws.String("#id"),
		ConsistentRead:       aws.Bool(true),
	})

	var ids []descriptor.ID
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: list: %w", err)
		}
		for _, item := range page.Items {
			id, err := decodeID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// AddMany implements descriptor.Writer. Existing identifiers are replaced.
func (s *Store) AddMany(ctx context.Context, descriptors []descriptor.Descriptor) error {
	for start := 0; start < len(descriptors); start += maxBatchWrite {
		chunk := descriptors[start:min(start+maxBatchWrite, len(descriptors))]
		writes := make([]types.WriteRequest, len(chunk))
		for i, d := range chunk {
			item := s.key(d.ID)
			item[attrVector] = &types.AttributeValueMemberB{Value: encodeVector(d.Vector)}
			writes[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
		}

		request := map[string][]types.WriteRequest{s.tableName: writes}
		for round := 0; len(request) > 0; round++ {
			if round == maxUnprocessedRounds {
				return ErrUnprocessed
			}
			resp, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: request})
			if err != nil {
				return fmt.Errorf("dynamodb: batch write: %w", err)
			}
			request = resp.UnprocessedItems
		}
	}
	return nil
}

// Delete removes id. Deleting a missing identifier is not an error.
func (s *Store) Delete(ctx context.Context, id descriptor.ID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(id),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: delete %d: %w", id, err)
	}
	return nil
}

func decodeID(item map[string]types.AttributeValue) (descriptor.ID, error) {
	n, ok := item[attrID].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("dynamodb: item has no numeric id attribute")
	}
	id, err := strconv.ParseUint(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: parse id %q: %w", n.Value, err)
	}
	return descriptor.ID(id), nil
}

func decodeItem(item map[string]types.AttributeValue) (descriptor.ID, []float64, error) {
	id, err := decodeID(item)
	if err != nil {
		return 0, nil, err
	}
	b, ok := item[attrVector].(*types.AttributeValueMemberB)
	if !ok || len(b.Value)%8 != 0 {
		return 0, nil, fmt.Errorf("dynamodb: descriptor %d has an invalid vector attribute", id)
	}
	v := make([]float64, len(b.Value)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b.Value[8*i:]))
	}
	return id, v, nil
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

var (
	_ descriptor.Store       = (*Store)(nil)
	_ descriptor.Writer      = (*Store)(nil)
	_ descriptor.BatchGetter = (*Store)(nil)
)
