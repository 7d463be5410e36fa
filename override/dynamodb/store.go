// Package dynamodb implements override.Store on Amazon DynamoDB.
//
// The (owner, item) uniqueness invariant maps directly onto the table's
// composite primary key, and UpdateItem gives patch semantics for free:
// untouched attributes survive, and a missing row is created with the patch
// applied.
//
// Table schema:
//   - Partition key: owner_id (string)
//   - Sort key: item_id (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name catview-overrides \
//	  --attribute-definitions AttributeName=owner_id,AttributeType=S AttributeName=item_id,AttributeType=S \
//	  --key-schema AttributeName=owner_id,KeyType=HASH AttributeName=item_id,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/time/rate"

	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
)

// Client is the subset of the DynamoDB API the store uses. *dynamodb.Client
// satisfies it; tests may substitute a fake.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Store implements override.Store backed by a DynamoDB table.
type Store struct {
	client    Client
	tableName string
	limiter   *rate.Limiter
}

// Option configures a Store.
type Option func(*Store)

// WithWriteRate throttles bulk upserts to the given rate. Unthrottled by
// default; set this when the table uses provisioned capacity.
func WithWriteRate(limit rate.Limit, burst int) Option {
	return func(s *Store) {
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewStore creates a DynamoDB-backed override store.
func NewStore(client Client, tableName string, optFns ...Option) *Store {
	s := &Store{
		client:    client,
		tableName: tableName,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// NewDefaultClient creates a *dynamodb.Client from the default AWS
// configuration chain (environment, shared config, instance role).
func NewDefaultClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// List returns all override rows for an owner in a single paginated query.
func (s *Store) List(ctx context.Context, owner model.OwnerID) ([]model.Override, error) {
	var (
		out     []model.Override
		lastKey map[string]types.AttributeValue
	)

	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("owner_id = :owner"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: string(owner)},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query overrides for %q: %w", owner, err)
		}

		for _, item := range resp.Items {
			rec, err := decodeItem(owner, item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = resp.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// Upsert applies a patch to the (owner, itemID) row, creating it if absent.
func (s *Store) Upsert(ctx context.Context, owner model.OwnerID, itemID model.ItemID, patch override.Patch) error {
	return s.update(ctx, owner, itemID, patch, nil, false)
}

// UpsertChecked is Upsert with an optimistic-concurrency guard on the order
// key: the write succeeds only if the row's current order key equals
// prevOrder (nil meaning "no custom order yet"). A failed guard returns
// override.ErrConcurrentModification.
func (s *Store) UpsertChecked(ctx context.Context, owner model.OwnerID, itemID model.ItemID, patch override.Patch, prevOrder *model.OrderKey) error {
	return s.update(ctx, owner, itemID, patch, prevOrder, true)
}

// BulkUpsert applies patches row by row, reporting per-record results.
// Writes are throttled by the configured rate limit, if any.
func (s *Store) BulkUpsert(ctx context.Context, owner model.OwnerID, patches []override.ItemPatch) ([]override.BulkResult, error) {
	results := make([]override.BulkResult, len(patches))
	for i, p := range patches {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		results[i] = override.BulkResult{
			ItemID: p.ItemID,
			Err:    s.update(ctx, owner, p.ItemID, p.Patch, nil, false),
		}
	}
	return results, nil
}

func (s *Store) update(ctx context.Context, owner model.OwnerID, itemID model.ItemID, patch override.Patch, prevOrder *model.OrderKey, checked bool) error {
	var (
		sets   []string
		values = map[string]types.AttributeValue{}
	)

	if patch.Hidden != nil {
		sets = append(sets, "is_hidden = :h")
		values[":h"] = &types.AttributeValueMemberBOOL{Value: *patch.Hidden}
	}
	if patch.Order != nil {
		sets = append(sets, "order_key = :o")
		values[":o"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(*patch.Order), 10)}
	}
	if len(sets) == 0 {
		return nil
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: string(owner)},
			"item_id":  &types.AttributeValueMemberS{Value: string(itemID)},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeValues: values,
	}

	if checked {
		if prevOrder != nil {
			input.ConditionExpression = aws.String("order_key = :prev")
			values[":prev"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(*prevOrder), 10)}
		} else {
			input.ConditionExpression = aws.String("attribute_not_exists(order_key)")
		}
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return override.ErrConcurrentModification
		}
		return fmt.Errorf("upsert override %q/%q: %w", owner, itemID, err)
	}
	return nil
}

func decodeItem(owner model.OwnerID, item map[string]types.AttributeValue) (model.Override, error) {
	rec := model.Override{Owner: owner}

	idAttr, ok := item["item_id"].(*types.AttributeValueMemberS)
	if !ok {
		return model.Override{}, errors.New("invalid item_id attribute in DynamoDB")
	}
	rec.ItemID = model.ItemID(idAttr.Value)

	if h, ok := item["is_hidden"].(*types.AttributeValueMemberBOOL); ok {
		rec.Hidden = h.Value
	}
	if o, ok := item["order_key"].(*types.AttributeValueMemberN); ok {
		v, err := strconv.ParseInt(o.Value, 10, 64)
		if err != nil {
			return model.Override{}, fmt.Errorf("parse order_key for %q: %w", rec.ItemID, err)
		}
		rec.Order = model.OrderKey(v)
		rec.HasOrder = true
	}

	return rec, nil
}
