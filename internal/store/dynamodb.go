// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mikelane/tempus/internal/preview"
)

// DynamoAPI is the subset of the DynamoDB client used by the store.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Dynamo is the DynamoDB-backed metadata store.
type Dynamo struct {
	api       DynamoAPI
	tableName string
}

// NewDynamo creates a metadata store over the given DynamoDB table.
func NewDynamo(api DynamoAPI, tableName string) *Dynamo {
	return &Dynamo{
		api:       api,
		tableName: tableName,
	}
}

// record is the wire layout of a preview environment in DynamoDB. Timestamps
// are ISO-8601 UTC strings with a Z suffix.
type record struct {
	PreviewID      string `dynamodbav:"preview_id"`
	ComputeRef     string `dynamodbav:"compute_ref"`
	RoutingPoolRef string `dynamodbav:"routing_pool_ref"`
	RoutingRuleRef string `dynamodbav:"routing_rule_ref"`
	ScheduleRef    string `dynamodbav:"schedule_ref,omitempty"`
	ExpiresAt      string `dynamodbav:"expires_at"`
	CreatedAt      string `dynamodbav:"created_at"`
}

func toRecord(env preview.Environment) record {
	return record{
		PreviewID:      env.PreviewID,
		ComputeRef:     env.ComputeRef,
		RoutingPoolRef: env.RoutingPoolRef,
		RoutingRuleRef: env.RoutingRuleRef,
		ScheduleRef:    env.ScheduleRef,
		ExpiresAt:      FormatTimestamp(env.ExpiresAt),
		CreatedAt:      FormatTimestamp(env.CreatedAt),
	}
}

func (r record) toEnvironment() (preview.Environment, error) {
	expiresAt, err := ParseTimestamp(r.ExpiresAt)
	if err != nil {
		return preview.Environment{}, fmt.Errorf("failed to parse expires_at for %s: %w", r.PreviewID, err)
	}
	createdAt, err := ParseTimestamp(r.CreatedAt)
	if err != nil {
		return preview.Environment{}, fmt.Errorf("failed to parse created_at for %s: %w", r.PreviewID, err)
	}
	return preview.Environment{
		PreviewID:      r.PreviewID,
		ComputeRef:     r.ComputeRef,
		RoutingPoolRef: r.RoutingPoolRef,
		RoutingRuleRef: r.RoutingRuleRef,
		ScheduleRef:    r.ScheduleRef,
		ExpiresAt:      expiresAt,
		CreatedAt:      createdAt,
	}, nil
}

// FormatTimestamp renders an instant in the persisted wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a persisted timestamp back into a UTC instant.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Put persists the record, overwriting any existing item.
func (d *Dynamo) Put(ctx context.Context, env preview.Environment) error {
	item, err := attributevalue.MarshalMap(toRecord(env))
	if err != nil {
		return fmt.Errorf("failed to marshal record for %s: %w", env.PreviewID, err)
	}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store metadata for %s: %w", env.PreviewID, err)
	}
	return nil
}

// Get returns the record for the given id, or preview.ErrNotFound.
func (d *Dynamo) Get(ctx context.Context, previewID string) (*preview.Environment, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       recordKey(previewID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata for %s: %w", previewID, err)
	}
	if len(out.Item) == 0 {
		return nil, preview.ErrNotFound
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record for %s: %w", previewID, err)
	}
	env, err := rec.toEnvironment()
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// List scans the table and returns all live records.
func (d *Dynamo) List(ctx context.Context) ([]preview.Environment, error) {
	envs := []preview.Environment{}

	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := d.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list metadata: %w", err)
		}

		var recs []record
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal records: %w", err)
		}
		for _, rec := range recs {
			env, err := rec.toEnvironment()
			if err != nil {
				return nil, err
			}
			envs = append(envs, env)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return envs, nil
}

// UpdateExpiry sets a new expiration and schedule reference on an existing
// record. The conditional write guarantees it never resurrects a record the
// cleanup saga already removed.
func (d *Dynamo) UpdateExpiry(ctx context.Context, previewID string, expiresAt time.Time, scheduleRef string) error {
	_, err := d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 recordKey(previewID),
		UpdateExpression:    aws.String("SET expires_at = :expires, schedule_ref = :schedule"),
		ConditionExpression: aws.String("attribute_exists(preview_id)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":expires":  &ddbtypes.AttributeValueMemberS{Value: FormatTimestamp(expiresAt)},
			":schedule": &ddbtypes.AttributeValueMemberS{Value: scheduleRef},
		},
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to update expiry for %s: %w", previewID, err)
	}
	return nil
}

// Delete removes the record. DynamoDB deletes are idempotent, so deleting an
// absent record is success.
func (d *Dynamo) Delete(ctx context.Context, previewID string) error {
	_, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       recordKey(previewID),
	})
	if err != nil {
		var notFound *ddbtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete metadata for %s: %w", previewID, err)
	}
	return nil
}

func recordKey(previewID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"preview_id": &ddbtypes.AttributeValueMemberS{Value: previewID},
	}
}
