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
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mikelane/tempus/internal/preview"
)

// stubDynamo returns canned responses for the subset of calls a test needs.
type stubDynamo struct {
	DynamoAPI

	getOut    *dynamodb.GetItemOutput
	getErr    error
	updateErr error
}

func (s *stubDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return s.getOut, s.getErr
}

func (s *stubDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestFormatTimestamp_is_utc_with_z_suffix(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, est)

	got := FormatTimestamp(ts)
	want := "2024-01-01T14:00:00Z"
	if got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}

	parsed, err := ParseTimestamp(got)
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("ParseTimestamp() = %v, want instant %v", parsed, ts)
	}
}

func TestDynamo_get_maps_missing_item_to_not_found(t *testing.T) {
	d := NewDynamo(&stubDynamo{getOut: &dynamodb.GetItemOutput{}}, "previews")

	_, err := d.Get(context.Background(), "missing")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("Get() error = %v, want preview.ErrNotFound", err)
	}
}

func TestDynamo_get_unmarshals_wire_record(t *testing.T) {
	item := map[string]ddbtypes.AttributeValue{
		"preview_id":       &ddbtypes.AttributeValueMemberS{Value: "abc"},
		"compute_ref":      &ddbtypes.AttributeValueMemberS{Value: "svc-arn"},
		"routing_pool_ref": &ddbtypes.AttributeValueMemberS{Value: "tg-arn"},
		"routing_rule_ref": &ddbtypes.AttributeValueMemberS{Value: "rule-arn"},
		"schedule_ref":     &ddbtypes.AttributeValueMemberS{Value: "tempus-cleanup-abc"},
		"expires_at":       &ddbtypes.AttributeValueMemberS{Value: "2024-01-01T14:00:00Z"},
		"created_at":       &ddbtypes.AttributeValueMemberS{Value: "2024-01-01T12:00:00Z"},
	}
	d := NewDynamo(&stubDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}, "previews")

	env, err := d.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if env.ComputeRef != "svc-arn" || env.RoutingPoolRef != "tg-arn" || env.RoutingRuleRef != "rule-arn" {
		t.Errorf("Get() references = %+v, want svc-arn/tg-arn/rule-arn", env)
	}
	if env.ScheduleRef != "tempus-cleanup-abc" {
		t.Errorf("ScheduleRef = %q, want %q", env.ScheduleRef, "tempus-cleanup-abc")
	}
	wantExpiry := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	if !env.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", env.ExpiresAt, wantExpiry)
	}
}

func TestDynamo_update_expiry_maps_condition_failure_to_not_found(t *testing.T) {
	d := NewDynamo(&stubDynamo{updateErr: &ddbtypes.ConditionalCheckFailedException{}}, "previews")

	err := d.UpdateExpiry(context.Background(), "missing", time.Now().Add(time.Hour), "rule")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("UpdateExpiry() error = %v, want preview.ErrNotFound", err)
	}
}
