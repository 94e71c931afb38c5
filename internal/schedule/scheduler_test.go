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

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/preview"
)

func TestCanonicalRuleName_is_stable(t *testing.T) {
	got := CanonicalRuleName("550e8400-e29b-41d4-a716-446655440000")
	want := "tempus-cleanup-550e8400-e29b-41d4-a716-446655440000"
	if got != want {
		t.Errorf("CanonicalRuleName() = %q, want %q", got, want)
	}
}

func TestCronExpression_renders_exact_utc_instant(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	at := time.Date(2024, 3, 5, 9, 7, 0, 0, est) // 14:07 UTC

	got := CronExpression(at)
	want := "cron(7 14 5 3 ? 2024)"
	if got != want {
		t.Errorf("CronExpression() = %q, want %q", got, want)
	}
}

func TestStatementID_uses_first_eight_characters(t *testing.T) {
	got := statementID("550e8400-e29b-41d4-a716-446655440000")
	if got != "eventbridge-550e8400" {
		t.Errorf("statementID() = %q, want %q", got, "eventbridge-550e8400")
	}
	if got := statementID("short"); got != "eventbridge-short" {
		t.Errorf("statementID(short) = %q", got)
	}
}

type stubEvents struct {
	putRuleIn     *eventbridge.PutRuleInput
	putTargetsIn  *eventbridge.PutTargetsInput
	listOut       *eventbridge.ListTargetsByRuleOutput
	listErr       error
	removeErr     error
	deleteRuleErr error
	removed       bool
	deleted       bool
}

func (s *stubEvents) PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	s.putRuleIn = params
	return &eventbridge.PutRuleOutput{RuleArn: aws.String("rule-arn")}, nil
}

func (s *stubEvents) PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	s.putTargetsIn = params
	return &eventbridge.PutTargetsOutput{}, nil
}

func (s *stubEvents) ListTargetsByRule(ctx context.Context, params *eventbridge.ListTargetsByRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listOut != nil {
		return s.listOut, nil
	}
	return &eventbridge.ListTargetsByRuleOutput{}, nil
}

func (s *stubEvents) RemoveTargets(ctx context.Context, params *eventbridge.RemoveTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error) {
	s.removed = true
	if s.removeErr != nil {
		return nil, s.removeErr
	}
	return &eventbridge.RemoveTargetsOutput{}, nil
}

func (s *stubEvents) DeleteRule(ctx context.Context, params *eventbridge.DeleteRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error) {
	s.deleted = true
	if s.deleteRuleErr != nil {
		return nil, s.deleteRuleErr
	}
	return &eventbridge.DeleteRuleOutput{}, nil
}

type stubLambda struct {
	added   bool
	removed bool
}

func (s *stubLambda) AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	s.added = true
	return &lambda.AddPermissionOutput{}, nil
}

func (s *stubLambda) RemovePermission(ctx context.Context, params *lambda.RemovePermissionInput, optFns ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	s.removed = true
	return &lambda.RemovePermissionOutput{}, nil
}

type stubSTS struct{}

func (s *stubSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
}

func newTestEventBridge(events *stubEvents, lam *stubLambda) *EventBridge {
	return NewEventBridge(events, lam, &stubSTS{},
		EventBridgeConfig{CleanupFunctionArn: "arn:aws:lambda:us-east-1:123456789012:function:tempus-cleanup", Region: "us-east-1"},
		zap.NewNop())
}

func TestEventBridge_schedule_upserts_rule_and_target(t *testing.T) {
	events := &stubEvents{}
	lam := &stubLambda{}
	eb := newTestEventBridge(events, lam)

	fireAt := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	name, err := eb.Schedule(context.Background(), "abc-123", "tempus-cleanup-abc-123", fireAt)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if name != "tempus-cleanup-abc-123" {
		t.Errorf("Schedule() = %q, want rule name back", name)
	}
	if aws.ToString(events.putRuleIn.ScheduleExpression) != "cron(0 14 1 1 ? 2024)" {
		t.Errorf("ScheduleExpression = %q", aws.ToString(events.putRuleIn.ScheduleExpression))
	}
	if got := aws.ToString(events.putTargetsIn.Targets[0].Input); got != `{"preview_id":"abc-123"}` {
		t.Errorf("target input = %s", got)
	}
	if !lam.added {
		t.Errorf("Schedule() did not grant invoke permission")
	}
}

func TestEventBridge_cancel_removes_targets_permission_and_rule(t *testing.T) {
	events := &stubEvents{
		listOut: &eventbridge.ListTargetsByRuleOutput{
			Targets: []ebtypes.Target{
				{Id: aws.String("1"), Arn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:tempus-cleanup")},
			},
		},
	}
	lam := &stubLambda{}
	eb := newTestEventBridge(events, lam)

	if err := eb.Cancel(context.Background(), "tempus-cleanup-abc-123"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !events.removed || !events.deleted {
		t.Errorf("Cancel() removed=%v deleted=%v, want both", events.removed, events.deleted)
	}
	if !lam.removed {
		t.Errorf("Cancel() did not revoke invoke permission")
	}
}

func TestEventBridge_cancel_normalizes_missing_rule(t *testing.T) {
	events := &stubEvents{listErr: &ebtypes.ResourceNotFoundException{}}
	eb := newTestEventBridge(events, &stubLambda{})

	err := eb.Cancel(context.Background(), "tempus-cleanup-gone")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("Cancel() error = %v, want preview.ErrNotFound", err)
	}
}
