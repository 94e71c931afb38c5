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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/preview"
)

// Payload is the scheduled-invocation payload delivered to the cleanup
// entry point.
type Payload struct {
	PreviewID string `json:"preview_id"`
}

// EventBridgeAPI is the subset of the EventBridge client used by the
// scheduler.
type EventBridgeAPI interface {
	PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
	ListTargetsByRule(ctx context.Context, params *eventbridge.ListTargetsByRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
	RemoveTargets(ctx context.Context, params *eventbridge.RemoveTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error)
	DeleteRule(ctx context.Context, params *eventbridge.DeleteRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error)
}

// LambdaAPI is the subset of the Lambda client used to manage the
// invocation-permission grant on the cleanup function.
type LambdaAPI interface {
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	RemovePermission(ctx context.Context, params *lambda.RemovePermissionInput, optFns ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error)
}

// STSAPI resolves the account id used in rule ARNs for permission grants.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// EventBridgeConfig identifies the cleanup function and region the scheduler
// operates in.
type EventBridgeConfig struct {
	CleanupFunctionArn string
	Region             string
}

// EventBridge schedules one-shot cleanup invocations as cron rules
// targeting the cleanup Lambda.
type EventBridge struct {
	events EventBridgeAPI
	lambda LambdaAPI
	sts    STSAPI
	cfg    EventBridgeConfig
	log    *zap.Logger

	accountOnce sync.Once
	accountID   string
	accountErr  error
}

// NewEventBridge creates an EventBridge-backed scheduler.
func NewEventBridge(events EventBridgeAPI, lambdaAPI LambdaAPI, stsAPI STSAPI, cfg EventBridgeConfig, log *zap.Logger) *EventBridge {
	return &EventBridge{
		events: events,
		lambda: lambdaAPI,
		sts:    stsAPI,
		cfg:    cfg,
		log:    log,
	}
}

// Schedule upserts the rule under ruleName to fire at the given instant and
// binds the cleanup Lambda as its target. PutRule on an existing name
// replaces the schedule expression, so rescheduling never double-fires.
func (e *EventBridge) Schedule(ctx context.Context, previewID, ruleName string, fireAt time.Time) (string, error) {
	_, err := e.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(ruleName),
		ScheduleExpression: aws.String(CronExpression(fireAt)),
		State:              ebtypes.RuleStateEnabled,
		Description:        aws.String(fmt.Sprintf("Cleanup rule for preview %s", previewID)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put cleanup rule %s: %w", ruleName, err)
	}

	input, err := json.Marshal(Payload{PreviewID: previewID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cleanup payload for %s: %w", previewID, err)
	}

	_, err = e.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(ruleName),
		Targets: []ebtypes.Target{
			{
				Id:    aws.String("1"),
				Arn:   aws.String(e.cfg.CleanupFunctionArn),
				Input: aws.String(string(input)),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put cleanup target for %s: %w", ruleName, err)
	}

	e.grantInvokePermission(ctx, previewID, ruleName)

	return ruleName, nil
}

// grantInvokePermission lets EventBridge invoke the cleanup function from
// this rule. The grant usually already exists from a previous schedule of
// the same preview; conflicts are expected and only logged.
func (e *EventBridge) grantInvokePermission(ctx context.Context, previewID, ruleName string) {
	accountID, err := e.callerAccount(ctx)
	if err != nil {
		e.log.Warn("could not resolve account for invoke permission",
			zap.String("preview_id", previewID),
			zap.Error(err))
		return
	}

	_, err = e.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(e.cfg.CleanupFunctionArn),
		StatementId:  aws.String(statementID(previewID)),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("events.amazonaws.com"),
		SourceArn:    aws.String(fmt.Sprintf("arn:aws:events:%s:%s:rule/%s", e.cfg.Region, accountID, ruleName)),
	})
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		var invalidParam *lambdatypes.InvalidParameterValueException
		if errors.As(err, &conflict) || errors.As(err, &invalidParam) {
			return
		}
		e.log.Warn("could not add invoke permission",
			zap.String("preview_id", previewID),
			zap.String("rule", ruleName),
			zap.Error(err))
	}
}

func (e *EventBridge) callerAccount(ctx context.Context) (string, error) {
	e.accountOnce.Do(func() {
		out, err := e.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			e.accountErr = err
			return
		}
		e.accountID = aws.ToString(out.Account)
	})
	return e.accountID, e.accountErr
}

// Cancel removes the rule's target binding, the rule itself and the invoke
// permission grant. An absent rule is reported as preview.ErrNotFound.
func (e *EventBridge) Cancel(ctx context.Context, ruleName string) error {
	targets, err := e.events.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{
		Rule: aws.String(ruleName),
	})
	if err != nil {
		if isRuleNotFound(err) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to list targets for rule %s: %w", ruleName, err)
	}

	if len(targets.Targets) > 0 {
		ids := make([]string, 0, len(targets.Targets))
		for _, t := range targets.Targets {
			ids = append(ids, aws.ToString(t.Id))
		}
		if _, err := e.events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
			Rule: aws.String(ruleName),
			Ids:  ids,
		}); err != nil && !isRuleNotFound(err) {
			return fmt.Errorf("failed to remove targets for rule %s: %w", ruleName, err)
		}

		e.revokeInvokePermission(ctx, ruleName, targets.Targets)
	}

	if _, err := e.events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{
		Name: aws.String(ruleName),
	}); err != nil {
		if isRuleNotFound(err) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to delete rule %s: %w", ruleName, err)
	}
	return nil
}

// revokeInvokePermission removes the grant added at schedule time. A grant
// that is already gone is fine.
func (e *EventBridge) revokeInvokePermission(ctx context.Context, ruleName string, targets []ebtypes.Target) {
	for _, t := range targets {
		arn := aws.ToString(t.Arn)
		if !strings.Contains(arn, ":lambda:") {
			continue
		}
		_, err := e.lambda.RemovePermission(ctx, &lambda.RemovePermissionInput{
			FunctionName: aws.String(arn),
			StatementId:  aws.String(statementID(previewIDFromRule(ruleName))),
		})
		if err != nil {
			var notFound *lambdatypes.ResourceNotFoundException
			if errors.As(err, &notFound) {
				continue
			}
			e.log.Warn("could not remove invoke permission",
				zap.String("rule", ruleName),
				zap.Error(err))
		}
	}
}

func isRuleNotFound(err error) bool {
	var notFound *ebtypes.ResourceNotFoundException
	return errors.As(err, &notFound)
}

// statementID is the permission-statement name for a preview's grant, built
// from the first 8 characters of the id.
func statementID(previewID string) string {
	id := previewID
	if len(id) > 8 {
		id = id[:8]
	}
	return "eventbridge-" + id
}

// previewIDFromRule recovers the preview id from a canonical rule name. Rule
// names that do not carry the canonical prefix are returned unchanged.
func previewIDFromRule(ruleName string) string {
	return strings.TrimPrefix(ruleName, canonicalPrefix)
}
