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

package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/mikelane/tempus/internal/preview"
)

const (
	// poolPort is the port targets listen on, matching the workload's
	// container port.
	poolPort = 8000

	healthCheckPath            = "/health"
	healthCheckIntervalSeconds = 30
	healthCheckTimeoutSeconds  = 5
	healthyThreshold           = 2
	unhealthyThreshold         = 2

	// poolNameIDLength caps the id portion of a pool name; target group
	// names are limited to 32 characters and carry an 8-character prefix.
	poolNameIDLength = 24
)

// ELBAPI is the subset of the ELBv2 client used by the router.
type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	CreateTargetGroup(ctx context.Context, params *elbv2.CreateTargetGroupInput, optFns ...func(*elbv2.Options)) (*elbv2.CreateTargetGroupOutput, error)
	CreateRule(ctx context.Context, params *elbv2.CreateRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.CreateRuleOutput, error)
	DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
	DeleteRule(ctx context.Context, params *elbv2.DeleteRuleInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteRuleOutput, error)
	DeleteTargetGroup(ctx context.Context, params *elbv2.DeleteTargetGroupInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteTargetGroupOutput, error)
}

// ELBConfig identifies the shared load balancer and listener previews attach
// to.
type ELBConfig struct {
	LoadBalancerArn string
	ListenerArn     string
}

// ELB routes preview traffic through a shared application load balancer.
type ELB struct {
	api ELBAPI
	cfg ELBConfig
}

// NewELB creates an ELBv2-backed traffic router.
func NewELB(api ELBAPI, cfg ELBConfig) *ELB {
	return &ELB{
		api: api,
		cfg: cfg,
	}
}

// CreatePool creates an HTTP target group for the preview in the load
// balancer's VPC and returns its ARN.
func (e *ELB) CreatePool(ctx context.Context, previewID string) (string, error) {
	lbs, err := e.api.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		LoadBalancerArns: []string{e.cfg.LoadBalancerArn},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe load balancer: %w", err)
	}
	if len(lbs.LoadBalancers) == 0 {
		return "", fmt.Errorf("load balancer %s not found", e.cfg.LoadBalancerArn)
	}
	vpcID := lbs.LoadBalancers[0].VpcId

	out, err := e.api.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:                       aws.String(poolName(previewID)),
		Protocol:                   elbtypes.ProtocolEnumHttp,
		Port:                       aws.Int32(poolPort),
		VpcId:                      vpcID,
		TargetType:                 elbtypes.TargetTypeEnumIp,
		HealthCheckPath:            aws.String(healthCheckPath),
		HealthCheckProtocol:        elbtypes.ProtocolEnumHttp,
		HealthCheckIntervalSeconds: aws.Int32(healthCheckIntervalSeconds),
		HealthCheckTimeoutSeconds:  aws.Int32(healthCheckTimeoutSeconds),
		HealthyThresholdCount:      aws.Int32(healthyThreshold),
		UnhealthyThresholdCount:    aws.Int32(unhealthyThreshold),
		Matcher:                    &elbtypes.Matcher{HttpCode: aws.String("200")},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create target group for %s: %w", previewID, err)
	}
	return aws.ToString(out.TargetGroups[0].TargetGroupArn), nil
}

// CreateRule binds /preview-<id>/* on the shared listener to the pool at the
// given priority.
func (e *ELB) CreateRule(ctx context.Context, previewID, poolRef string, priority int32) (string, error) {
	out, err := e.api.CreateRule(ctx, &elbv2.CreateRuleInput{
		ListenerArn: aws.String(e.cfg.ListenerArn),
		Priority:    aws.Int32(priority),
		Conditions: []elbtypes.RuleCondition{
			{
				Field:  aws.String("path-pattern"),
				Values: []string{PathPattern(previewID)},
			},
		},
		Actions: []elbtypes.Action{
			{
				Type:           elbtypes.ActionTypeEnumForward,
				TargetGroupArn: aws.String(poolRef),
			},
		},
	})
	if err != nil {
		var inUse *elbtypes.PriorityInUseException
		if errors.As(err, &inUse) {
			return "", fmt.Errorf("priority %d for %s: %w", priority, previewID, preview.ErrPriorityInUse)
		}
		return "", fmt.Errorf("failed to create listener rule for %s: %w", previewID, err)
	}
	return aws.ToString(out.Rules[0].RuleArn), nil
}

// PoolHealth aggregates the pool's target health descriptions.
func (e *ELB) PoolHealth(ctx context.Context, poolRef string) (*preview.PoolHealth, error) {
	out, err := e.api.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(poolRef),
	})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) {
			return nil, preview.ErrNotFound
		}
		return nil, fmt.Errorf("failed to describe target health: %w", err)
	}

	targets := make([]preview.TargetHealth, 0, len(out.TargetHealthDescriptions))
	for _, d := range out.TargetHealthDescriptions {
		th := preview.TargetHealth{}
		if d.Target != nil {
			th.ID = aws.ToString(d.Target.Id)
		}
		if d.TargetHealth != nil {
			th.State = string(d.TargetHealth.State)
			th.Reason = string(d.TargetHealth.Reason)
		}
		targets = append(targets, th)
	}

	return &preview.PoolHealth{
		Summary: summarizeHealth(targets),
		Targets: targets,
	}, nil
}

// DeleteRule removes the listener rule. An already-deleted rule is reported
// as preview.ErrNotFound.
func (e *ELB) DeleteRule(ctx context.Context, ruleRef string) error {
	_, err := e.api.DeleteRule(ctx, &elbv2.DeleteRuleInput{
		RuleArn: aws.String(ruleRef),
	})
	if err != nil {
		var notFound *elbtypes.RuleNotFoundException
		if errors.As(err, &notFound) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to delete listener rule %s: %w", ruleRef, err)
	}
	return nil
}

// DeletePool removes the target group. The provider refuses the call while a
// rule still forwards to the pool, which is why rule deletion always comes
// first.
func (e *ELB) DeletePool(ctx context.Context, poolRef string) error {
	_, err := e.api.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
		TargetGroupArn: aws.String(poolRef),
	})
	if err != nil {
		var notFound *elbtypes.TargetGroupNotFoundException
		if errors.As(err, &notFound) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to delete target group %s: %w", poolRef, err)
	}
	return nil
}

// PathPattern is the listener path pattern routing a preview's traffic.
func PathPattern(previewID string) string {
	return fmt.Sprintf("/preview-%s/*", previewID)
}

// poolName builds the pool name from the preview id, truncated to fit the
// provider's 32-character name limit.
func poolName(previewID string) string {
	id := previewID
	if len(id) > poolNameIDLength {
		id = id[:poolNameIDLength]
	}
	return "preview-" + id
}

// summarizeHealth reduces per-target health to a single label: "healthy"
// only when at least one target exists and all targets report healthy.
func summarizeHealth(targets []preview.TargetHealth) string {
	if len(targets) == 0 {
		return "unhealthy"
	}
	for _, t := range targets {
		if t.State != string(elbtypes.TargetHealthStateEnumHealthy) {
			return "unhealthy"
		}
	}
	return preview.PoolHealthy
}
