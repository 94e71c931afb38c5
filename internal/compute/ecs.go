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

package compute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/mikelane/tempus/internal/preview"
)

const (
	// containerName is the single container every preview task runs.
	containerName = "backend"

	// containerPort is the port the preview application listens on; the
	// routing pool forwards to it.
	containerPort = 8000

	taskCPU    = "256"
	taskMemory = "512"

	healthCheckGraceSeconds = 60
)

// ECSAPI is the subset of the ECS client used by the provider.
type ECSAPI interface {
	RegisterTaskDefinition(ctx context.Context, params *ecs.RegisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.RegisterTaskDefinitionOutput, error)
	CreateService(ctx context.Context, params *ecs.CreateServiceInput, optFns ...func(*ecs.Options)) (*ecs.CreateServiceOutput, error)
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	DeleteService(ctx context.Context, params *ecs.DeleteServiceInput, optFns ...func(*ecs.Options)) (*ecs.DeleteServiceOutput, error)
}

// ECSConfig carries the fixed infrastructure the provider launches previews
// into.
type ECSConfig struct {
	ClusterName          string
	TaskExecutionRoleArn string
	TaskRoleArn          string
	SecurityGroupID      string
	SubnetIDs            []string
	ContainerImage       string
	LogGroupName         string
	Region               string
}

// ECS runs one Fargate service per preview environment.
type ECS struct {
	api ECSAPI
	cfg ECSConfig
}

// NewECS creates an ECS-backed compute provider.
func NewECS(api ECSAPI, cfg ECSConfig) *ECS {
	return &ECS{
		api: api,
		cfg: cfg,
	}
}

// CreateWorkload registers a task definition for the preview and starts a
// Fargate service attached to the given routing pool. The returned reference
// is the service ARN.
func (e *ECS) CreateWorkload(ctx context.Context, previewID, poolRef string) (string, error) {
	family := workloadName(previewID)

	taskDef, err := e.api.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(family),
		NetworkMode:             ecstypes.NetworkModeAwsvpc,
		RequiresCompatibilities: []ecstypes.Compatibility{ecstypes.CompatibilityFargate},
		Cpu:                     aws.String(taskCPU),
		Memory:                  aws.String(taskMemory),
		ExecutionRoleArn:        aws.String(e.cfg.TaskExecutionRoleArn),
		TaskRoleArn:             aws.String(e.cfg.TaskRoleArn),
		ContainerDefinitions: []ecstypes.ContainerDefinition{
			{
				Name:      aws.String(containerName),
				Image:     aws.String(e.cfg.ContainerImage),
				Essential: aws.Bool(true),
				PortMappings: []ecstypes.PortMapping{
					{
						ContainerPort: aws.Int32(containerPort),
						Protocol:      ecstypes.TransportProtocolTcp,
					},
				},
				LogConfiguration: &ecstypes.LogConfiguration{
					LogDriver: ecstypes.LogDriverAwslogs,
					Options: map[string]string{
						"awslogs-group":         e.cfg.LogGroupName,
						"awslogs-region":        e.cfg.Region,
						"awslogs-stream-prefix": "ecs",
					},
				},
				Environment: []ecstypes.KeyValuePair{
					{
						Name:  aws.String("AWS_REGION"),
						Value: aws.String(e.cfg.Region),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register task definition for %s: %w", previewID, err)
	}

	svc, err := e.api.CreateService(ctx, &ecs.CreateServiceInput{
		Cluster:        aws.String(e.cfg.ClusterName),
		ServiceName:    aws.String(workloadName(previewID)),
		TaskDefinition: taskDef.TaskDefinition.TaskDefinitionArn,
		DesiredCount:   aws.Int32(1),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        e.cfg.SubnetIDs,
				SecurityGroups: []string{e.cfg.SecurityGroupID},
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		LoadBalancers: []ecstypes.LoadBalancer{
			{
				TargetGroupArn: aws.String(poolRef),
				ContainerName:  aws.String(containerName),
				ContainerPort:  aws.Int32(containerPort),
			},
		},
		HealthCheckGracePeriodSeconds: aws.Int32(healthCheckGraceSeconds),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create service for %s: %w", previewID, err)
	}

	return aws.ToString(svc.Service.ServiceArn), nil
}

// WorkloadStatus reports the service's lifecycle state and instance counts.
func (e *ECS) WorkloadStatus(ctx context.Context, computeRef string) (*preview.WorkloadStatus, error) {
	name := serviceNameFromRef(computeRef)

	out, err := e.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(e.cfg.ClusterName),
		Services: []string{name},
	})
	if err != nil {
		if isServiceNotFound(err) {
			return nil, preview.ErrNotFound
		}
		return nil, fmt.Errorf("failed to describe service %s: %w", name, err)
	}

	// DescribeServices reports a missing service as a failure entry, not
	// an API error.
	if len(out.Services) == 0 {
		return nil, preview.ErrNotFound
	}

	svc := out.Services[0]
	return &preview.WorkloadStatus{
		State:        aws.ToString(svc.Status),
		DesiredCount: svc.DesiredCount,
		RunningCount: svc.RunningCount,
		PendingCount: svc.PendingCount,
	}, nil
}

// Drain sets the service's desired count to zero so running tasks stop
// before deletion.
func (e *ECS) Drain(ctx context.Context, computeRef string) error {
	name := serviceNameFromRef(computeRef)

	_, err := e.api.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(e.cfg.ClusterName),
		Service:      aws.String(name),
		DesiredCount: aws.Int32(0),
	})
	if err != nil {
		if isServiceNotFound(err) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to drain service %s: %w", name, err)
	}
	return nil
}

// Delete force-deletes the service regardless of remaining tasks.
func (e *ECS) Delete(ctx context.Context, computeRef string) error {
	name := serviceNameFromRef(computeRef)

	_, err := e.api.DeleteService(ctx, &ecs.DeleteServiceInput{
		Cluster: aws.String(e.cfg.ClusterName),
		Service: aws.String(name),
		Force:   aws.Bool(true),
	})
	if err != nil {
		if isServiceNotFound(err) {
			return preview.ErrNotFound
		}
		return fmt.Errorf("failed to delete service %s: %w", name, err)
	}
	return nil
}

func isServiceNotFound(err error) bool {
	var notFound *ecstypes.ServiceNotFoundException
	if errors.As(err, &notFound) {
		return true
	}
	// A service that was already deleted and garbage-collected reports as
	// not active rather than not found.
	var notActive *ecstypes.ServiceNotActiveException
	return errors.As(err, &notActive)
}

// workloadName is the service and task-definition family name for a preview.
func workloadName(previewID string) string {
	return "preview-" + previewID
}

// serviceNameFromRef accepts either a bare service name or a full service
// ARN and returns the service name.
func serviceNameFromRef(computeRef string) string {
	if idx := strings.LastIndex(computeRef, "/"); idx >= 0 {
		return computeRef[idx+1:]
	}
	return computeRef
}
