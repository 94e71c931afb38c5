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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/mikelane/tempus/internal/preview"
)

type stubECS struct {
	ECSAPI

	describeOut *ecs.DescribeServicesOutput
	describeErr error
	updateErr   error
	deleteErr   error

	lastUpdate *ecs.UpdateServiceInput
	lastDelete *ecs.DeleteServiceInput
}

func (s *stubECS) DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return s.describeOut, s.describeErr
}

func (s *stubECS) UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	s.lastUpdate = params
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &ecs.UpdateServiceOutput{}, nil
}

func (s *stubECS) DeleteService(ctx context.Context, params *ecs.DeleteServiceInput, optFns ...func(*ecs.Options)) (*ecs.DeleteServiceOutput, error) {
	s.lastDelete = params
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	return &ecs.DeleteServiceOutput{}, nil
}

func TestECS_workload_status_reports_state_and_counts(t *testing.T) {
	stub := &stubECS{
		describeOut: &ecs.DescribeServicesOutput{
			Services: []ecstypes.Service{
				{
					Status:       aws.String("ACTIVE"),
					DesiredCount: 1,
					RunningCount: 1,
					PendingCount: 0,
				},
			},
		},
	}
	e := NewECS(stub, ECSConfig{ClusterName: "tempus-cluster"})

	got, err := e.WorkloadStatus(context.Background(), "arn:aws:ecs:us-east-1:123:service/tempus-cluster/preview-abc")
	if err != nil {
		t.Fatalf("WorkloadStatus() error = %v", err)
	}
	if got.State != "ACTIVE" || got.DesiredCount != 1 || got.RunningCount != 1 {
		t.Errorf("WorkloadStatus() = %+v, want ACTIVE 1/1", got)
	}
}

func TestECS_workload_status_normalizes_missing_service_to_not_found(t *testing.T) {
	// DescribeServices reports missing services in Failures, with an empty
	// Services list and no error.
	stub := &stubECS{describeOut: &ecs.DescribeServicesOutput{}}
	e := NewECS(stub, ECSConfig{ClusterName: "tempus-cluster"})

	_, err := e.WorkloadStatus(context.Background(), "preview-gone")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("WorkloadStatus() error = %v, want preview.ErrNotFound", err)
	}
}

func TestECS_drain_sets_desired_count_to_zero(t *testing.T) {
	stub := &stubECS{}
	e := NewECS(stub, ECSConfig{ClusterName: "tempus-cluster"})

	if err := e.Drain(context.Background(), "preview-abc"); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stub.lastUpdate == nil || aws.ToInt32(stub.lastUpdate.DesiredCount) != 0 {
		t.Errorf("Drain() did not set desired count to zero: %+v", stub.lastUpdate)
	}
}

func TestECS_drain_normalizes_service_not_found(t *testing.T) {
	stub := &stubECS{updateErr: &ecstypes.ServiceNotFoundException{}}
	e := NewECS(stub, ECSConfig{ClusterName: "tempus-cluster"})

	err := e.Drain(context.Background(), "preview-gone")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("Drain() error = %v, want preview.ErrNotFound", err)
	}
}

func TestECS_delete_forces_deletion_by_service_name(t *testing.T) {
	stub := &stubECS{}
	e := NewECS(stub, ECSConfig{ClusterName: "tempus-cluster"})

	err := e.Delete(context.Background(), "arn:aws:ecs:us-east-1:123:service/tempus-cluster/preview-abc")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if aws.ToString(stub.lastDelete.Service) != "preview-abc" {
		t.Errorf("Delete() service = %q, want %q", aws.ToString(stub.lastDelete.Service), "preview-abc")
	}
	if !aws.ToBool(stub.lastDelete.Force) {
		t.Errorf("Delete() must force-delete")
	}
}

func TestServiceNameFromRef_handles_bare_names_and_arns(t *testing.T) {
	if got := serviceNameFromRef("preview-abc"); got != "preview-abc" {
		t.Errorf("serviceNameFromRef(bare) = %q", got)
	}
	if got := serviceNameFromRef("arn:aws:ecs:us-east-1:123:service/cluster/preview-abc"); got != "preview-abc" {
		t.Errorf("serviceNameFromRef(arn) = %q", got)
	}
}
