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

package preview

import (
	"fmt"
	"time"
)

// Environment is the persisted record for a live preview environment.
// All reference fields except ScheduleRef are set once at creation and never
// reassigned. ScheduleRef is reassigned when the TTL is extended.
type Environment struct {
	// PreviewID is the opaque unique identifier, generated at creation.
	PreviewID string

	// ComputeRef identifies the provisioned compute workload.
	ComputeRef string

	// RoutingPoolRef identifies the traffic-routing target pool.
	RoutingPoolRef string

	// RoutingRuleRef identifies the path-routing rule bound to the pool.
	// The rule must always be deleted before the pool.
	RoutingRuleRef string

	// ScheduleRef names the scheduled cleanup invocation. Optional: when
	// empty, the canonical name derived from PreviewID is used instead.
	ScheduleRef string

	// ExpiresAt is the absolute expiration instant, always UTC.
	ExpiresAt time.Time

	// CreatedAt is the creation instant, always UTC.
	CreatedAt time.Time
}

// URL returns the public URL of the environment behind the given router host.
func (e *Environment) URL(publicHost string) string {
	return PublicURL(publicHost, e.PreviewID)
}

// PublicURL builds the public preview URL for an environment id.
func PublicURL(publicHost, previewID string) string {
	return fmt.Sprintf("http://%s/preview-%s", publicHost, previewID)
}

// WorkloadStatus is a point-in-time view of a compute workload as reported by
// the compute provider.
type WorkloadStatus struct {
	// State is the provider's lifecycle state for the workload, e.g.
	// "ACTIVE", "DRAINING" or "INACTIVE". Empty when unknown.
	State string

	DesiredCount int32
	RunningCount int32
	PendingCount int32
}

// TargetHealth describes the health of a single endpoint in a routing pool.
type TargetHealth struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// PoolHealth is the aggregated health of a traffic-routing target pool.
type PoolHealth struct {
	// Summary is "healthy" only when the pool has at least one target and
	// every target reports healthy.
	Summary string

	Targets []TargetHealth
}
