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
	"strings"
	"time"
)

// Status is the derived lifecycle status of a preview environment.
type Status string

const (
	// StatusExpired means the TTL has elapsed and cleanup is imminent or
	// in flight.
	StatusExpired Status = "expired"

	// StatusCreating means the compute workload has not reached a stable
	// running state yet.
	StatusCreating Status = "creating"

	// StatusDegraded means the workload is running but the routing pool
	// reports unhealthy endpoints.
	StatusDegraded Status = "degraded"

	// StatusActive means the environment is serving traffic normally.
	StatusActive Status = "active"
)

// WorkloadStateActive is the compute provider state of a stable, running
// workload. Anything else (absent, draining, inactive) is transitional.
const WorkloadStateActive = "ACTIVE"

// PoolHealthy is the pool health summary of a fully healthy target pool.
const PoolHealthy = "healthy"

// DeriveStatus computes the status label for an environment. It is a pure
// function of the current instant, the expiration instant, the workload
// status and the pool health; given the same inputs it always returns the
// same label.
//
// Rules are evaluated in priority order, first match wins:
//
//  1. expired   - expiresAt <= now
//  2. creating  - workload status absent, unknown, or transitional
//  3. degraded  - pool health is known and not "healthy"
//  4. active    - otherwise
//
// Both instants are compared in UTC. The boundary case expiresAt == now is
// expired.
func DeriveStatus(now, expiresAt time.Time, workload *WorkloadStatus, pool *PoolHealth) Status {
	if !expiresAt.UTC().After(now.UTC()) {
		return StatusExpired
	}
	if workload == nil || !strings.EqualFold(workload.State, WorkloadStateActive) {
		return StatusCreating
	}
	if pool != nil && pool.Summary != PoolHealthy {
		return StatusDegraded
	}
	return StatusActive
}
