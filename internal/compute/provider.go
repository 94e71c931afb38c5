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

	"github.com/mikelane/tempus/internal/preview"
)

// Provider is the compute contract the lifecycle orchestrator and the
// cleanup saga depend on.
type Provider interface {
	// CreateWorkload provisions a running workload for the preview, wired
	// to the given routing pool, and returns its reference.
	CreateWorkload(ctx context.Context, previewID, poolRef string) (string, error)

	// WorkloadStatus reports the workload's current state and instance
	// counts. Returns preview.ErrNotFound if the workload does not exist.
	WorkloadStatus(ctx context.Context, computeRef string) (*preview.WorkloadStatus, error)

	// Drain sets the workload's desired capacity to zero without deleting
	// it. Returns preview.ErrNotFound if the workload does not exist.
	Drain(ctx context.Context, computeRef string) error

	// Delete force-deletes the workload. Returns preview.ErrNotFound if
	// the workload does not exist.
	Delete(ctx context.Context, computeRef string) error
}
