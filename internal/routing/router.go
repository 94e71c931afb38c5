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

	"github.com/mikelane/tempus/internal/preview"
)

// Router is the traffic-routing contract the lifecycle orchestrator and the
// cleanup saga depend on.
type Router interface {
	// CreatePool provisions a target pool for the preview and returns its
	// reference.
	CreatePool(ctx context.Context, previewID string) (string, error)

	// CreateRule binds a path rule for the preview to the pool at the
	// given listener priority. Returns preview.ErrPriorityInUse when the
	// priority collides with an existing rule.
	CreateRule(ctx context.Context, previewID, poolRef string, priority int32) (string, error)

	// PoolHealth reports the aggregated endpoint health of the pool.
	// Returns preview.ErrNotFound if the pool does not exist.
	PoolHealth(ctx context.Context, poolRef string) (*preview.PoolHealth, error)

	// DeleteRule removes the path rule. Returns preview.ErrNotFound if
	// the rule does not exist.
	DeleteRule(ctx context.Context, ruleRef string) error

	// DeletePool removes the target pool. Must be called only after the
	// rule referencing it is gone. Returns preview.ErrNotFound if the
	// pool does not exist.
	DeletePool(ctx context.Context, poolRef string) error
}
