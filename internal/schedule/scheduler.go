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
	"fmt"
	"time"
)

// canonicalPrefix prefixes every cleanup rule name.
const canonicalPrefix = "tempus-cleanup-"

// Scheduler is the scheduled-invocation contract the lifecycle orchestrator
// and the cleanup saga depend on.
type Scheduler interface {
	// Schedule arranges a one-shot cleanup invocation for the preview at
	// the given instant, under the given rule name, and returns the rule
	// name. Scheduling an existing name replaces its firing time: from
	// the caller's point of view the old invocation no longer exists.
	Schedule(ctx context.Context, previewID, ruleName string, fireAt time.Time) (string, error)

	// Cancel removes the scheduled invocation, its target binding and any
	// invocation-permission grant. Returns preview.ErrNotFound if the
	// schedule does not exist.
	Cancel(ctx context.Context, ruleName string) error
}

// CanonicalRuleName derives the schedule name for a preview id. It is a pure
// function: extend uses it whenever a record carries no schedule reference,
// and the result is identical no matter which process computes it.
func CanonicalRuleName(previewID string) string {
	return canonicalPrefix + previewID
}

// CronExpression renders a one-shot cron expression matching the exact UTC
// instant, in the form cron(minute hour day month ? year).
func CronExpression(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("cron(%d %d %d %d ? %d)", t.Minute(), t.Hour(), t.Day(), int(t.Month()), t.Year())
}
