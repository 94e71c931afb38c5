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

import "hash/fnv"

const (
	// priorityBase is the lowest priority ever assigned to a preview rule.
	// Priorities below it are reserved for statically managed rules.
	priorityBase = 1000

	// prioritySpan is the size of the derived priority range. Derived
	// priorities fall in [priorityBase, priorityBase+prioritySpan).
	prioritySpan = 49000

	// DefaultPriorityAttempts is the default bounded retry budget for
	// priority collisions. Exhausting it is a hard provisioning failure.
	DefaultPriorityAttempts = 10
)

// RulePriority derives the initial listener-rule priority for a preview id.
//
// The derivation is a pure function so that retries across processes and
// crash recoveries land on the same priority:
//
//	priority = fnv1a64(previewID) mod 49000 + 1000
func RulePriority(previewID string) int32 {
	h := fnv.New64a()
	h.Write([]byte(previewID)) //nolint:errcheck // hash.Hash never errors
	return int32(h.Sum64()%prioritySpan) + priorityBase
}

// NextPriority returns the deterministic perturbation of a colliding
// priority:
//
//	next = (priority + 1) mod 49000 + 1000
//
// Callers retry with it up to their attempt budget.
func NextPriority(priority int32) int32 {
	return (priority+1)%prioritySpan + priorityBase
}
