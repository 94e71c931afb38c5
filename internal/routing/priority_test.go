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
	"testing"

	"github.com/google/uuid"
)

func TestRulePriority_is_deterministic(t *testing.T) {
	id := "550e8400-e29b-41d4-a716-446655440000"

	first := RulePriority(id)
	for i := 0; i < 100; i++ {
		if got := RulePriority(id); got != first {
			t.Fatalf("RulePriority(%q) not deterministic: got %d then %d", id, first, got)
		}
	}
}

func TestRulePriority_stays_in_allowed_range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		p := RulePriority(uuid.NewString())
		if p < priorityBase || p >= priorityBase+prioritySpan {
			t.Fatalf("RulePriority() = %d, want within [%d, %d)", p, priorityBase, priorityBase+prioritySpan)
		}
	}
}

func TestNextPriority_perturbs_within_range(t *testing.T) {
	p := RulePriority("some-preview")
	seen := map[int32]bool{p: true}

	for i := 0; i < DefaultPriorityAttempts; i++ {
		p = NextPriority(p)
		if p < priorityBase || p >= priorityBase+prioritySpan {
			t.Fatalf("NextPriority() = %d, want within [%d, %d)", p, priorityBase, priorityBase+prioritySpan)
		}
		seen[p] = true
	}

	// A full retry budget must visit distinct priorities.
	if len(seen) != DefaultPriorityAttempts+1 {
		t.Errorf("NextPriority() revisited a priority within the budget: %d distinct of %d", len(seen), DefaultPriorityAttempts+1)
	}
}

func TestNextPriority_wraps_at_top_of_range(t *testing.T) {
	top := int32(priorityBase + prioritySpan - 1)
	got := NextPriority(top)
	if got < priorityBase || got >= priorityBase+prioritySpan {
		t.Errorf("NextPriority(top) = %d, want within [%d, %d)", got, priorityBase, priorityBase+prioritySpan)
	}
}

func TestPathPattern_matches_preview_prefix(t *testing.T) {
	got := PathPattern("abc-123")
	if got != "/preview-abc-123/*" {
		t.Errorf("PathPattern() = %q, want %q", got, "/preview-abc-123/*")
	}
}

func TestPoolName_truncates_long_ids(t *testing.T) {
	name := poolName("550e8400-e29b-41d4-a716-446655440000")
	if len(name) > 32 {
		t.Errorf("poolName() = %q (%d chars), want at most 32", name, len(name))
	}
	if name != "preview-550e8400-e29b-41d4-a716-" {
		t.Errorf("poolName() = %q", name)
	}
}
