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

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikelane/tempus/internal/preview"
)

func testEnvironment(id string) preview.Environment {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return preview.Environment{
		PreviewID:      id,
		ComputeRef:     "arn:aws:ecs:us-east-1:123:service/preview-" + id,
		RoutingPoolRef: "arn:aws:elasticloadbalancing:us-east-1:123:targetgroup/preview-" + id,
		RoutingRuleRef: "arn:aws:elasticloadbalancing:us-east-1:123:listener-rule/" + id,
		ScheduleRef:    "tempus-cleanup-" + id,
		ExpiresAt:      created.Add(2 * time.Hour),
		CreatedAt:      created,
	}
}

func TestMemory_get_returns_not_found_for_unknown_id(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "missing")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("Get() error = %v, want preview.ErrNotFound", err)
	}
}

func TestMemory_put_then_get_round_trips(t *testing.T) {
	m := NewMemory()
	env := testEnvironment("abc")

	if err := m.Put(context.Background(), env); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := m.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got != env {
		t.Errorf("Get() = %+v, want %+v", *got, env)
	}
}

func TestMemory_update_expiry_requires_existing_record(t *testing.T) {
	m := NewMemory()

	err := m.UpdateExpiry(context.Background(), "missing", time.Now().Add(time.Hour), "rule")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("UpdateExpiry() error = %v, want preview.ErrNotFound", err)
	}
}

func TestMemory_update_expiry_mutates_only_expiry_and_schedule(t *testing.T) {
	m := NewMemory()
	env := testEnvironment("abc")
	if err := m.Put(context.Background(), env); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	newExpiry := env.ExpiresAt.Add(time.Hour)
	if err := m.UpdateExpiry(context.Background(), "abc", newExpiry, "new-rule"); err != nil {
		t.Fatalf("UpdateExpiry() error = %v", err)
	}

	got, err := m.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.ExpiresAt.Equal(newExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, newExpiry)
	}
	if got.ScheduleRef != "new-rule" {
		t.Errorf("ScheduleRef = %q, want %q", got.ScheduleRef, "new-rule")
	}
	if got.ComputeRef != env.ComputeRef || got.RoutingPoolRef != env.RoutingPoolRef {
		t.Errorf("UpdateExpiry() modified immutable references")
	}
}

func TestMemory_delete_is_idempotent(t *testing.T) {
	m := NewMemory()
	env := testEnvironment("abc")
	if err := m.Put(context.Background(), env); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := m.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(context.Background(), "abc"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}

	_, err := m.Get(context.Background(), "abc")
	if !errors.Is(err, preview.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want preview.ErrNotFound", err)
	}
}

func TestMemory_list_orders_by_creation_time(t *testing.T) {
	m := NewMemory()

	older := testEnvironment("older")
	newer := testEnvironment("newer")
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	if err := m.Put(context.Background(), newer); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := m.Put(context.Background(), older); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	envs, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(envs))
	}
	if envs[0].PreviewID != "older" || envs[1].PreviewID != "newer" {
		t.Errorf("List() order = [%s %s], want [older newer]", envs[0].PreviewID, envs[1].PreviewID)
	}
}
