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
	"sort"
	"sync"
	"time"

	"github.com/mikelane/tempus/internal/preview"
)

// Memory is an in-process Store used by tests and local development. It
// honors the same contract as Dynamo, including idempotent deletes.
type Memory struct {
	mu   sync.RWMutex
	envs map[string]preview.Environment
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		envs: make(map[string]preview.Environment),
	}
}

// Put persists the record, overwriting any existing one.
func (m *Memory) Put(ctx context.Context, env preview.Environment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envs[env.PreviewID] = env
	return nil
}

// Get returns the record for the given id, or preview.ErrNotFound.
func (m *Memory) Get(ctx context.Context, previewID string) (*preview.Environment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	env, ok := m.envs[previewID]
	if !ok {
		return nil, preview.ErrNotFound
	}
	return &env, nil
}

// List returns all records ordered by creation time.
func (m *Memory) List(ctx context.Context) ([]preview.Environment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	envs := make([]preview.Environment, 0, len(m.envs))
	for _, env := range m.envs {
		envs = append(envs, env)
	}
	sort.Slice(envs, func(i, j int) bool {
		return envs[i].CreatedAt.Before(envs[j].CreatedAt)
	})
	return envs, nil
}

// UpdateExpiry sets a new expiration and schedule reference on an existing
// record, or returns preview.ErrNotFound.
func (m *Memory) UpdateExpiry(ctx context.Context, previewID string, expiresAt time.Time, scheduleRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.envs[previewID]
	if !ok {
		return preview.ErrNotFound
	}
	env.ExpiresAt = expiresAt.UTC()
	env.ScheduleRef = scheduleRef
	m.envs[previewID] = env
	return nil
}

// Delete removes the record; deleting an absent record is success.
func (m *Memory) Delete(ctx context.Context, previewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.envs, previewID)
	return nil
}
