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
	"time"

	"github.com/mikelane/tempus/internal/preview"
)

// Store is the metadata store contract the lifecycle orchestrator depends on.
type Store interface {
	// Put persists a complete environment record, overwriting any existing
	// record with the same id.
	Put(ctx context.Context, env preview.Environment) error

	// Get returns the record for the given id, or preview.ErrNotFound.
	Get(ctx context.Context, previewID string) (*preview.Environment, error)

	// List returns all live environment records.
	List(ctx context.Context) ([]preview.Environment, error)

	// UpdateExpiry sets a new expiration instant and schedule reference on
	// an existing record. Returns preview.ErrNotFound if no record exists;
	// it never creates one.
	UpdateExpiry(ctx context.Context, previewID string, expiresAt time.Time, scheduleRef string) error

	// Delete removes the record. Deleting an absent record is success.
	Delete(ctx context.Context, previewID string) error
}
