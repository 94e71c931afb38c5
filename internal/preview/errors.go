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
	"errors"
	"fmt"
)

// ErrNotFound reports that a target resource does not exist. Provider-level
// "not found" faults are normalized to this sentinel inside the adapters, so
// callers can treat absence uniformly: as a 404 on read paths and as success
// inside teardown paths.
var ErrNotFound = errors.New("not found")

// ErrPriorityInUse reports that a routing-rule priority collided with an
// existing rule on the shared listener. The caller perturbs the priority and
// retries within a bounded budget.
var ErrPriorityInUse = errors.New("rule priority already in use")

// ValidationError reports malformed client input. It is raised before any
// external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ProvisioningError reports a failed create saga. It preserves the step that
// failed and the original cause; compensation errors never replace either.
type ProvisioningError struct {
	PreviewID string
	Step      string
	Cause     error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision preview %s at step %q: %v", e.PreviewID, e.Step, e.Cause)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Cause
}
