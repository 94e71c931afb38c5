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

// Package cleanup tears down all sub-resources of a preview environment.
//
// The saga is invoked from three places: the scheduled expiry invocation,
// an explicit delete, and nothing stops both from racing. Safety comes from
// idempotency, not locking: every step treats "already absent" as success,
// each step's failure is recorded without aborting the ones after it, and
// the metadata record is always deleted last, only once every sub-resource
// has been attempted. Re-running the saga for an id with no record is a
// successful no-op.
//
// The saga never raises past its own boundary. It returns an Outcome value
// listing the per-step results, which the Lambda entry point maps to a
// success or multi-status response.
package cleanup
