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

package cleanup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/compute"
	"github.com/mikelane/tempus/internal/preview"
	"github.com/mikelane/tempus/internal/routing"
	"github.com/mikelane/tempus/internal/schedule"
	"github.com/mikelane/tempus/internal/store"
)

// Step names one teardown step of the saga.
type Step string

const (
	StepComputeWorkload Step = "compute_workload"
	StepRoutingRule     Step = "routing_rule"
	StepRoutingPool     Step = "routing_pool"
	StepSchedule        Step = "scheduled_invocation"
	StepMetadata        Step = "metadata_record"
)

// StepOutcome classifies how a teardown step ended. Absence of the target
// resource is a distinct, successful outcome, never a failure.
type StepOutcome string

const (
	StepSucceeded     StepOutcome = "succeeded"
	StepAlreadyAbsent StepOutcome = "already_absent"
	StepFailed        StepOutcome = "failed"
)

// StepResult is the recorded result of a single teardown step.
type StepResult struct {
	Step    Step
	Outcome StepOutcome
	Err     error
}

// Outcome is the structured result of a saga run.
type Outcome struct {
	PreviewID string

	// AlreadyCleaned is set when no metadata record existed: the preview
	// was never created or an earlier run finished the teardown.
	AlreadyCleaned bool

	Steps []StepResult
}

// Succeeded reports whether every step ended in success or already-absent.
func (o Outcome) Succeeded() bool {
	for _, s := range o.Steps {
		if s.Outcome == StepFailed {
			return false
		}
	}
	return true
}

// Failures returns the steps that failed, in execution order.
func (o Outcome) Failures() []StepResult {
	var failed []StepResult
	for _, s := range o.Steps {
		if s.Outcome == StepFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Config bounds the workload drain wait.
type Config struct {
	// DrainPollInterval is the delay between drain polls.
	DrainPollInterval time.Duration

	// DrainTimeout is the hard cap on waiting for running instances to
	// reach zero. When it elapses, deletion proceeds anyway.
	DrainTimeout time.Duration
}

// DefaultConfig mirrors the production drain bounds: poll every 10 seconds
// for at most 5 minutes.
func DefaultConfig() Config {
	return Config{
		DrainPollInterval: 10 * time.Second,
		DrainTimeout:      5 * time.Minute,
	}
}

// Saga tears down a preview environment's sub-resources in order, tolerating
// partial absence and partial failure at every step.
type Saga struct {
	store   store.Store
	compute compute.Provider
	router  routing.Router
	sched   schedule.Scheduler
	cfg     Config
	log     *zap.Logger
}

// NewSaga creates a cleanup saga over the given providers.
func NewSaga(st store.Store, cp compute.Provider, rt routing.Router, sc schedule.Scheduler, cfg Config, log *zap.Logger) *Saga {
	return &Saga{
		store:   st,
		compute: cp,
		router:  rt,
		sched:   sc,
		cfg:     cfg,
		log:     log,
	}
}

// Run loads the metadata record for the id and tears everything down. An
// absent record means the preview is already cleaned up; that is success
// and no step runs.
func (s *Saga) Run(ctx context.Context, previewID string) Outcome {
	env, err := s.store.Get(ctx, previewID)
	if err != nil {
		if errors.Is(err, preview.ErrNotFound) {
			s.log.Info("no metadata record, preview already cleaned up",
				zap.String("preview_id", previewID))
			return Outcome{PreviewID: previewID, AlreadyCleaned: true}
		}
		return Outcome{
			PreviewID: previewID,
			Steps: []StepResult{
				{Step: StepMetadata, Outcome: StepFailed, Err: err},
			},
		}
	}
	return s.RunEnvironment(ctx, *env)
}

// RunEnvironment tears down the sub-resources of an already-loaded record.
// The explicit delete path uses it directly so the teardown does not depend
// on the record still being present in the store.
func (s *Saga) RunEnvironment(ctx context.Context, env preview.Environment) Outcome {
	outcome := Outcome{PreviewID: env.PreviewID}

	steps := []func(context.Context, preview.Environment) StepResult{
		s.teardownWorkload,
		s.teardownRoutingRule,
		s.teardownRoutingPool,
		s.teardownSchedule,
		s.deleteMetadata,
	}

	for _, run := range steps {
		result := run(ctx, env)
		outcome.Steps = append(outcome.Steps, result)

		switch result.Outcome {
		case StepFailed:
			s.log.Error("cleanup step failed",
				zap.String("preview_id", env.PreviewID),
				zap.String("step", string(result.Step)),
				zap.Error(result.Err))
		case StepAlreadyAbsent:
			s.log.Info("cleanup step target already absent",
				zap.String("preview_id", env.PreviewID),
				zap.String("step", string(result.Step)))
		}
	}

	if outcome.Succeeded() {
		s.log.Info("cleanup completed", zap.String("preview_id", env.PreviewID))
	} else {
		s.log.Warn("cleanup completed with failures",
			zap.String("preview_id", env.PreviewID),
			zap.Int("failed_steps", len(outcome.Failures())))
	}
	return outcome
}

// teardownWorkload drains the workload to zero, waits within the configured
// bound, then force-deletes it. If draining fails the deletion is attempted
// anyway.
func (s *Saga) teardownWorkload(ctx context.Context, env preview.Environment) StepResult {
	if env.ComputeRef == "" {
		return StepResult{Step: StepComputeWorkload, Outcome: StepAlreadyAbsent}
	}

	err := s.compute.Drain(ctx, env.ComputeRef)
	switch {
	case errors.Is(err, preview.ErrNotFound):
		return StepResult{Step: StepComputeWorkload, Outcome: StepAlreadyAbsent}
	case err != nil:
		s.log.Warn("drain failed, attempting force delete",
			zap.String("preview_id", env.PreviewID),
			zap.Error(err))
	default:
		s.waitForDrain(ctx, env.ComputeRef)
	}

	err = s.compute.Delete(ctx, env.ComputeRef)
	if errors.Is(err, preview.ErrNotFound) {
		return StepResult{Step: StepComputeWorkload, Outcome: StepAlreadyAbsent}
	}
	if err != nil {
		return StepResult{Step: StepComputeWorkload, Outcome: StepFailed, Err: err}
	}
	return StepResult{Step: StepComputeWorkload, Outcome: StepSucceeded}
}

// waitForDrain polls the workload until no instances are running, the
// configured timeout elapses, or the context is canceled. It never fails
// the step: on timeout the force delete proceeds regardless.
func (s *Saga) waitForDrain(ctx context.Context, computeRef string) {
	deadline := time.Now().Add(s.cfg.DrainTimeout)
	for time.Now().Before(deadline) {
		status, err := s.compute.WorkloadStatus(ctx, computeRef)
		if err != nil || status.RunningCount == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.DrainPollInterval):
		}
	}
	s.log.Warn("drain wait timed out, force deleting", zap.String("compute_ref", computeRef))
}

func (s *Saga) teardownRoutingRule(ctx context.Context, env preview.Environment) StepResult {
	if env.RoutingRuleRef == "" {
		return StepResult{Step: StepRoutingRule, Outcome: StepAlreadyAbsent}
	}

	err := s.router.DeleteRule(ctx, env.RoutingRuleRef)
	if errors.Is(err, preview.ErrNotFound) {
		return StepResult{Step: StepRoutingRule, Outcome: StepAlreadyAbsent}
	}
	if err != nil {
		return StepResult{Step: StepRoutingRule, Outcome: StepFailed, Err: err}
	}
	return StepResult{Step: StepRoutingRule, Outcome: StepSucceeded}
}

func (s *Saga) teardownRoutingPool(ctx context.Context, env preview.Environment) StepResult {
	if env.RoutingPoolRef == "" {
		return StepResult{Step: StepRoutingPool, Outcome: StepAlreadyAbsent}
	}

	err := s.router.DeletePool(ctx, env.RoutingPoolRef)
	if errors.Is(err, preview.ErrNotFound) {
		return StepResult{Step: StepRoutingPool, Outcome: StepAlreadyAbsent}
	}
	if err != nil {
		return StepResult{Step: StepRoutingPool, Outcome: StepFailed, Err: err}
	}
	return StepResult{Step: StepRoutingPool, Outcome: StepSucceeded}
}

// teardownSchedule cancels the scheduled invocation, falling back to the
// canonical rule name when the record carries no schedule reference.
func (s *Saga) teardownSchedule(ctx context.Context, env preview.Environment) StepResult {
	ruleName := env.ScheduleRef
	if ruleName == "" {
		ruleName = schedule.CanonicalRuleName(env.PreviewID)
	}

	err := s.sched.Cancel(ctx, ruleName)
	if errors.Is(err, preview.ErrNotFound) {
		return StepResult{Step: StepSchedule, Outcome: StepAlreadyAbsent}
	}
	if err != nil {
		return StepResult{Step: StepSchedule, Outcome: StepFailed, Err: err}
	}
	return StepResult{Step: StepSchedule, Outcome: StepSucceeded}
}

// deleteMetadata removes the record. It runs last and unconditionally, so a
// record never survives without its sub-resources having been attempted.
func (s *Saga) deleteMetadata(ctx context.Context, env preview.Environment) StepResult {
	if err := s.store.Delete(ctx, env.PreviewID); err != nil {
		return StepResult{Step: StepMetadata, Outcome: StepFailed, Err: err}
	}
	return StepResult{Step: StepMetadata, Outcome: StepSucceeded}
}
