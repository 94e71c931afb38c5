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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikelane/tempus/internal/cleanup"
	"github.com/mikelane/tempus/internal/compute"
	"github.com/mikelane/tempus/internal/preview"
	"github.com/mikelane/tempus/internal/routing"
	"github.com/mikelane/tempus/internal/schedule"
	"github.com/mikelane/tempus/internal/store"
)

// Saga step names used in provisioning errors and logs.
const (
	stepRoutingPool = "routing_pool"
	stepCompute     = "compute_workload"
	stepRoutingRule = "routing_rule"
	stepSchedule    = "scheduled_invocation"
	stepMetadata    = "metadata_record"
)

// healthUnknown marks a pool whose health could not be queried.
const healthUnknown = "unknown"

// Config carries the lifecycle policy knobs.
type Config struct {
	// PublicHost is the router hostname preview URLs are built from.
	PublicHost string

	// DefaultTTLHours applies when a create request omits the TTL, and
	// DefaultExtendHours when an extend request omits the extension.
	DefaultTTLHours    int
	DefaultExtendHours int

	// MinHours and MaxHours bound both TTL and extension input.
	MinHours int
	MaxHours int

	// PriorityAttempts bounds the routing-rule priority collision retry.
	PriorityAttempts int
}

// CreateResult is returned by Create.
type CreateResult struct {
	PreviewID  string    `json:"preview_id"`
	PreviewURL string    `json:"preview_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// StatusDetail is the derived view of one preview, returned by Status and
// List. The workload fields are absent and the pool health is "unknown"
// when the corresponding provider query failed; a single unreachable
// provider never fails the read.
type StatusDetail struct {
	PreviewID         string                 `json:"preview_id"`
	Status            preview.Status         `json:"status"`
	PreviewURL        string                 `json:"preview_url"`
	ExpiresAt         time.Time              `json:"expires_at"`
	CreatedAt         time.Time              `json:"created_at"`
	ServiceStatus     string                 `json:"service_status,omitempty"`
	DesiredCount      *int32                 `json:"desired_count,omitempty"`
	RunningCount      *int32                 `json:"running_count,omitempty"`
	PendingCount      *int32                 `json:"pending_count,omitempty"`
	TargetGroupHealth string                 `json:"target_group_health"`
	TargetHealth      []preview.TargetHealth `json:"target_health_descriptions,omitempty"`
}

// ExtendResult is returned by Extend.
type ExtendResult struct {
	PreviewID string    `json:"preview_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Orchestrator coordinates the four providers into the preview lifecycle
// operations. All coordination state lives in the metadata store; instances
// hold no mutable state and are safe for concurrent use.
type Orchestrator struct {
	store   store.Store
	compute compute.Provider
	router  routing.Router
	sched   schedule.Scheduler
	saga    *cleanup.Saga
	cfg     Config
	log     *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator over the given providers.
func New(st store.Store, cp compute.Provider, rt routing.Router, sc schedule.Scheduler, saga *cleanup.Saga, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.PriorityAttempts <= 0 {
		cfg.PriorityAttempts = routing.DefaultPriorityAttempts
	}
	return &Orchestrator{
		store:   st,
		compute: cp,
		router:  rt,
		sched:   sc,
		saga:    saga,
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Create provisions a preview environment with the given TTL in hours. Zero
// means the configured default. Either every sub-resource is created and a
// record persisted, or everything created so far is compensated in reverse
// order and the original failure is returned.
func (o *Orchestrator) Create(ctx context.Context, ttlHours int) (*CreateResult, error) {
	if ttlHours == 0 {
		ttlHours = o.cfg.DefaultTTLHours
	}
	if err := o.validateHours("ttl_hours", ttlHours); err != nil {
		return nil, err
	}

	id := o.newID()
	now := o.now()
	expiresAt := now.Add(time.Duration(ttlHours) * time.Hour)

	o.log.Info("creating preview environment",
		zap.String("preview_id", id),
		zap.Int("ttl_hours", ttlHours))

	env := preview.Environment{
		PreviewID: id,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	poolRef, err := o.router.CreatePool(ctx, id)
	if err != nil {
		return nil, o.abortCreate(ctx, env, stepRoutingPool, err)
	}
	env.RoutingPoolRef = poolRef

	computeRef, err := o.compute.CreateWorkload(ctx, id, poolRef)
	if err != nil {
		return nil, o.abortCreate(ctx, env, stepCompute, err)
	}
	env.ComputeRef = computeRef

	ruleRef, err := o.bindRoutingRule(ctx, id, poolRef)
	if err != nil {
		return nil, o.abortCreate(ctx, env, stepRoutingRule, err)
	}
	env.RoutingRuleRef = ruleRef

	scheduleRef, err := o.sched.Schedule(ctx, id, schedule.CanonicalRuleName(id), expiresAt)
	if err != nil {
		return nil, o.abortCreate(ctx, env, stepSchedule, err)
	}
	env.ScheduleRef = scheduleRef

	if err := o.store.Put(ctx, env); err != nil {
		return nil, o.abortCreate(ctx, env, stepMetadata, err)
	}

	o.log.Info("preview environment created",
		zap.String("preview_id", id),
		zap.Time("expires_at", expiresAt))

	return &CreateResult{
		PreviewID:  id,
		PreviewURL: preview.PublicURL(o.cfg.PublicHost, id),
		ExpiresAt:  expiresAt,
	}, nil
}

// bindRoutingRule creates the path rule at the priority derived from the id,
// perturbing deterministically on collision within the attempt budget.
func (o *Orchestrator) bindRoutingRule(ctx context.Context, id, poolRef string) (string, error) {
	priority := routing.RulePriority(id)
	for attempt := 0; attempt < o.cfg.PriorityAttempts; attempt++ {
		ruleRef, err := o.router.CreateRule(ctx, id, poolRef, priority)
		if err == nil {
			return ruleRef, nil
		}
		if !errors.Is(err, preview.ErrPriorityInUse) {
			return "", err
		}
		o.log.Info("rule priority in use, retrying",
			zap.String("preview_id", id),
			zap.Int32("priority", priority))
		priority = routing.NextPriority(priority)
	}
	return "", fmt.Errorf("exhausted %d rule priority attempts: %w", o.cfg.PriorityAttempts, preview.ErrPriorityInUse)
}

// abortCreate compensates whatever the partially built environment holds, in
// reverse creation order, and wraps the original cause. Compensation errors
// are logged and swallowed so they never mask the cause.
func (o *Orchestrator) abortCreate(ctx context.Context, env preview.Environment, step string, cause error) error {
	o.log.Error("create failed, compensating",
		zap.String("preview_id", env.PreviewID),
		zap.String("step", step),
		zap.Error(cause))

	if env.RoutingRuleRef != "" {
		o.compensate(ctx, env.PreviewID, stepRoutingRule, func() error {
			return o.router.DeleteRule(ctx, env.RoutingRuleRef)
		})
	}
	if env.ComputeRef != "" {
		o.compensate(ctx, env.PreviewID, stepCompute, func() error {
			return o.compute.Delete(ctx, env.ComputeRef)
		})
	}
	if env.RoutingPoolRef != "" {
		o.compensate(ctx, env.PreviewID, stepRoutingPool, func() error {
			return o.router.DeletePool(ctx, env.RoutingPoolRef)
		})
	}
	if env.ScheduleRef != "" {
		o.compensate(ctx, env.PreviewID, stepSchedule, func() error {
			return o.sched.Cancel(ctx, env.ScheduleRef)
		})
	}
	// The record is only written last, so it exists here only when that
	// final write itself failed partially. Deleting is harmless otherwise.
	o.compensate(ctx, env.PreviewID, stepMetadata, func() error {
		return o.store.Delete(ctx, env.PreviewID)
	})

	return &preview.ProvisioningError{PreviewID: env.PreviewID, Step: step, Cause: cause}
}

func (o *Orchestrator) compensate(ctx context.Context, id, step string, fn func() error) {
	err := fn()
	if err == nil || errors.Is(err, preview.ErrNotFound) {
		return
	}
	o.log.Warn("compensation step failed",
		zap.String("preview_id", id),
		zap.String("step", step),
		zap.Error(err))
}

// Status returns the derived status detail for one preview. Provider query
// failures degrade the corresponding field rather than failing the read.
func (o *Orchestrator) Status(ctx context.Context, previewID string) (*StatusDetail, error) {
	env, err := o.store.Get(ctx, previewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preview %s: %w", previewID, err)
	}
	detail := o.describe(ctx, *env)
	return &detail, nil
}

// List returns the derived status detail of every live preview. A single
// record's provider-query failure degrades that record's fields to unknown
// instead of aborting the listing.
func (o *Orchestrator) List(ctx context.Context) ([]StatusDetail, error) {
	envs, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list previews: %w", err)
	}
	details := make([]StatusDetail, 0, len(envs))
	for _, env := range envs {
		details = append(details, o.describe(ctx, env))
	}
	return details, nil
}

func (o *Orchestrator) describe(ctx context.Context, env preview.Environment) StatusDetail {
	var workload *preview.WorkloadStatus
	if env.ComputeRef != "" {
		ws, err := o.compute.WorkloadStatus(ctx, env.ComputeRef)
		if err != nil {
			o.log.Warn("workload status unavailable",
				zap.String("preview_id", env.PreviewID),
				zap.Error(err))
		} else {
			workload = ws
		}
	}

	var pool *preview.PoolHealth
	if env.RoutingPoolRef != "" {
		ph, err := o.router.PoolHealth(ctx, env.RoutingPoolRef)
		if err != nil {
			o.log.Warn("pool health unavailable",
				zap.String("preview_id", env.PreviewID),
				zap.Error(err))
		} else {
			pool = ph
		}
	}

	detail := StatusDetail{
		PreviewID:         env.PreviewID,
		Status:            preview.DeriveStatus(o.now(), env.ExpiresAt, workload, pool),
		PreviewURL:        env.URL(o.cfg.PublicHost),
		ExpiresAt:         env.ExpiresAt,
		CreatedAt:         env.CreatedAt,
		TargetGroupHealth: healthUnknown,
	}
	if workload != nil {
		desired, running, pending := workload.DesiredCount, workload.RunningCount, workload.PendingCount
		detail.ServiceStatus = workload.State
		detail.DesiredCount = &desired
		detail.RunningCount = &running
		detail.PendingCount = &pending
	}
	if pool != nil {
		detail.TargetGroupHealth = pool.Summary
		detail.TargetHealth = pool.Targets
	}
	return detail
}

// Extend pushes the expiry out by additionalHours past the current expiry,
// not past now, so previously granted time is never lost. Zero means the
// configured default. The cleanup schedule is replaced before the record is
// updated, so the old firing time never survives a successful extend.
func (o *Orchestrator) Extend(ctx context.Context, previewID string, additionalHours int) (*ExtendResult, error) {
	if additionalHours == 0 {
		additionalHours = o.cfg.DefaultExtendHours
	}
	if err := o.validateHours("additional_hours", additionalHours); err != nil {
		return nil, err
	}

	env, err := o.store.Get(ctx, previewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preview %s: %w", previewID, err)
	}

	newExpiresAt := env.ExpiresAt.Add(time.Duration(additionalHours) * time.Hour)

	ruleName := env.ScheduleRef
	if ruleName == "" {
		ruleName = schedule.CanonicalRuleName(previewID)
	}
	scheduleRef, err := o.sched.Schedule(ctx, previewID, ruleName, newExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule cleanup for preview %s: %w", previewID, err)
	}

	if err := o.store.UpdateExpiry(ctx, previewID, newExpiresAt, scheduleRef); err != nil {
		return nil, fmt.Errorf("failed to persist new expiry for preview %s: %w", previewID, err)
	}

	o.log.Info("preview environment extended",
		zap.String("preview_id", previewID),
		zap.Int("additional_hours", additionalHours),
		zap.Time("expires_at", newExpiresAt))

	return &ExtendResult{PreviewID: previewID, ExpiresAt: newExpiresAt}, nil
}

// Delete removes the preview. The metadata record is deleted synchronously,
// so a read issued right after Delete returns is a not-found; the resource
// teardown saga runs detached on the already-loaded record and converges
// even if a scheduled cleanup races it.
func (o *Orchestrator) Delete(ctx context.Context, previewID string) error {
	env, err := o.store.Get(ctx, previewID)
	if err != nil {
		return fmt.Errorf("failed to load preview %s: %w", previewID, err)
	}

	if err := o.store.Delete(ctx, previewID); err != nil {
		return fmt.Errorf("failed to delete preview record %s: %w", previewID, err)
	}

	o.log.Info("preview environment deleted, teardown detached",
		zap.String("preview_id", previewID))

	go o.saga.RunEnvironment(context.WithoutCancel(ctx), *env)
	return nil
}

func (o *Orchestrator) validateHours(field string, hours int) error {
	if hours < o.cfg.MinHours || hours > o.cfg.MaxHours {
		return preview.NewValidationError(field,
			fmt.Sprintf("must be between %d and %d", o.cfg.MinHours, o.cfg.MaxHours))
	}
	return nil
}
