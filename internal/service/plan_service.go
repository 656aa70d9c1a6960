// Package service orchestrates a built planner.Planner with the ambient
// concerns a host application needs around it: structured logging,
// tracing, metrics, audit logging, plan-run history, and caching. None
// of this lives in internal/domain/planner itself, which stays a pure,
// dependency-free tree walk.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planaudit"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
	"github.com/odrlplan/odrlplan/internal/metrics"
)

// PlanRun records the bookkeeping around one Plan invocation: a stable
// identifier, timing, and whether the result came from cache, wrapped
// around the produced EvaluationPlan.
type PlanRun struct {
	ID         string
	Scope      string
	StartedAt  time.Time
	DurationMs int64
	CacheHit   bool
	Plan       *planner.EvaluationPlan
}

// PlanService wraps a built *planner.Planner with logging, tracing,
// metrics, an optional plan cache, and optional audit/history sinks.
type PlanService struct {
	planner *planner.Planner
	scope   odrl.Scope
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	cache       *PlanCache
	auditSink   planaudit.Sink
	historySink HistorySink
}

// HistorySink is the subset of history.Store's write path PlanService
// depends on, kept narrow so tests can fake it without a real database.
type HistorySink interface {
	InsertPlanRun(ctx context.Context, run PlanRun, permissions, prohibitions, duties, filtered int) error
}

// Option configures a PlanService at construction time.
type Option func(*PlanService)

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *PlanService) { s.logger = l }
}

// WithTracer overrides the default no-op tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *PlanService) { s.tracer = t }
}

// WithMetrics attaches a metrics bundle. Nil disables metrics recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PlanService) { s.metrics = m }
}

// WithCache attaches a plan cache. Nil disables caching.
func WithCache(c *PlanCache) Option {
	return func(s *PlanService) { s.cache = c }
}

// WithAuditSink attaches an audit sink. Nil disables audit logging.
func WithAuditSink(sink planaudit.Sink) Option {
	return func(s *PlanService) { s.auditSink = sink }
}

// WithHistorySink attaches a plan-run history sink. Nil disables history.
func WithHistorySink(sink HistorySink) Option {
	return func(s *PlanService) { s.historySink = sink }
}

// NewPlanService wraps p, built for scope, applying opts.
func NewPlanService(p *planner.Planner, scope odrl.Scope, opts ...Option) *PlanService {
	s := &PlanService{
		planner: p,
		scope:   scope,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan runs the wrapped Planner against policy and returns a stamped
// PlanRun. It never consults or populates the cache; use PlanCached for
// that.
func (s *PlanService) Plan(ctx context.Context, policy *odrl.Policy) (PlanRun, error) {
	return s.plan(ctx, nil, policy)
}

// PlanCached behaves like Plan, but first checks the cache for a plan
// keyed by rawPolicy's contents, and populates it on a miss. rawPolicy
// must be the exact bytes policy was parsed from: the cache key is a
// hash of those bytes, not a structural hash of policy itself.
func (s *PlanService) PlanCached(ctx context.Context, rawPolicy []byte, policy *odrl.Policy) (PlanRun, error) {
	return s.plan(ctx, rawPolicy, policy)
}

func (s *PlanService) plan(ctx context.Context, rawPolicy []byte, policy *odrl.Policy) (PlanRun, error) {
	ctx, span := s.tracer.Start(ctx, "PlanService.Plan")
	defer span.End()

	runID := uuid.New().String()
	started := time.Now()
	span.SetAttributes(
		attribute.String("odrlplan.run_id", runID),
		attribute.String("odrlplan.scope", string(s.scope)),
	)

	var cacheKey uint64
	cacheable := s.cache != nil && rawPolicy != nil
	if cacheable {
		cacheKey = computeCacheKey(rawPolicy)
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.recordMetrics(true, time.Since(started), cached)
			run := PlanRun{ID: runID, Scope: string(s.scope), StartedAt: started, DurationMs: time.Since(started).Milliseconds(), CacheHit: true, Plan: cached}
			s.afterPlan(ctx, run, nil)
			span.SetStatus(codes.Ok, "")
			return run, nil
		}
	}

	evaluated, err := s.planner.Plan(policy)
	duration := time.Since(started)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "plan failed", "run_id", runID, "scope", s.scope, "error", err)
		run := PlanRun{ID: runID, Scope: string(s.scope), StartedAt: started, DurationMs: duration.Milliseconds()}
		s.afterPlan(ctx, run, err)
		return PlanRun{}, fmt.Errorf("service: plan run %s: %w", runID, err)
	}

	if cacheable {
		s.cache.Put(cacheKey, evaluated)
	}
	s.recordMetrics(false, duration, evaluated)

	run := PlanRun{ID: runID, Scope: string(s.scope), StartedAt: started, DurationMs: duration.Milliseconds(), Plan: evaluated}
	s.logger.InfoContext(ctx, "plan completed",
		"run_id", runID, "scope", s.scope, "duration_ms", run.DurationMs, "cache_hit", false)
	s.afterPlan(ctx, run, nil)
	span.SetStatus(codes.Ok, "")
	return run, nil
}

func (s *PlanService) recordMetrics(cacheHit bool, d time.Duration, plan *planner.EvaluationPlan) {
	if s.metrics == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
		s.metrics.CacheHitsTotal.Inc()
	} else {
		s.metrics.CacheMissesTotal.Inc()
	}
	s.metrics.PlanDuration.WithLabelValues(label).Observe(d.Seconds())
	s.metrics.PlansTotal.WithLabelValues("ok").Inc()

	if plan == nil {
		return
	}
	for _, p := range plan.Permissions {
		if p.Filtered {
			s.metrics.FilteredRules.WithLabelValues("permission").Inc()
		}
		s.countUnboundAtomics(p.Constraints)
		for _, d := range p.Duties {
			if d.Filtered {
				s.metrics.FilteredRules.WithLabelValues("duty").Inc()
			}
			s.countUnboundAtomics(d.Constraints)
		}
	}
	for _, p := range plan.Prohibitions {
		if p.Filtered {
			s.metrics.FilteredRules.WithLabelValues("prohibition").Inc()
		}
		s.countUnboundAtomics(p.Constraints)
	}
	for _, d := range plan.Duties {
		if d.Filtered {
			s.metrics.FilteredRules.WithLabelValues("duty").Inc()
		}
		s.countUnboundAtomics(d.Constraints)
	}
}

// countUnboundAtomics walks a rule's constraint tree and increments
// UnboundAtomics once per leaf constraint the registry resolved no
// function for.
func (s *PlanService) countUnboundAtomics(children []planner.ConstraintStep) {
	for _, c := range children {
		switch step := c.(type) {
		case planner.AtomicConstraintStep:
			if !step.HasFunction {
				s.metrics.UnboundAtomics.Inc()
			}
		case planner.AndConstraintStep:
			s.countUnboundAtomics(step.Children)
		case planner.OrConstraintStep:
			s.countUnboundAtomics(step.Children)
		case planner.XoneConstraintStep:
			s.countUnboundAtomics(step.Children)
		}
	}
}

func (s *PlanService) afterPlan(ctx context.Context, run PlanRun, planErr error) {
	counts := countSteps(run.Plan)

	if s.auditSink != nil {
		entry := planaudit.Entry{
			RunID:        run.ID,
			Scope:        run.Scope,
			StartedAt:    run.StartedAt,
			DurationMs:   run.DurationMs,
			CacheHit:     run.CacheHit,
			Permissions:  counts.permissions,
			Prohibitions: counts.prohibitions,
			Duties:       counts.duties,
			Filtered:     counts.filtered,
		}
		if planErr != nil {
			entry.Err = planErr.Error()
		}
		if err := s.auditSink.Write(entry); err != nil {
			s.logger.WarnContext(ctx, "audit write failed", "run_id", run.ID, "error", err)
		}
	}

	if s.historySink != nil && planErr == nil {
		if err := s.historySink.InsertPlanRun(ctx, run, counts.permissions, counts.prohibitions, counts.duties, counts.filtered); err != nil {
			s.logger.WarnContext(ctx, "history write failed", "run_id", run.ID, "error", err)
		}
	}
}

type stepCounts struct {
	permissions, prohibitions, duties, filtered int
}

func countSteps(plan *planner.EvaluationPlan) stepCounts {
	var c stepCounts
	if plan == nil {
		return c
	}
	c.permissions = len(plan.Permissions)
	c.prohibitions = len(plan.Prohibitions)
	c.duties = len(plan.Duties)
	for _, p := range plan.Permissions {
		if p.Filtered {
			c.filtered++
		}
	}
	for _, p := range plan.Prohibitions {
		if p.Filtered {
			c.filtered++
		}
	}
	for _, d := range plan.Duties {
		if d.Filtered {
			c.filtered++
		}
	}
	return c
}
