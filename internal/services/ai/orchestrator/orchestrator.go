// Package orchestrator runs one task from validation through dispatch to
// usage recording.
package orchestrator

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/services/ai/provider"
	"github.com/atriumhq/atrium/internal/services/ai/task"
	"github.com/atriumhq/atrium/internal/services/ai/usage"
)

// Generator dispatches one generation request to a backend. Dispatchers
// satisfy it; errors it returns are already sanitized.
type Generator interface {
	Backend() provider.Backend
	Generate(ctx context.Context, request provider.Request) (provider.Response, error)
}

// Recorder appends events to the usage ledger.
type Recorder interface {
	Record(ctx context.Context, input usage.RecordInput) (usage.Event, error)
}

// Orchestrator owns the lifecycle of one task request: validate, derive the
// billing action, dispatch, bill, record.
type Orchestrator struct {
	generators     map[provider.Backend]Generator
	defaultBackend provider.Backend
	ledger         Recorder
	clock          func() time.Time
	logf           func(format string, args ...any)
	tracer         trace.Tracer
}

// New creates an Orchestrator over one or more backend generators. The
// first generator registered becomes the default backend unless overridden
// with SetDefaultBackend.
func New(ledger Recorder, generators ...Generator) *Orchestrator {
	o := &Orchestrator{
		generators: make(map[provider.Backend]Generator, len(generators)),
		ledger:     ledger,
		clock:      time.Now,
		logf:       log.Printf,
		tracer:     otel.Tracer("atrium/ai/orchestrator"),
	}
	for _, generator := range generators {
		o.generators[generator.Backend()] = generator
		if o.defaultBackend == "" {
			o.defaultBackend = generator.Backend()
		}
	}
	return o
}

// SetDefaultBackend selects which backend handles requests that name none.
func (o *Orchestrator) SetDefaultBackend(backend provider.Backend) {
	o.defaultBackend = backend
}

// Execute runs one task to completion and returns its discriminated result.
//
// Validation failures short-circuit before any provider call or billing.
// After dispatch the outcome is always recorded best-effort: a failed
// dispatch records zero units and zero tokens, and a failed ledger write is
// logged without affecting the result the caller receives.
func (o *Orchestrator) Execute(ctx context.Context, request task.Request) task.Result {
	ctx, span := o.tracer.Start(ctx, "task.execute")
	defer span.End()

	normalized, err := task.Normalize(request)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return task.Result{Err: err}
	}
	span.SetAttributes(
		attribute.String("task.identifier", normalized.Identifier),
		attribute.String("task.action", task.ActionName(normalized.Identifier)),
	)

	generator, err := o.pickGenerator(normalized.Backend)
	if err != nil {
		span.SetStatus(codes.Error, "no backend")
		return task.Result{Err: err}
	}
	span.SetAttributes(attribute.String("provider.backend", string(generator.Backend())))

	start := o.clock()
	response, dispatchErr := generator.Generate(ctx, provider.Request{
		Model:              normalized.Model,
		SystemInstructions: normalized.SystemInstructions,
		Content:            normalized.Content,
		Schema:             normalized.Schema,
	})
	duration := o.clock().Sub(start)

	var tokens provider.Usage
	var units int64
	if dispatchErr == nil {
		tokens = response.Usage
		units = task.UnitCost(normalized.Identifier, tokens.TotalTokens)
	}

	o.recordOutcome(ctx, normalized, generator.Backend(), tokens, units, duration, dispatchErr)

	if dispatchErr != nil {
		span.SetStatus(codes.Error, "dispatch failed")
		span.RecordError(dispatchErr)
		return task.Result{Err: dispatchErr}
	}
	span.SetAttributes(attribute.Int64("usage.total_tokens", tokens.TotalTokens), attribute.Int64("usage.units", units))
	return task.Result{Data: response.Object, Usage: tokens}
}

func (o *Orchestrator) pickGenerator(backend provider.Backend) (Generator, error) {
	if backend == "" {
		backend = o.defaultBackend
	}
	generator, ok := o.generators[backend]
	if !ok {
		return nil, apperrors.New(apperrors.CodeProviderUnsupported, "no adapter is configured for the requested backend")
	}
	return generator, nil
}

// recordOutcome writes the usage event for one dispatch. The write is
// best-effort: a ledger gap is preferable to discarding a completed
// generation, so failures are logged and swallowed.
func (o *Orchestrator) recordOutcome(ctx context.Context, normalized task.Request, backend provider.Backend, tokens provider.Usage, units int64, duration time.Duration, dispatchErr error) {
	// Usage events require a user id; an anonymous request has no ledger
	// row to bill against, so the record is skipped rather than rejected.
	if normalized.UserID == "" {
		o.logf("orchestrator: skip usage record for %s: request has no user id", normalized.Identifier)
		return
	}

	metadata := map[string]string{"backend": string(backend)}
	if dispatchErr != nil {
		metadata["outcome"] = "failure"
	} else {
		metadata["outcome"] = "success"
	}

	_, err := o.ledger.Record(ctx, usage.RecordInput{
		Action:       task.ActionName(normalized.Identifier),
		TenantID:     normalized.TenantID,
		UserID:       normalized.UserID,
		ModuleID:     task.ModuleName(normalized.Identifier),
		InputTokens:  tokens.InputTokens,
		OutputTokens: tokens.OutputTokens,
		TotalTokens:  tokens.TotalTokens,
		Units:        units,
		Duration:     duration,
		Metadata:     metadata,
	})
	if err != nil {
		o.logf("orchestrator: record usage for %s: %v", normalized.Identifier, err)
	}
}
