// Package task models one opaque request for structured generated output
// and its billing identity.
//
// A task identifier has the form "module.task". Its billing action rewrites
// the separator and appends the fixed verb for this call type, producing
// "module:task:generate".
package task

import (
	"regexp"
	"strings"

	apperrors "github.com/atriumhq/atrium/internal/platform/errors"
	"github.com/atriumhq/atrium/internal/services/ai/provider"
)

var (
	// ErrInvalidIdentifier indicates a task identifier that is not in
	// "module.task" form.
	ErrInvalidIdentifier = apperrors.New(apperrors.CodeTaskInvalidIdentifier, "task identifier must be in module.task format")
	// ErrEmptyContent indicates a request with no user content.
	ErrEmptyContent = apperrors.New(apperrors.CodeTaskEmptyContent, "task content is required")
	// ErrEmptySchema indicates a request with no output schema.
	ErrEmptySchema = apperrors.New(apperrors.CodeTaskEmptySchema, "task output schema is required")

	identifierPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+$`)
)

// fixedUnitCosts prices known task types in units. A task absent from this
// table bills by token volume instead.
var fixedUnitCosts = map[string]int64{
	"agency.scope":       50,
	"brief.compose":      30,
	"inventory.classify": 10,
}

// Request is one generation request submitted to the orchestrator.
//
// TenantID and UserID scope the resulting usage event; an empty TenantID
// records the event in personal mode. Backend and Model are optional and
// fall back to the orchestrator's defaults.
type Request struct {
	Identifier         string
	SystemInstructions string
	Content            string
	Schema             map[string]any
	TenantID           string
	UserID             string
	Backend            provider.Backend
	Model              string
}

// Result is the outcome of one execution. Exactly one branch is populated:
// Data and Usage on success, Err on failure. Err always carries a sanitized
// message safe to show to callers.
type Result struct {
	Data  map[string]any
	Usage provider.Usage
	Err   error
}

// Succeeded reports whether the execution produced data.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// ValidateIdentifier checks that an identifier is exactly two non-empty
// lowercase segments joined by one dot.
func ValidateIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return ErrInvalidIdentifier
	}
	return nil
}

// Normalize trims free-text fields and validates the request shape.
func Normalize(request Request) (Request, error) {
	request.Identifier = strings.TrimSpace(request.Identifier)
	if err := ValidateIdentifier(request.Identifier); err != nil {
		return Request{}, err
	}
	request.SystemInstructions = strings.TrimSpace(request.SystemInstructions)
	request.Content = strings.TrimSpace(request.Content)
	if request.Content == "" {
		return Request{}, ErrEmptyContent
	}
	if len(request.Schema) == 0 {
		return Request{}, ErrEmptySchema
	}
	request.TenantID = strings.TrimSpace(request.TenantID)
	request.UserID = strings.TrimSpace(request.UserID)
	request.Model = strings.TrimSpace(request.Model)
	return request, nil
}

// ActionName derives the billing action for a validated identifier.
func ActionName(identifier string) string {
	moduleName, taskName, _ := strings.Cut(identifier, ".")
	return moduleName + ":" + taskName + ":generate"
}

// ModuleName returns the leading segment of a validated identifier.
func ModuleName(identifier string) string {
	moduleName, _, _ := strings.Cut(identifier, ".")
	return moduleName
}

// UnitCost prices one execution. Known identifiers bill their fixed price
// regardless of token volume; unknown identifiers bill one unit per started
// hundred tokens, so zero tokens bill zero units.
func UnitCost(identifier string, totalTokens int64) int64 {
	if cost, ok := fixedUnitCosts[identifier]; ok {
		return cost
	}
	if totalTokens <= 0 {
		return 0
	}
	return (totalTokens + 99) / 100
}
