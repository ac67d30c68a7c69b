// Package errors provides structured error handling for Atrium services.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeIdentityUnauthenticated Code = "IDENTITY_UNAUTHENTICATED"
	CodeIdentityTokenInvalid    Code = "IDENTITY_TOKEN_INVALID"
	CodeIdentityTokenExpired    Code = "IDENTITY_TOKEN_EXPIRED"

	// Tenant errors
	CodeTenantEmptyName   Code = "TENANT_EMPTY_NAME"
	CodeTenantInvalidKind Code = "TENANT_INVALID_KIND"
	CodeTenantInvalidSlug Code = "TENANT_INVALID_SLUG"

	// Membership errors
	CodeMembershipEmptyTenantID Code = "MEMBERSHIP_EMPTY_TENANT_ID"
	CodeMembershipEmptyUserID   Code = "MEMBERSHIP_EMPTY_USER_ID"
	CodeMembershipInvalidRole   Code = "MEMBERSHIP_INVALID_ROLE"

	// Task errors
	CodeTaskInvalidIdentifier Code = "TASK_INVALID_IDENTIFIER"
	CodeTaskEmptyContent      Code = "TASK_EMPTY_CONTENT"
	CodeTaskEmptySchema       Code = "TASK_EMPTY_SCHEMA"

	// Provider errors
	CodeProviderRateLimited       Code = "PROVIDER_RATE_LIMITED"
	CodeProviderTimedOut          Code = "PROVIDER_TIMED_OUT"
	CodeProviderFailed            Code = "PROVIDER_FAILED"
	CodeProviderMissingCredential Code = "PROVIDER_MISSING_CREDENTIAL"
	CodeProviderUnsupported       Code = "PROVIDER_UNSUPPORTED"

	// Usage errors
	CodeUsageInvalidAction Code = "USAGE_INVALID_ACTION"
	CodeUsageNegativeValue Code = "USAGE_NEGATIVE_VALUE"
	CodeUsageEmptyUserID   Code = "USAGE_EMPTY_USER_ID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeTenantEmptyName,
		CodeTenantInvalidKind,
		CodeTenantInvalidSlug,
		CodeMembershipEmptyTenantID,
		CodeMembershipEmptyUserID,
		CodeMembershipInvalidRole,
		CodeTaskInvalidIdentifier,
		CodeTaskEmptyContent,
		CodeTaskEmptySchema,
		CodeUsageInvalidAction,
		CodeUsageNegativeValue,
		CodeUsageEmptyUserID:
		return codes.InvalidArgument

	// Unauthenticated - no valid caller identity
	case CodeIdentityUnauthenticated,
		CodeIdentityTokenInvalid,
		CodeIdentityTokenExpired:
		return codes.Unauthenticated

	// Provider dispatch outcomes
	case CodeProviderRateLimited:
		return codes.ResourceExhausted
	case CodeProviderTimedOut:
		return codes.DeadlineExceeded
	case CodeProviderMissingCredential, CodeProviderUnsupported:
		return codes.FailedPrecondition

	// Storage outcomes
	case CodeNotFound:
		return codes.NotFound
	case CodeConflict:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
