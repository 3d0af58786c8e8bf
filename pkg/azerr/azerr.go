// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package azerr classifies Azure control-plane errors into the small set of
// outcome kinds the provisioning workflow branches on. Classification reads
// the structured fields of azcore.ResponseError (ARM error code and HTTP
// status), never the message text, so retry decisions cannot break when the
// service rewords an error.
package azerr

import (
	"context"
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// Kind is the coarse classification of a platform error.
type Kind string

const (
	// KindNone means no error.
	KindNone Kind = ""

	// KindNotFound: the referenced resource does not exist.
	KindNotFound Kind = "NotFound"

	// KindAlreadyExists: the resource (or an identical grant) already
	// exists. Treated as idempotent success by callers.
	KindAlreadyExists Kind = "AlreadyExists"

	// KindDenied: the caller lacks the rights for the operation. Retrying
	// cannot succeed without external intervention.
	KindDenied Kind = "Denied"

	// KindPrincipalNotFound: a newly created identity has not propagated
	// to the directory yet. Retryable, unlike a plain NotFound.
	KindPrincipalNotFound Kind = "PrincipalNotFound"

	// KindThrottled: the service asked us to back off.
	KindThrottled Kind = "Throttled"

	// KindInvalid: the request itself is malformed; retrying is pointless.
	KindInvalid Kind = "Invalid"

	// KindCanceled: the caller's context ended.
	KindCanceled Kind = "Canceled"

	// KindTransient: anything else; worth a bounded retry.
	KindTransient Kind = "Transient"
)

// ARM error codes with a meaning more specific than their HTTP status.
var (
	notFoundCodes = map[string]bool{
		"ResourceNotFound":      true,
		"ResourceGroupNotFound": true,
		"NotFound":              true,
		"SecretNotFound":        true,
	}
	alreadyExistsCodes = map[string]bool{
		"RoleAssignmentExists":  true,
		"ResourceAlreadyExists": true,
		"AlreadyExists":         true,
		"VaultAlreadyExists":    true,
	}
	deniedCodes = map[string]bool{
		"AuthorizationFailed":        true,
		"Forbidden":                  true,
		"InsufficientPrivileges":     true,
		"InvalidAuthenticationToken": true,
	}
)

// Classify maps err to a Kind. A nil error is KindNone; an error that is
// not an Azure response error is KindCanceled for ended contexts and
// KindTransient otherwise (transport failures, DNS, resets).
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return KindTransient
	}

	switch {
	case respErr.ErrorCode == "PrincipalNotFound":
		return KindPrincipalNotFound
	case notFoundCodes[respErr.ErrorCode]:
		return KindNotFound
	case alreadyExistsCodes[respErr.ErrorCode]:
		return KindAlreadyExists
	case deniedCodes[respErr.ErrorCode]:
		return KindDenied
	}

	switch respErr.StatusCode {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		// A 409 without a recognized code can be a transient state
		// ("another operation in progress"), so it stays retryable.
		return KindTransient
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindDenied
	case http.StatusTooManyRequests:
		return KindThrottled
	case http.StatusBadRequest:
		return KindInvalid
	default:
		return KindTransient
	}
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// IsAlreadyExists reports whether err means the resource already exists.
func IsAlreadyExists(err error) bool {
	return Classify(err) == KindAlreadyExists
}

// IsDenied reports whether err is an authorization denial.
func IsDenied(err error) bool {
	return Classify(err) == KindDenied
}

// IsPrincipalNotFound reports the directory-propagation race on a grant.
func IsPrincipalNotFound(err error) bool {
	return Classify(err) == KindPrincipalNotFound
}

// Retryable reports whether a bounded retry can plausibly change the
// outcome.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTransient, KindThrottled, KindPrincipalNotFound:
		return true
	default:
		return false
	}
}
