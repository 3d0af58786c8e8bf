// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package azerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
)

func respErr(code string, status int) error {
	return &azcore.ResponseError{ErrorCode: code, StatusCode: status}
}

func TestClassifyByErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{respErr("ResourceGroupNotFound", http.StatusNotFound), KindNotFound},
		{respErr("ResourceNotFound", http.StatusNotFound), KindNotFound},
		{respErr("RoleAssignmentExists", http.StatusConflict), KindAlreadyExists},
		{respErr("VaultAlreadyExists", http.StatusConflict), KindAlreadyExists},
		{respErr("AuthorizationFailed", http.StatusForbidden), KindDenied},
		{respErr("PrincipalNotFound", http.StatusNotFound), KindPrincipalNotFound},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err))
	}
}

func TestClassifyByStatusWhenCodeUnknown(t *testing.T) {
	assert.Equal(t, KindNotFound, Classify(respErr("SomethingNew", http.StatusNotFound)))
	assert.Equal(t, KindDenied, Classify(respErr("", http.StatusForbidden)))
	assert.Equal(t, KindThrottled, Classify(respErr("", http.StatusTooManyRequests)))
	assert.Equal(t, KindInvalid, Classify(respErr("BadThing", http.StatusBadRequest)))
	assert.Equal(t, KindTransient, Classify(respErr("", http.StatusInternalServerError)))
	assert.Equal(t, KindTransient, Classify(respErr("", http.StatusBadGateway)))
}

func TestUnrecognizedConflictIsRetryable(t *testing.T) {
	err := respErr("AnotherOperationInProgress", http.StatusConflict)
	assert.Equal(t, KindTransient, Classify(err))
	assert.True(t, Retryable(err))
}

func TestClassifyWrappedError(t *testing.T) {
	err := fmt.Errorf("creating role assignment: %w", respErr("RoleAssignmentExists", http.StatusConflict))
	assert.True(t, IsAlreadyExists(err))
	assert.False(t, IsDenied(err))
}

func TestClassifyNonResponseError(t *testing.T) {
	assert.Equal(t, KindNone, Classify(nil))
	assert.Equal(t, KindTransient, Classify(errors.New("connection reset by peer")))
	assert.Equal(t, KindCanceled, Classify(context.Canceled))
	assert.Equal(t, KindCanceled, Classify(fmt.Errorf("poll: %w", context.DeadlineExceeded)))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(respErr("", http.StatusTooManyRequests)))
	assert.True(t, Retryable(respErr("PrincipalNotFound", http.StatusNotFound)))
	assert.False(t, Retryable(respErr("AuthorizationFailed", http.StatusForbidden)))
	assert.False(t, Retryable(respErr("InvalidParameter", http.StatusBadRequest)))
	assert.False(t, Retryable(nil))
}
