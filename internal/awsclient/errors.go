package awsclient

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// isNotFound reports whether err is any flavor of the SDK's per-service
// "NotFoundException" — used by handlers that treat a missing sub-resource
// as a legitimate empty result rather than an error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return strings.Contains(code, "NotFound") || strings.Contains(code, "ResourceNotFound")
	}
	return false
}
