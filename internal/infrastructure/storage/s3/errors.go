package s3

import (
	"context"
	"errors"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/dreschagin/photo-gallery/internal/domain/apperror"
)

// classifyError maps an SDK error onto an apperror kind.
// The API error code is checked first, then the HTTP status, then transport errors.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	return apperror.Wrap(err, kindOf(err), op, "")
}

func kindOf(err error) apperror.Kind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AllAccessDisabled", "InvalidAccessKeyId",
			"SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "AccountProblem":
			return apperror.KindPermission
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return apperror.KindNotFound
		case "SlowDown", "Throttling", "ThrottlingException", "RequestTimeout",
			"RequestTimeTooSkewed", "InternalError", "ServiceUnavailable":
			return apperror.KindTransient
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return apperror.KindPermission
		case status == http.StatusNotFound:
			return apperror.KindNotFound
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return apperror.KindTransient
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperror.KindTransient
	}

	return apperror.KindInternal
}
