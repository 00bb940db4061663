package server

import (
	"fmt"
	"net/http"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	return e.Message
}

func (e *HttpError) StatusCode() int {
	return e.Code
}

func (e *HttpError) ToAPIStatus() *metav1.Status {
	return &metav1.Status{
		TypeMeta: metav1.TypeMeta{
			Kind:       "Status",
			APIVersion: "v1",
		},
		Status:  metav1.StatusFailure,
		Code:    int32(e.Code),
		Reason:  reason(e.Code),
		Message: e.Message,
	}
}

func reason(code int) metav1.StatusReason {
	switch code {
	case http.StatusMethodNotAllowed:
		return metav1.StatusReasonMethodNotAllowed
	case http.StatusInternalServerError:
		return metav1.StatusReasonInternalError
	default:
		return metav1.StatusReasonUnknown
	}
}

func NewHttpError(code int, format string, a ...any) *HttpError {
	message := fmt.Sprintf(format, a...)
	return &HttpError{
		Code:    code,
		Message: message,
	}
}

func NewMethodNotAllowedError(method string) *HttpError {
	return NewHttpError(http.StatusMethodNotAllowed, "method %s not allowed", method)
}

// NewInternalServerError is the single failure response of the query api. The cause is embedded
// in the message, no structured codes are exposed.
func NewInternalServerError(err error) *HttpError {
	return NewHttpError(http.StatusInternalServerError, "something went wrong: %v", err)
}
