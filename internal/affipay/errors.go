package affipay

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCurrency is returned when a charge is attempted in a currency
// the gateway has no numeric code for.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ConnectionError is a network-level failure reaching the gateway. It is
// fatal: callers must not retry it.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("affipay: gateway unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPError is an HTTP error status whose body carried no structured gateway
// error payload.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("affipay: http error: status %d", e.Status)
}

// ErrorDetail is the object form of the gateway's error field, used on
// ecommerce responses.
type ErrorDetail struct {
	Code           string `json:"code"`
	HTTPStatusCode int    `json:"httpStatusCode"`
	Description    string `json:"description"`
}

// APIError is a structured error payload from the gateway. The error field
// comes in two shapes: a plain string on OAuth-layer failures (notably
// "invalid_token") and an object on ecommerce failures. Code holds the string
// form, Detail the object form; exactly one is set.
type APIError struct {
	Status      int
	Code        string
	Description string
	Detail      *ErrorDetail
	Body        []byte
}

func (e *APIError) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("affipay: api error: %s %s", e.Detail.Code, e.Detail.Description)
	}
	return fmt.Sprintf("affipay: api error: %s: %s", e.Code, e.Description)
}

// AuthError means a token refresh could not produce an access token. The
// previously held token, if any, is left in place.
type AuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("affipay: auth failed: %v", e.Err)
	}
	return fmt.Sprintf("affipay: auth failed: %s: %s", e.Code, e.Description)
}

func (e *AuthError) Unwrap() error { return e.Err }

const (
	defaultErrorCode        = "ERR"
	defaultErrorStatusCode  = 400
	defaultErrorDescription = "something is wrong with the request"
)

// GatewayError is the client's terminal API-level failure: a business decline
// or an invalid_token rejection that survived the retry budget. It is an
// expected outcome of the transaction state machine, not a system fault.
type GatewayError struct {
	Code        string
	StatusCode  int
	Description string
	Body        []byte
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("affipay: gateway error: %d %s", e.StatusCode, e.Description)
}

func newGatewayError(apiErr *APIError) *GatewayError {
	ge := &GatewayError{
		Code:        apiErr.Code,
		StatusCode:  defaultErrorStatusCode,
		Description: defaultErrorDescription,
		Body:        apiErr.Body,
	}
	if apiErr.Description != "" {
		ge.Description = apiErr.Description
	}
	if d := apiErr.Detail; d != nil {
		if d.Code != "" {
			ge.Code = d.Code
		}
		if d.HTTPStatusCode != 0 {
			ge.StatusCode = d.HTTPStatusCode
		}
		if d.Description != "" {
			ge.Description = d.Description
		}
	}
	if ge.Code == "" {
		ge.Code = defaultErrorCode
	}
	return ge
}
