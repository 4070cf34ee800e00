// Package providers implements the built-in provider adapters and their
// shared HTTP plumbing. Every adapter declares its capability set up front;
// the kit never calls a method outside that set.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/stratahq/strata/schemas"
)

// newHTTPClient builds the fasthttp client an adapter uses for non-streaming
// calls.
func newHTTPClient(config *schemas.ProviderConfig) *fasthttp.Client {
	timeout := time.Second * time.Duration(config.NetworkConfig.DefaultRequestTimeoutInSeconds)
	return &fasthttp.Client{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

// newStreamingHTTPClient builds the client used for streaming calls. The
// response body is consumed incrementally, so only the write side carries
// the request timeout.
func newStreamingHTTPClient(config *schemas.ProviderConfig) *fasthttp.Client {
	timeout := time.Second * time.Duration(config.NetworkConfig.DefaultRequestTimeoutInSeconds)
	return &fasthttp.Client{
		WriteTimeout:       timeout,
		StreamResponseBody: true,
	}
}

// firstKey returns the adapter's credential. Entitlement-bound configs carry
// exactly one key; static keyless configs carry none.
func firstKey(config *schemas.ProviderConfig) string {
	if len(config.Keys) == 0 {
		return ""
	}
	return config.Keys[0]
}

// doRequest executes a fasthttp round trip honoring the context deadline.
// fasthttp has no native context support, so the deadline is translated into
// a per-call timeout.
func doRequest(ctx context.Context, client *fasthttp.Client, provider schemas.ModelProvider, req *fasthttp.Request, resp *fasthttp.Response, defaultTimeout time.Duration) *schemas.StrataError {
	if err := ctx.Err(); err != nil {
		return &schemas.StrataError{
			Kind:     schemas.ErrorTimeout,
			Message:  "request context is done before dispatch",
			Provider: provider,
			Cause:    err,
		}
	}

	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := client.DoTimeout(req, resp, timeout); err != nil {
		kind := schemas.ErrorProviderUnavailable
		if err == fasthttp.ErrTimeout {
			kind = schemas.ErrorTimeout
		}
		return &schemas.StrataError{
			Kind:     kind,
			Message:  fmt.Sprintf("request to %s failed: %v", provider, err),
			Provider: provider,
			Cause:    err,
		}
	}
	return nil
}

// doStreamRequest opens a streaming round trip. With a streaming response
// body the round trip returns at response headers, so the context deadline
// bounds connecting and header receipt; the scan loop owns the body from
// there and exits on its own context check.
func doStreamRequest(ctx context.Context, client *fasthttp.Client, provider schemas.ModelProvider, req *fasthttp.Request, resp *fasthttp.Response) *schemas.StrataError {
	if err := ctx.Err(); err != nil {
		return &schemas.StrataError{
			Kind:     schemas.ErrorTimeout,
			Message:  "request context is done before dispatch",
			Provider: provider,
			Cause:    err,
		}
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(req, resp, deadline)
	} else {
		err = client.Do(req, resp)
	}
	if err != nil {
		kind := schemas.ErrorProviderUnavailable
		if err == fasthttp.ErrTimeout {
			kind = schemas.ErrorTimeout
		}
		return &schemas.StrataError{
			Kind:     kind,
			Message:  fmt.Sprintf("stream request to %s failed: %v", provider, err),
			Provider: provider,
			Cause:    err,
		}
	}
	return nil
}

// upstreamError classifies a non-2xx provider response. The message and code
// are probed from the common error body shapes without committing to one
// provider's schema.
func upstreamError(provider schemas.ModelProvider, status int, body []byte) *schemas.StrataError {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = gjson.GetBytes(body, "message").String()
	}
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", status)
	}
	code := gjson.GetBytes(body, "error.code").String()
	if code == "" {
		code = gjson.GetBytes(body, "error.type").String()
	}

	return &schemas.StrataError{
		Kind:           schemas.ClassifyStatus(status),
		Message:        message,
		Provider:       provider,
		UpstreamStatus: status,
		UpstreamCode:   code,
	}
}

// decodeError wraps a response-body decode failure.
func decodeError(provider schemas.ModelProvider, err error) *schemas.StrataError {
	return &schemas.StrataError{
		Kind:     schemas.ErrorUnknown,
		Message:  fmt.Sprintf("failed to decode %s response", provider),
		Provider: provider,
		Cause:    err,
	}
}
