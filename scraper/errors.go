package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a timeout while issuing a request or waiting on the page.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrStatus is any other non-200 search response.
type ErrStatus struct {
	StatusCode int
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("status: unexpected http status %d", e.StatusCode)
}

// ErrContentType indicates a search response that is not JSON.
type ErrContentType struct {
	ContentType string
}

func (e ErrContentType) Error() string {
	return fmt.Sprintf("content_type: unexpected content type %q", e.ContentType)
}

// ErrDecode indicates a search body that could not be decoded.
type ErrDecode struct {
	Snippet string
	Err     error
}

func (e ErrDecode) Error() string {
	return fmt.Errorf("decode: %w (body %q)", e.Err, e.Snippet).Error()
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// ErrExtraction wraps a failed step while scraping a product detail page.
type ErrExtraction struct {
	ProductID string
	Step      string
	Err       error
}

func (e ErrExtraction) Error() string {
	return fmt.Errorf("extract %s: %s: %w", e.ProductID, e.Step, e.Err).Error()
}

func (e ErrExtraction) Unwrap() error {
	return e.Err
}

// ErrPanic carries a panic recovered at the category boundary.
type ErrPanic struct {
	Value any
}

func (e ErrPanic) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func classifyError(err error, statusCode int) error {
	if err == nil && (statusCode == 0 || statusCode == http.StatusOK) {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && statusCode != http.StatusOK {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		default:
			return ErrStatus{StatusCode: statusCode}
		}
	}

	if err == nil {
		return nil
	}
	return err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status ErrStatus
	if errors.As(err, &status) {
		return "status"
	}
	var contentType ErrContentType
	if errors.As(err, &contentType) {
		return "content_type"
	}
	var decode ErrDecode
	if errors.As(err, &decode) {
		return "decode"
	}
	var extraction ErrExtraction
	if errors.As(err, &extraction) {
		if errors.Is(extraction.Err, context.DeadlineExceeded) {
			return "timeout"
		}
		return "extraction"
	}
	var panicked ErrPanic
	if errors.As(err, &panicked) {
		return "panic"
	}
	return "other"
}
