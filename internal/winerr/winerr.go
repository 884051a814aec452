// Package winerr classifies failures returned by native Windows APIs into the
// small set of error kinds reported to tool callers.
package winerr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind identifies the class of a failure.
type Kind string

const (
	KindInvalidArgument Kind = "InvalidArgument"
	KindNotFound        Kind = "NotFound"
	KindAccessDenied    Kind = "AccessDenied"
	KindPlatformAPI     Kind = "PlatformApiFailure"
)

// Native status codes that carry classification meaning.
const (
	codeFileNotFound          = 2
	codePathNotFound          = 3
	codeAccessDenied          = 5
	codeServiceDoesNotExist   = 1060
	codeEvtChannelNotFound    = 15007
	codeEvtPublisherNotFound  = 15002
	hresultFileNotFound       = 0x80070002
	hresultPathNotFound       = 0x80070003
	hresultAccessDenied       = 0x80070005
	pdhCStatusNoObject        = 0xC0000BB8
	pdhCStatusNoCounter       = 0xC0000BB9
	pdhCStatusNoInstance      = 0x800007D1
	pdhCStatusBadCounterName  = 0xC0000BC0
	wbemEInvalidClass         = 0x80041010
	wbemENotFound             = 0x80041002
)

// ErrUnsupported is wrapped by adapters on platforms without the native API.
var ErrUnsupported = errors.New("not supported on this platform")

// Error is the typed failure carried through adapters to the dispatch layer.
type Error struct {
	Kind    Kind
	Op      string // api name or parameter name
	Target  string
	Code    uint32
	HasCode bool
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s '%s' not found", e.Op, e.Target)
	case KindAccessDenied:
		return fmt.Sprintf("Access denied to '%s'", e.Target)
	case KindPlatformAPI:
		if e.HasCode {
			return fmt.Sprintf("%s failed with error code 0x%08X", e.Op, e.Code)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
		}
		return e.Op + " failed"
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument reports a caller-supplied parameter that violates a precondition.
func InvalidArgument(param, msg string) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Op:      param,
		Message: fmt.Sprintf("Invalid parameter '%s': %s", param, msg),
	}
}

// NotFound reports a named resource that does not exist.
func NotFound(resourceType, name string) *Error {
	return &Error{Kind: KindNotFound, Op: resourceType, Target: name}
}

func AccessDenied(target string, err error) *Error {
	e := &Error{Kind: KindAccessDenied, Target: target, Err: err}
	if c, ok := nativeCode(err); ok {
		e.Code, e.HasCode = c, true
	}
	return e
}

// PlatformAPI wraps a native failure with the API that produced it.
func PlatformAPI(api string, err error) *Error {
	e := &Error{Kind: KindPlatformAPI, Op: api, Err: err}
	if c, ok := nativeCode(err); ok {
		e.Code, e.HasCode = c, true
	}
	return e
}

// Classify maps a native failure onto a Kind. Errors that are already
// classified pass through unchanged.
func Classify(api, resourceType, target string, err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	code, ok := nativeCode(err)
	if !ok {
		return PlatformAPI(api, err)
	}
	switch code {
	case codeAccessDenied, hresultAccessDenied:
		return AccessDenied(target, err)
	case codeFileNotFound, codePathNotFound, codeServiceDoesNotExist, codeEvtChannelNotFound,
		codeEvtPublisherNotFound, hresultFileNotFound, hresultPathNotFound,
		pdhCStatusNoObject, pdhCStatusNoCounter, pdhCStatusNoInstance, pdhCStatusBadCounterName,
		wbemEInvalidClass, wbemENotFound:
		nf := NotFound(resourceType, target)
		nf.Err = err
		nf.Code, nf.HasCode = code, true
		return nf
	}
	return PlatformAPI(api, err)
}

// KindOf returns the kind of err, or the empty Kind for unclassified errors.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// Status is a native status code that is not a syscall.Errno, such as an
// HRESULT or a PDH status.
type Status uint32

func (s Status) Error() string { return fmt.Sprintf("status 0x%08X", uint32(s)) }

// coder matches ole.OleError and similar types exposing an HRESULT.
type coder interface {
	Code() uintptr
}

func nativeCode(err error) (uint32, bool) {
	if err == nil {
		return 0, false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == 0 {
			return 0, false
		}
		return uint32(errno), true
	}
	var st Status
	if errors.As(err, &st) {
		return uint32(st), true
	}
	var c coder
	if errors.As(err, &c) {
		return uint32(c.Code()), true
	}
	return 0, false
}
