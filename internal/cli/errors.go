package cli

import (
	"errors"
	"fmt"

	stamp "github.com/goliatone/go-stamp"
	"github.com/goliatone/go-stamp/internal/config"
	"github.com/goliatone/go-stamp/pkg/storage"
)

const (
	ExitCodeSuccess     = 0
	ExitCodeGeneric     = 1
	ExitCodeUsage       = 2
	ExitCodeUnavailable = 3
	ExitCodeConfig      = 4
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{Code: ExitCodeUsage, Err: fmt.Errorf(format, args...)}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return asExitError(ExitCodeUnavailable, err)
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, stamp.ErrInvalidRule),
		errors.Is(err, stamp.ErrEngineUnavailable),
		errors.Is(err, stamp.ErrReservedKey):
		return asExitError(ExitCodeConfig, err)
	default:
		return asExitError(ExitCodeGeneric, err)
	}
}
