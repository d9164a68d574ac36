package memory

import "fmt"

type repoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repoError) Error() string       { return e.msg }
func (e *repoError) IsNotFound() bool    { return e.notFound }
func (e *repoError) IsConflict() bool    { return e.conflict }
func (e *repoError) IsUnavailable() bool { return e.unavailable }

func notFoundError(format string, args ...any) *repoError {
	return &repoError{msg: fmt.Sprintf(format, args...), notFound: true}
}

func invalidError(format string, args ...any) *repoError {
	return &repoError{msg: fmt.Sprintf(format, args...)}
}
