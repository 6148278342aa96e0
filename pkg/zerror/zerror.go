// Package zerror defines errors that carry a transport independent status
// and a stable machine readable code next to the human message.
package zerror

import "errors"

// ZError values are meant to be declared once, e.g. as package variables,
// and specialised per call site with WrapParent or WithMsg. Two ZErrors
// match under errors.Is when their codes are equal.
type ZError struct {
	status Status
	code   string
	msg    string
	parent error
}

// New declares an error. code is upper snake case, e.g. PRODUCT_NOT_FOUND.
func New(status Status, code, msg string) ZError {
	return ZError{status: status, code: code, msg: msg}
}

// From returns the first ZError in err's chain.
func From(err error) (ZError, bool) {
	var zErr ZError
	ok := errors.As(err, &zErr)
	return zErr, ok
}

func (e ZError) Error() string {
	s := e.code + ": " + e.msg
	if e.parent != nil {
		s += ": " + e.parent.Error()
	}
	return s
}

// WrapParent returns a copy caused by parent. A nil parent is a no-op.
func (e ZError) WrapParent(parent error) ZError {
	if parent != nil {
		e.parent = parent
	}
	return e
}

// WithMsg returns a copy with a more specific message.
func (e ZError) WithMsg(msg string) ZError {
	e.msg = msg
	return e
}

func (e ZError) Unwrap() error { return e.parent }

func (e ZError) Is(target error) bool {
	t, ok := target.(ZError)
	return ok && t.code == e.code
}

func (e ZError) Status() Status { return e.status }
func (e ZError) Code() string   { return e.code }
func (e ZError) Msg() string    { return e.msg }
func (e ZError) Parent() error  { return e.parent }
