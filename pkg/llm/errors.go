package llm

import "fmt"

// ErrorKind classifies external evaluation failures
type ErrorKind int

const (
	KindRequest       ErrorKind = iota // transport or api error
	KindEmptyResponse                  // no choices or blank content
	KindDecode                         // answer is not a valid evaluation object
)

func (k ErrorKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindEmptyResponse:
		return "empty response"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// EvalError is an external failure of a single evaluation
type EvalError struct {
	Kind ErrorKind
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("llm evaluation failed (%s): %v", e.Kind, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
