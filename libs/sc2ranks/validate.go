package sc2ranks

import (
	"bytes"
	"errors"
	"fmt"
)

const maxErrorBody = 256

var errUnexpectedShape = errors.New("unexpected response shape")

type ResultKind int

const (
	ResultSingle ResultKind = iota
	ResultMany
)

// Result is a validated response: either one node or a list of nodes.
type Result struct {
	kind   ResultKind
	single *Node
	many   []*Node
}

func (r Result) Kind() ResultKind {
	return r.kind
}

func (r Result) Single() (*Node, bool) {
	return r.single, r.kind == ResultSingle && r.single != nil
}

func (r Result) Many() ([]*Node, bool) {
	return r.many, r.kind == ResultMany
}

// Nodes returns the result as a list; a single node becomes a list of one.
func (r Result) Nodes() []*Node {
	if r.kind == ResultSingle {
		if r.single == nil {
			return nil
		}
		return []*Node{r.single}
	}
	return r.many
}

// Validate checks a decoded response for an API error and maps it.
//
// An object with an "error" key gives an *APIError, an object gives a single node, an array
// gives one node per element. Anything else means no usable value came back and gives a
// *TransportError.
func Validate(raw any) (Result, error) {
	switch data := raw.(type) {
	case map[string]any:
		if errValue, ok := data["error"]; ok {
			return Result{}, &APIError{Message: fmt.Sprint(errValue), Payload: data}
		}
		return Result{kind: ResultSingle, single: NewNode(data)}, nil

	case []any:
		nodes := make([]*Node, 0, len(data))
		for i, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				return Result{}, &DecodeError{Err: fmt.Errorf("element %d: %w", i, errUnexpectedShape)}
			}
			nodes = append(nodes, NewNode(m))
		}
		return Result{kind: ResultMany, many: nodes}, nil

	case nil:
		return Result{}, &TransportError{Err: errNoValue}

	default:
		return Result{}, &TransportError{Err: fmt.Errorf("%w: %T", errUnexpectedShape, raw)}
	}
}

// DecodeResponse decodes a response body and validates it.
func DecodeResponse(url string, body []byte) (Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Result{}, &TransportError{URL: url, Err: errNoValue}
	}

	raw, err := decodeJSON(body)
	if err != nil {
		return Result{}, &DecodeError{URL: url, Body: truncate(body), Err: err}
	}

	result, err := Validate(raw)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			transportErr.URL = url
		}
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.URL = url
		}
		return Result{}, err
	}
	return result, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
