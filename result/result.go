package result

import (
	"encoding/json"
	"fmt"
)

// Record kinds on the primary channel. Every wire record carries an
// explicit "kind" discriminant; there is no shape-based dispatch.
const (
	KindDump         = "dump"
	KindException    = "exception"
	KindInput        = "input"
	KindCompileError = "compile-error"
)

// Object is a single unit of displayable output produced on behalf of an
// executed snippet. The host only dispatches on the variant; rendering is
// left to callers.
type Object interface {
	Kind() string
}

// Dump is plain displayable output, optionally carrying a nested object
// graph for structured values.
type Dump struct {
	Header   string  `json:"header"`
	TypeName string  `json:"type,omitempty"`
	Children []*Dump `json:"children,omitempty"`
}

func (*Dump) Kind() string { return KindDump }

// Exception reports a runtime fault inside the executed snippet.
type Exception struct {
	TypeName string   `json:"type"`
	Message  string   `json:"message"`
	Frames   []string `json:"frames,omitempty"`
	Children []*Dump  `json:"children,omitempty"`
}

func (*Exception) Kind() string { return KindException }

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.TypeName, e.Message)
}

// InputRequest signals that the snippet is blocked reading a line of input.
// It carries no payload; the host answers by forwarding the next caller
// line to the child's stdin.
type InputRequest struct{}

func (*InputRequest) Kind() string { return KindInput }

// Severity classifies a compiler diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// CompileError is a single compiler diagnostic. Line and Column are
// 0-based coordinates into the submitted source text.
type CompileError struct {
	Severity Severity `json:"severity"`
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

func (*CompileError) Kind() string { return KindCompileError }

func (e *CompileError) String() string {
	return fmt.Sprintf("%s %s: %s (%d,%d)", e.Severity, e.ID, e.Message, e.Line, e.Column)
}

// envelope is the superset of all wire record fields.
type envelope struct {
	Kind     string   `json:"kind"`
	Header   string   `json:"header"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Frames   []string `json:"frames"`
	Children []*Dump  `json:"children"`
}

// DecodeObject decodes one primary-channel record into its typed variant.
// Records without a recognized kind are rejected; the caller converts the
// failure into a diagnostic plain dump rather than aborting the stream.
func DecodeObject(data []byte) (Object, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	switch env.Kind {
	case KindDump:
		return &Dump{Header: env.Header, TypeName: env.Type, Children: env.Children}, nil
	case KindException:
		return &Exception{TypeName: env.Type, Message: env.Message, Frames: env.Frames, Children: env.Children}, nil
	case KindInput:
		return &InputRequest{}, nil
	case "":
		return nil, fmt.Errorf("record missing kind")
	default:
		return nil, fmt.Errorf("unknown record kind %q", env.Kind)
	}
}

// EncodeObject renders a typed variant back into its wire form.
func EncodeObject(o Object) ([]byte, error) {
	switch v := o.(type) {
	case *Dump:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*Dump
		}{KindDump, v})
	case *Exception:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*Exception
		}{KindException, v})
	case *InputRequest:
		return json.Marshal(struct {
			Kind string `json:"kind"`
		}{KindInput})
	default:
		return nil, fmt.Errorf("unencodable object kind %q", o.Kind())
	}
}
