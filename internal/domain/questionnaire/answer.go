package questionnaire

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind discriminates the closed set of answer value shapes
type ValueKind string

const (
	ValueKindScalar ValueKind = "scalar"
	ValueKindList   ValueKind = "list"
	ValueKindForm   ValueKind = "form"
)

// AnswerValue is a tagged union over the value shapes an answer can take:
// a scalar string, a list of strings, or a keyed form. Exactly one branch is
// populated according to Kind.
type AnswerValue struct {
	Kind   ValueKind
	Scalar string
	List   []string
	Form   map[string]string
}

// NewScalarValue creates a scalar answer value
func NewScalarValue(s string) AnswerValue {
	return AnswerValue{Kind: ValueKindScalar, Scalar: s}
}

// NewListValue creates a list answer value
func NewListValue(items []string) AnswerValue {
	return AnswerValue{Kind: ValueKindList, List: items}
}

// NewFormValue creates a keyed-form answer value
func NewFormValue(fields map[string]string) AnswerValue {
	return AnswerValue{Kind: ValueKindForm, Form: fields}
}

// AsScalar extracts the scalar branch
func (v AnswerValue) AsScalar() (string, bool) {
	if v.Kind != ValueKindScalar {
		return "", false
	}
	return v.Scalar, true
}

// AsList extracts the list branch
func (v AnswerValue) AsList() ([]string, bool) {
	if v.Kind != ValueKindList {
		return nil, false
	}
	return v.List, true
}

// AsForm extracts the form branch
func (v AnswerValue) AsForm() (map[string]string, bool) {
	if v.Kind != ValueKindForm {
		return nil, false
	}
	return v.Form, true
}

// IsEmpty reports whether the value carries no content
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case ValueKindScalar:
		return v.Scalar == ""
	case ValueKindList:
		return len(v.List) == 0
	case ValueKindForm:
		return len(v.Form) == 0
	}
	return true
}

// String renders the value for prompts and summaries
func (v AnswerValue) String() string {
	switch v.Kind {
	case ValueKindScalar:
		return v.Scalar
	case ValueKindList:
		out := ""
		for i, item := range v.List {
			if i > 0 {
				out += "、"
			}
			out += item
		}
		return out
	case ValueKindForm:
		b, err := json.Marshal(v.Form)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// MarshalJSON encodes the value in its natural wire shape: a JSON string,
// array, or object depending on Kind.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindScalar:
		return json.Marshal(v.Scalar)
	case ValueKindList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	case ValueKindForm:
		if v.Form == nil {
			return json.Marshal(map[string]string{})
		}
		return json.Marshal(v.Form)
	}
	return json.Marshal("")
}

// UnmarshalJSON decodes a JSON string, array, or object into the matching
// value branch. Any other JSON shape is rejected.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAnswerValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseAnswerValue decodes loosely-typed answer payloads into the closed
// variant set. Numbers and booleans are accepted as scalars so that clients
// may send them unquoted.
func ParseAnswerValue(data json.RawMessage) (AnswerValue, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnswerValue{}, err
	}
	switch t := raw.(type) {
	case string:
		return NewScalarValue(t), nil
	case float64:
		return NewScalarValue(formatJSONNumber(t)), nil
	case bool:
		return NewScalarValue(fmt.Sprintf("%t", t)), nil
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return AnswerValue{}, fmt.Errorf("list answer must contain only strings, got %T", e)
			}
			items = append(items, s)
		}
		return NewListValue(items), nil
	case map[string]interface{}:
		fields := make(map[string]string, len(t))
		for k, e := range t {
			switch fv := e.(type) {
			case string:
				fields[k] = fv
			case float64:
				fields[k] = formatJSONNumber(fv)
			case nil:
				fields[k] = ""
			default:
				return AnswerValue{}, fmt.Errorf("form field %s must be a string or number, got %T", k, e)
			}
		}
		return NewFormValue(fields), nil
	}
	return AnswerValue{}, fmt.Errorf("unsupported answer value shape %T", raw)
}

func formatJSONNumber(f float64) string {
	return fmt.Sprintf("%v", f)
}

// AnswerSource tells where an answer came from. User answers always take
// precedence over OCR-derived ones for the same question ID.
type AnswerSource string

const (
	AnswerSourceUser AnswerSource = "user"
	AnswerSourceOCR  AnswerSource = "ocr"
)

// Answer is one accepted answer. Accepting a new answer for the same
// question ID replaces the previous one wholesale; answers are never
// partially updated.
type Answer struct {
	QuestionID string       `json:"question_id"`
	Value      AnswerValue  `json:"value"`
	AnsweredAt time.Time    `json:"answered_at"`
	Source     AnswerSource `json:"source"`
	// SourceQuestionID links an OCR-derived answer back to the upload
	// question that produced it, so go-back truncation can remove it
	// together with its origin. Empty for user answers.
	SourceQuestionID string `json:"source_question_id,omitempty"`
}

// FileDescriptor references an uploaded file attached to an answer
type FileDescriptor struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type"`
	Size           int64  `json:"size"`
	StorageKey     string `json:"storage_key,omitempty"`
	EvidenceNumber string `json:"evidence_number,omitempty"`
}
