package questionnaire

// QuestionType describes how a question is asked and what value shape it accepts
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
	QuestionTypeFreeText     QuestionType = "free_text"
	QuestionTypeForm         QuestionType = "form"
	QuestionTypeFileUpload   QuestionType = "file_upload"
)

// IsValid checks if the type is a known QuestionType
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeFreeText, QuestionTypeForm, QuestionTypeFileUpload:
		return true
	}
	return false
}

// String returns the string representation of QuestionType
func (t QuestionType) String() string {
	return string(t)
}

// FormField describes one field of a form-type question
type FormField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Question is an immutable catalog entry. Identity is the ID, which is
// unique and stable across a deployment. PartNumber groups questions and is
// monotonically non-decreasing in catalog order.
type Question struct {
	ID         string       `json:"id"`
	PartNumber int          `json:"part_number"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	Fields     []FormField  `json:"fields,omitempty"`
	Required   bool         `json:"required"`
}

// HasOption reports whether the given option is offered by the question.
// Questions without options accept any value.
func (q *Question) HasOption(value string) bool {
	if len(q.Options) == 0 {
		return true
	}
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}
