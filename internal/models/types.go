package models

import "time"

// Question types form a closed set; they are not extensible at runtime.
const (
	QuestionText           = "text"
	QuestionTextarea       = "textarea"
	QuestionMultipleChoice = "multipleChoice"
	QuestionDropdown       = "dropdown"
	QuestionDate           = "date"
	QuestionFile           = "file"
	QuestionPhone          = "phone"
	QuestionRepeater       = "repeater"
)

// Aliases that occur in stored answer documents written by older clients.
const (
	QuestionCheckbox     = "checkbox"
	QuestionSingleChoice = "singleChoice"
	QuestionSelect       = "select"
)

// ProfileType is the top-level questionnaire definition for one user
// category. Its ID is a slug derived from the label and is unique across all
// profile types.
type ProfileType struct {
	ID       string              `json:"id"`
	Label    string              `json:"label"`
	Subtitle string              `json:"subtitle,omitempty"`
	Icon     string              `json:"icon,omitempty"`
	Sections map[string]*Section `json:"sections"`
	Metadata Metadata            `json:"metadata"`
}

type Metadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

// Section groups an ordered list of questions. The ID is a slug derived from
// the label, unique within the owning profile type. Order drives rendering
// only; completion math ignores it.
type Section struct {
	ID        string      `json:"id"`
	Label     string      `json:"label"`
	Order     int         `json:"order"`
	Questions []*Question `json:"questions"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty"`
}

// Question is one schema field. IDs are opaque and stable; they are never
// derived from the label, so relabeling a question keeps its answers
// attached. RepeaterFields is set iff Type is "repeater"; Options iff Type is
// a choice type.
type Question struct {
	ID                  string           `json:"id"`
	Type                string           `json:"type"`
	Question            string           `json:"question"`
	Required            bool             `json:"required"`
	Options             []string         `json:"options,omitempty"`
	InputType           string           `json:"inputType,omitempty"`
	Validation          *Validation      `json:"validation,omitempty"`
	RepeaterFields      []*RepeaterField `json:"repeaterFields,omitempty"`
	AllowMultipleGroups bool             `json:"allowMultipleGroups,omitempty"`
}

// RepeaterField is a question nested inside a repeater, instantiated once per
// group. It mirrors Question minus nesting: a repeater field can never itself
// be a repeater.
type RepeaterField struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Question   string      `json:"question"`
	Required   bool        `json:"required"`
	Options    []string    `json:"options,omitempty"`
	InputType  string      `json:"inputType,omitempty"`
	Validation *Validation `json:"validation,omitempty"`
}

// Validation carries the operator-configured constraints for a question.
type Validation struct {
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	MinGroups int    `json:"minGroups,omitempty"`
	MaxGroups int    `json:"maxGroups,omitempty"`
}

// SectionAnswerDocument is the unit of persistence and of autosave: one
// user's answers for one section, always written whole (no per-field deltas).
// Version is a write token; stores reject writes whose expected version does
// not match the stored one.
type SectionAnswerDocument struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	ProfileType string         `json:"profileType"`
	Questions   []*AnswerEntry `json:"questions"`
	Version     int64          `json:"version,omitempty"`
}

// AnswerEntry pairs a question with its submitted value. Answer is shaped by
// the question type: string for text-likes, []any for choice lists, an object
// for phone/file, and a list of field-keyed groups for repeaters. Values
// decoded from JSON stay as generic map/slice shapes.
type AnswerEntry struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Question string `json:"question"`
	Required bool   `json:"required"`
	Answer   any    `json:"answer"`
}

// PhoneAnswer is the expected object shape for phone questions.
type PhoneAnswer struct {
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
}

// FileAnswer is the durable upload result consumed as a file answer.
type FileAnswer struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// User is an operator account able to edit profile schemas.
type User struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
