// Package models defines the core data structures for FormDesk.
//
// It includes field schema types, conversation messages, and session state,
// which are shared across modules.
package models

import (
	"errors"
	"strings"
)

// FieldType defines the input type of a form field.
type FieldType string

const (
	// FieldTypeText is a single-line free-text field.
	FieldTypeText FieldType = "text"
	// FieldTypeEmail is an email address field.
	FieldTypeEmail FieldType = "email"
	// FieldTypeNumber is a numeric field.
	FieldTypeNumber FieldType = "number"
	// FieldTypeDate is a calendar date field.
	FieldTypeDate FieldType = "date"
	// FieldTypeTextarea is a multi-line free-text field.
	FieldTypeTextarea FieldType = "textarea"
	// FieldTypeSelect is a single-choice dropdown field.
	FieldTypeSelect FieldType = "select"
	// FieldTypeRadio is a single-choice radio group field.
	FieldTypeRadio FieldType = "radio"
	// FieldTypeCheckbox is a multi-choice checkbox field.
	FieldTypeCheckbox FieldType = "checkbox"
)

// Validation constants for schema validation
const (
	// MaxSchemaFields defines the maximum number of fields allowed in a schema
	MaxSchemaFields = 50
	// MaxFieldLabelLength defines the maximum allowed length for a field label
	MaxFieldLabelLength = 200
)

// Error variables for better error handling and testability
var (
	ErrEmptySchemaTitle  = errors.New("schema title cannot be empty")
	ErrNoSchemaFields    = errors.New("schema must contain at least one field")
	ErrTooManyFields     = errors.New("schema exceeds maximum field count")
	ErrEmptyFieldKey     = errors.New("field key cannot be empty")
	ErrDuplicateFieldKey = errors.New("field keys must be unique within a schema")
	ErrFieldLabelTooLong = errors.New("field label exceeds maximum length")
	ErrInvalidFieldType  = errors.New("invalid field type")
	ErrUnknownThread     = errors.New("unknown thread id")
)

// IsValidFieldType checks if the given field type is supported.
func IsValidFieldType(ft FieldType) bool {
	switch ft {
	case FieldTypeText, FieldTypeEmail, FieldTypeNumber, FieldTypeDate,
		FieldTypeTextarea, FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// IsChoiceType reports whether the field type carries an option list.
func IsChoiceType(ft FieldType) bool {
	switch ft {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// FieldDef describes a single form field within a schema.
type FieldDef struct {
	Key      string    `json:"key"`               // snake_case, unique within schema
	Label    string    `json:"label"`             // human-readable label shown to the user
	Type     FieldType `json:"type"`              // input type
	Required bool      `json:"required"`          // whether a value must be collected
	Options  []string  `json:"options,omitempty"` // ordered choices for select/radio/checkbox
}

// FieldSchema is the ordered set of field definitions a user is walked through.
type FieldSchema struct {
	Title       string     `json:"title"`
	Fields      []FieldDef `json:"fields"`
	SubmitLabel string     `json:"submit_label,omitempty"`
}

// Validate performs structural validation on a FieldSchema.
func (fs *FieldSchema) Validate() error {
	if strings.TrimSpace(fs.Title) == "" {
		return ErrEmptySchemaTitle
	}
	if len(fs.Fields) == 0 {
		return ErrNoSchemaFields
	}
	if len(fs.Fields) > MaxSchemaFields {
		return ErrTooManyFields
	}
	seen := make(map[string]bool, len(fs.Fields))
	for _, f := range fs.Fields {
		if f.Key == "" {
			return ErrEmptyFieldKey
		}
		if seen[f.Key] {
			return ErrDuplicateFieldKey
		}
		seen[f.Key] = true
		if len(f.Label) > MaxFieldLabelLength {
			return ErrFieldLabelTooLong
		}
		if !IsValidFieldType(f.Type) {
			return ErrInvalidFieldType
		}
	}
	return nil
}

// FieldByKey returns the field with the given key, or nil if absent.
func (fs *FieldSchema) FieldByKey(key string) *FieldDef {
	for i := range fs.Fields {
		if fs.Fields[i].Key == key {
			return &fs.Fields[i]
		}
	}
	return nil
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
