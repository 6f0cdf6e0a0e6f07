package models

import (
	"errors"
	"fmt"
	"strings"
)

// Domain validation sentinels.
var (
	ErrEmptyMessage          = errors.New("message needs content or an attachment")
	ErrMissingConversationID = errors.New("conversation id is required")
	ErrMissingParticipant    = errors.New("participant id is required")
	ErrSameParticipant       = errors.New("conversation needs two distinct participants")
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors aggregates multiple validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Add records a validation error for a field.
func (v *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: err.Error(),
		Cause:   err,
	})
}

// Err returns nil if there are no errors, otherwise the aggregate.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Error implements error.
func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var builder strings.Builder
	for i, err := range v.Errors {
		if i > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(err.Error())
	}
	return builder.String()
}

// Is allows errors.Is to match nested validation errors.
func (v *ValidationErrors) Is(target error) bool {
	if v == nil {
		return false
	}
	for _, err := range v.Errors {
		if err.Cause != nil && errors.Is(err.Cause, target) {
			return true
		}
	}
	return false
}

// Draft is unsent composer input. It never leaves the client on failure,
// so the user can retry without retyping.
type Draft struct {
	ConversationID string
	Content        string
	Attachment     *AttachmentUpload
}

// AttachmentUpload is a local file staged for a multipart send.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate rejects a draft before any network call is made.
func (d *Draft) Validate() error {
	verrs := &ValidationErrors{}
	if strings.TrimSpace(d.ConversationID) == "" {
		verrs.Add("conversation_id", ErrMissingConversationID)
	}
	if strings.TrimSpace(d.Content) == "" && d.Attachment == nil {
		verrs.Add("content", ErrEmptyMessage)
	}
	return verrs.Err()
}

// StartRequest is the payload for starting (or re-joining) a conversation
// with another user, optionally about a vehicle listing.
type StartRequest struct {
	ParticipantID  string `json:"participantId"`
	VehicleID      string `json:"vehicleId,omitempty"`
	Subject        string `json:"subject,omitempty"`
	InitialMessage string `json:"initialMessage,omitempty"`
}

// Validate rejects a start request before any network call is made.
func (r *StartRequest) Validate(selfID string) error {
	verrs := &ValidationErrors{}
	if strings.TrimSpace(r.ParticipantID) == "" {
		verrs.Add("participant_id", ErrMissingParticipant)
	} else if selfID != "" && r.ParticipantID == selfID {
		verrs.Add("participant_id", ErrSameParticipant)
	}
	return verrs.Err()
}
