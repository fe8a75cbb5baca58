package types

import "time"

// UploadPolicy constrains the file accepted alongside a submission.
type UploadPolicy struct {
	// Field is the multipart field name, also used to label the attachment.
	Field string
	// Dir groups stored files per resource type.
	Dir          string
	MaxBytes     int64
	Extensions   []string
	ContentTypes []string
	Required     bool
	// InMemory uploads are buffered fully and kept in the database instead
	// of the configured file backend.
	InMemory bool
}

// RegistrationEvent is published after a final registration is stored.
type RegistrationEvent struct {
	Type         string       `json:"type"`
	ResourceType ResourceType `json:"resourceType"`
	RegistrantID string       `json:"registrantId"`
	Email        string       `json:"email"`
	OccurredAt   time.Time    `json:"occurredAt"`
}

const EventRegistrationSubmitted = "registration.submitted"
