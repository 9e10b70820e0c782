// Package domain defines the core submission domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission records a message handed to the provider: who asked for it, who
// it went to, and the provider message id once known. The original send
// parameters are retained so a failed message can be resubmitted later.
type Submission struct {
	ID         uuid.UUID
	SourceType string
	SourceID   string
	Recipient  string
	MessageID  string
	Domain     string
	Parameters string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSubmission creates a submission for a message about to be sent.
func NewSubmission(sourceType, sourceID, recipient, domain, parameters string) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:         uuid.Must(uuid.NewV7()),
		SourceType: sourceType,
		SourceID:   sourceID,
		Recipient:  recipient,
		Domain:     domain,
		Parameters: parameters,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
