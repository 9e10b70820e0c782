// Package domain defines the send domain types: the validated send payload
// and the explicit processing result.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	internalvalidation "github.com/allisson/mailsync/internal/validation"
)

// Attachment is a file attached to an outgoing message. Content is carried
// base64 encoded so payloads survive JSON storage in the job queue.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"`
}

// Validate checks if the attachment is valid.
func (a Attachment) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Filename, validation.Required),
		validation.Field(&a.Content, validation.Required, internalvalidation.Base64),
	)
}

// Payload is everything needed to send one message: the sending domain, the
// provider send parameters (to, from, subject, text/html and any provider
// options) and optional attachments. SubmissionID links the payload back to
// its tracked submission. Payloads are validated once on construction and not
// mutated afterwards.
type Payload struct {
	Domain       string            `json:"domain"`
	Parameters   map[string]string `json:"parameters"`
	Attachments  []Attachment      `json:"attachments,omitempty"`
	SubmissionID *uuid.UUID        `json:"submission_id,omitempty"`
}

// IsZero reports whether the payload carries nothing to send. Completed jobs
// have their parameters cleared, so a re-run of one lands here.
func (p *Payload) IsZero() bool {
	return p.Domain == "" && len(p.Parameters) == 0 && len(p.Attachments) == 0
}

// Validate checks if the payload is valid: the domain and the from and
// subject parameters are required, attachment contents must be base64. The
// recipient is not required here because a missing "to" can still be resolved
// against the configured default recipient at send time.
func (p *Payload) Validate() error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.Domain, validation.Required),
		validation.Field(&p.Parameters, validation.Required),
		validation.Field(&p.Attachments),
	)
	if err != nil {
		return err
	}

	errs := validation.Errors{}
	for _, key := range []string{"from", "subject"} {
		if strings.TrimSpace(p.Parameters[key]) == "" {
			errs[key] = validation.ErrRequired
		}
	}
	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Signature returns a stable hash of the payload's domain and parameters,
// used to suppress duplicate sends of the same message.
func (p *Payload) Signature() string {
	keys := make([]string, 0, len(p.Parameters))
	for key := range p.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(p.Domain))
	for _, key := range keys {
		h.Write([]byte{0})
		h.Write([]byte(key))
		h.Write([]byte{0})
		h.Write([]byte(p.Parameters[key]))
	}

	return hex.EncodeToString(h.Sum(nil))
}
