// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	sendDomain "github.com/allisson/mailsync/internal/send/domain"
)

// AttachmentRequest is one attachment in a send request. Content is base64.
type AttachmentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"`
}

// SendMessageRequest contains the parameters for queueing a message send.
// SourceType and SourceID identify what triggered the send and are recorded on
// the tracked submission.
type SendMessageRequest struct {
	SourceType  string              `json:"source_type"`
	SourceID    string              `json:"source_id"`
	Domain      string              `json:"domain"`
	Parameters  map[string]string   `json:"parameters"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// Validate checks if the request is valid.
func (r SendMessageRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.SourceType, validation.Required),
		validation.Field(&r.Domain, validation.Required),
		validation.Field(&r.Parameters, validation.Required),
	); err != nil {
		return err
	}

	return r.ToPayload().Validate()
}

// ToPayload converts the request to a send payload.
func (r SendMessageRequest) ToPayload() *sendDomain.Payload {
	attachments := make([]sendDomain.Attachment, 0, len(r.Attachments))
	for _, attachment := range r.Attachments {
		attachments = append(attachments, sendDomain.Attachment{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Content:     attachment.Content,
		})
	}

	payload := &sendDomain.Payload{
		Domain:     r.Domain,
		Parameters: r.Parameters,
	}
	if len(attachments) > 0 {
		payload.Attachments = attachments
	}

	return payload
}
