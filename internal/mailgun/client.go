// Package mailgun implements the subset of the Mailgun HTTP API this
// application depends on: sending messages and listing events with
// cursor-based pagination.
package mailgun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPageSize is the documented maximum number of event records per page.
const DefaultPageSize = 300

// Client performs authenticated requests against the Mailgun API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a new Client. The baseURL is the API root including the
// version prefix (e.g. "https://api.mailgun.net/v3"). A nil httpClient falls
// back to a client with a 30 second timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Attachment is a decoded file attached to an outbound message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is an outbound message: flat form parameters (to, from, subject,
// text, html, recipient-variables, o:* options) plus decoded attachments.
type Message struct {
	Parameters  map[string]string
	Attachments []Attachment
}

// SendResponse is the provider's reply to a message submission.
type SendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// APIError carries a non-2xx provider response.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("mailgun: %d %s", e.StatusCode, e.Message)
}

// Send submits a message to the given domain. It returns the provider
// response on 2xx and an *APIError on any other well-formed reply.
func (c *Client) Send(ctx context.Context, domain string, msg *Message) (*SendResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, url.PathEscape(domain))

	var (
		body        io.Reader
		contentType string
		err         error
	)
	if len(msg.Attachments) == 0 {
		form := url.Values{}
		for key, value := range msg.Parameters {
			form.Set(key, value)
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		body, contentType, err = encodeMultipart(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode multipart message: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth("api", c.apiKey)

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	return &sendResp, nil
}

// encodeMultipart builds a multipart/form-data body with the message
// parameters as fields and each attachment as an "attachment" file part.
func encodeMultipart(msg *Message) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range msg.Parameters {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	for _, attachment := range msg.Attachments {
		part, err := writer.CreateFormFile("attachment", attachment.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(attachment.Content); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

// Event is one raw event record from the provider's event log.
type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"event"`
	Timestamp float64         `json:"timestamp"`
	Recipient string          `json:"recipient"`
	Flags     map[string]bool `json:"flags"`
	Message   struct {
		Headers struct {
			MessageID string `json:"message-id"`
		} `json:"headers"`
	} `json:"message"`

	// Raw is the record as received, retained for storage.
	Raw json.RawMessage `json:"-"`
}

// IsCallback reports whether the event is a webhook callback notification.
// Callback events mirror records already observed elsewhere and are discarded
// before storage.
func (e *Event) IsCallback() bool {
	return e.Flags["is-callback"]
}

// OccurredAt converts the provider's epoch-seconds timestamp to UTC.
func (e *Event) OccurredAt() time.Time {
	seconds := int64(e.Timestamp)
	nanos := int64((e.Timestamp - float64(seconds)) * float64(time.Second))
	return time.Unix(seconds, nanos).UTC()
}

// EventsPage is one page of event records plus the continuation cursor.
type EventsPage struct {
	Items []Event
	// Next is the absolute URL of the next page; the provider always returns
	// one, so callers stop on an empty item set rather than an empty cursor.
	Next string
}

// ListEventsOptions narrows an event-log query.
type ListEventsOptions struct {
	// Begin requests events at or after this instant. Nil means the
	// provider's default window.
	Begin *time.Time
	// Filter is an event-type token or boolean-OR expression, e.g.
	// "failed OR rejected". Empty means no filtering.
	Filter string
	// Limit is the page size; zero falls back to DefaultPageSize.
	Limit int
	// Extra parameters are merged into the request as-is.
	Extra url.Values
}

// ListEvents fetches the first page of events for a domain in ascending
// time order. Use NextPage with the returned cursor to continue.
func (c *Client) ListEvents(ctx context.Context, domain string, opts ListEventsOptions) (*EventsPage, error) {
	params := url.Values{}
	params.Set("ascending", "yes")
	if opts.Begin != nil {
		// Mailgun expects an RFC 2822 formatted UTC timestamp.
		params.Set("begin", opts.Begin.UTC().Format(time.RFC1123Z))
	}
	if opts.Filter != "" {
		params.Set("event", opts.Filter)
	}
	for key, values := range opts.Extra {
		for _, value := range values {
			params.Set(key, value)
		}
	}
	if params.Get("limit") == "" {
		limit := opts.Limit
		if limit <= 0 {
			limit = DefaultPageSize
		}
		params.Set("limit", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/%s/events?%s", c.baseURL, url.PathEscape(domain), params.Encode())
	return c.fetchEventsPage(ctx, endpoint)
}

// NextPage fetches the page behind a continuation cursor returned in a
// previous EventsPage.
func (c *Client) NextPage(ctx context.Context, next string) (*EventsPage, error) {
	return c.fetchEventsPage(ctx, next)
}

// fetchEventsPage executes one event-log request and decodes the page.
func (c *Client) fetchEventsPage(ctx context.Context, endpoint string) (*EventsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.SetBasicAuth("api", c.apiKey)

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items  []json.RawMessage `json:"items"`
		Paging struct {
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode events page: %w", err)
	}

	page := &EventsPage{Next: payload.Paging.Next}
	for _, raw := range payload.Items {
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
		event.Raw = raw
		page.Items = append(page.Items, event)
	}
	return page, nil
}

// do executes the request and returns the response body on 2xx. Any other
// status is mapped to an *APIError carrying the provider's message.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.logger != nil {
		c.logger.Debug("mailgun request",
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailgun request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read mailgun response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	}
	return body, nil
}

// apiErrorMessage extracts the "message" field from an error body, falling
// back to the raw body text.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// CleanMessageId normalizes a message id returned by the provider by
// stripping the surrounding angle brackets.
func CleanMessageId(id string) string {
	return strings.Trim(id, "<>")
}
