package domain

// ResultStatus classifies the outcome of processing a send payload.
type ResultStatus string

const (
	// ResultCompleted means the provider accepted the message.
	ResultCompleted ResultStatus = "completed"
	// ResultRetryableFailure means the send failed in a way worth retrying,
	// typically a provider or network error.
	ResultRetryableFailure ResultStatus = "retryable_failure"
	// ResultFatalFailure means the payload can never be sent as is and
	// retrying is pointless.
	ResultFatalFailure ResultStatus = "fatal_failure"
)

// Result is the outcome of a send attempt as a value, not an error: the
// caller decides what a failure means for its own control flow (retry the
// job, surface an HTTP error, log and move on).
type Result struct {
	Status    ResultStatus
	Message   string
	MessageID string
}

// Succeeded reports whether the provider accepted the message.
func (r Result) Succeeded() bool {
	return r.Status == ResultCompleted
}

// Retryable reports whether another attempt may succeed.
func (r Result) Retryable() bool {
	return r.Status == ResultRetryableFailure
}

// Completed builds a successful result carrying the provider message id.
func Completed(messageID, message string) Result {
	return Result{Status: ResultCompleted, MessageID: messageID, Message: message}
}

// RetryableFailure builds a result for a failed send worth retrying.
func RetryableFailure(message string) Result {
	return Result{Status: ResultRetryableFailure, Message: message}
}

// FatalFailure builds a result for a send that can never succeed.
func FatalFailure(message string) Result {
	return Result{Status: ResultFatalFailure, Message: message}
}
