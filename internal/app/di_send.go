package app

import (
	"fmt"

	sendHTTP "github.com/allisson/mailsync/internal/send/http"
	sendUsecase "github.com/allisson/mailsync/internal/send/usecase"
)

// PayloadProcessor returns the send use case.
func (c *Container) PayloadProcessor() (sendUsecase.PayloadProcessor, error) {
	var err error
	c.payloadProcessorInit.Do(func() {
		c.payloadProcessor, err = c.initPayloadProcessor()
		if err != nil {
			c.initErrors["payloadProcessor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["payloadProcessor"]; exists {
		return nil, storedErr
	}
	return c.payloadProcessor, nil
}

// ResubmitUseCase returns the resubmit use case.
func (c *Container) ResubmitUseCase() (sendUsecase.FailureResubmitter, error) {
	var err error
	c.resubmitUseCaseInit.Do(func() {
		c.resubmitUseCase, err = c.initResubmitUseCase()
		if err != nil {
			c.initErrors["resubmitUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resubmitUseCase"]; exists {
		return nil, storedErr
	}
	return c.resubmitUseCase, nil
}

// MessageHandler returns the HTTP handler for message send operations.
func (c *Container) MessageHandler() (*sendHTTP.MessageHandler, error) {
	var err error
	c.messageHandlerInit.Do(func() {
		c.messageHandler, err = c.initMessageHandler()
		if err != nil {
			c.initErrors["messageHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messageHandler"]; exists {
		return nil, storedErr
	}
	return c.messageHandler, nil
}

// initPayloadProcessor creates the send use case with all its dependencies.
func (c *Container) initPayloadProcessor() (sendUsecase.PayloadProcessor, error) {
	submissionRepo, err := c.SubmissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission repository for payload processor: %w", err)
	}

	useCaseConfig := sendUsecase.Config{
		DefaultRecipient: c.config.SendDefaultRecipient,
	}

	baseUseCase := sendUsecase.NewSendUseCase(
		useCaseConfig,
		c.MailgunClient(),
		submissionRepo,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for payload processor: %w", err)
		}
		return sendUsecase.NewPayloadProcessorWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initResubmitUseCase creates the resubmit use case with all its dependencies.
func (c *Container) initResubmitUseCase() (sendUsecase.FailureResubmitter, error) {
	submissionRepo, err := c.SubmissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission repository for resubmit use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for resubmit use case: %w", err)
	}

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for resubmit use case: %w", err)
	}

	useCaseConfig := sendUsecase.ResubmitConfig{
		PerMinute: c.config.ResubmitPerMinute,
		Burst:     c.config.ResubmitBurst,
	}

	baseUseCase := sendUsecase.NewResubmitUseCase(
		useCaseConfig,
		submissionRepo,
		eventRepo,
		queueUseCase,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for resubmit use case: %w", err)
		}
		return sendUsecase.NewResubmitterWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initMessageHandler creates the message HTTP handler with all its dependencies.
func (c *Container) initMessageHandler() (*sendHTTP.MessageHandler, error) {
	submissionUseCase, err := c.SubmissionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission use case for message handler: %w", err)
	}

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for message handler: %w", err)
	}

	return sendHTTP.NewMessageHandler(submissionUseCase, queueUseCase, c.Logger()), nil
}
