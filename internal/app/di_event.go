package app

import (
	"fmt"

	eventHTTP "github.com/allisson/mailsync/internal/event/http"
	eventRepository "github.com/allisson/mailsync/internal/event/repository"
	eventUsecase "github.com/allisson/mailsync/internal/event/usecase"
)

// EventRepository returns the event repository based on database driver.
func (c *Container) EventRepository() (eventUsecase.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepo, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// EventPoller returns the event poll use case.
func (c *Container) EventPoller() (eventUsecase.EventPoller, error) {
	var err error
	c.eventPollerInit.Do(func() {
		c.eventPoller, err = c.initEventPoller()
		if err != nil {
			c.initErrors["eventPoller"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventPoller"]; exists {
		return nil, storedErr
	}
	return c.eventPoller, nil
}

// DeliveryCheckRunner returns the delivery check use case.
func (c *Container) DeliveryCheckRunner() (eventUsecase.DeliveryCheckRunner, error) {
	var err error
	c.deliveryCheckRunnerInit.Do(func() {
		c.deliveryCheckRunner, err = c.initDeliveryCheckRunner()
		if err != nil {
			c.initErrors["deliveryCheckRunner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deliveryCheckRunner"]; exists {
		return nil, storedErr
	}
	return c.deliveryCheckRunner, nil
}

// EventHandler returns the HTTP handler for event operations.
func (c *Container) EventHandler() (*eventHTTP.EventHandler, error) {
	var err error
	c.eventHandlerInit.Do(func() {
		c.eventHandler, err = c.initEventHandler()
		if err != nil {
			c.initErrors["eventHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventHandler"]; exists {
		return nil, storedErr
	}
	return c.eventHandler, nil
}

// initEventRepository creates the event repository based on the database driver.
func (c *Container) initEventRepository() (eventUsecase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return eventRepository.NewPostgreSQLEventRepository(db), nil
	case "mysql":
		return eventRepository.NewMySQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventPoller creates the event poll use case with all its dependencies.
func (c *Container) initEventPoller() (eventUsecase.EventPoller, error) {
	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event poller: %w", err)
	}

	resubmitUseCase, err := c.ResubmitUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get resubmit use case for event poller: %w", err)
	}

	useCaseConfig := eventUsecase.Config{
		Domain:          c.config.MailgunDomain,
		PageSize:        c.config.EventPollPageSize,
		MaxPages:        c.config.EventPollMaxPages,
		ResubmitEnabled: c.config.ResubmitEnabled,
	}

	baseUseCase := eventUsecase.NewEventUseCase(
		useCaseConfig,
		eventRepo,
		c.MailgunClient(),
		resubmitUseCase,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for event poller: %w", err)
		}
		return eventUsecase.NewEventPollerWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initDeliveryCheckRunner creates the delivery check use case with all its dependencies.
func (c *Container) initDeliveryCheckRunner() (eventUsecase.DeliveryCheckRunner, error) {
	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for delivery check: %w", err)
	}

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for delivery check: %w", err)
	}

	useCaseConfig := eventUsecase.DeliveryCheckConfig{
		Domain:     c.config.MailgunDomain,
		WindowDays: c.config.DeliveryCheckWindowDays,
		Hour:       c.config.DeliveryCheckHour,
		Minute:     c.config.DeliveryCheckMinute,
	}

	baseUseCase := eventUsecase.NewDeliveryCheckUseCase(
		useCaseConfig,
		eventRepo,
		c.MailgunClient(),
		queueUseCase,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for delivery check: %w", err)
		}
		return eventUsecase.NewDeliveryCheckRunnerWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initEventHandler creates the event HTTP handler with all its dependencies.
func (c *Container) initEventHandler() (*eventHTTP.EventHandler, error) {
	eventPoller, err := c.EventPoller()
	if err != nil {
		return nil, fmt.Errorf("failed to get event poller for event handler: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event handler: %w", err)
	}

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for event handler: %w", err)
	}

	return eventHTTP.NewEventHandler(eventPoller, eventRepo, queueUseCase, c.Logger()), nil
}
