package app

import (
	"fmt"

	eventUsecase "github.com/allisson/mailsync/internal/event/usecase"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	queueRepository "github.com/allisson/mailsync/internal/queue/repository"
	queueUsecase "github.com/allisson/mailsync/internal/queue/usecase"
	sendUsecase "github.com/allisson/mailsync/internal/send/usecase"
)

// JobRepository returns the job repository based on database driver.
func (c *Container) JobRepository() (queueUsecase.JobRepository, error) {
	var err error
	c.jobRepoInit.Do(func() {
		c.jobRepo, err = c.initJobRepository()
		if err != nil {
			c.initErrors["jobRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jobRepo"]; exists {
		return nil, storedErr
	}
	return c.jobRepo, nil
}

// QueueUseCase returns the queue use case without job handlers registered.
// Use QueueWorker for the processing side of the queue.
func (c *Container) QueueUseCase() (*queueUsecase.QueueUseCase, error) {
	var err error
	c.queueUseCaseInit.Do(func() {
		c.queueUseCase, err = c.initQueueUseCase()
		if err != nil {
			c.initErrors["queueUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queueUseCase"]; exists {
		return nil, storedErr
	}
	return c.queueUseCase, nil
}

// QueueWorker returns the queue use case with the send and delivery check job
// handlers registered. Only the worker process needs handlers: the API process
// enqueues jobs without processing them.
func (c *Container) QueueWorker() (*queueUsecase.QueueUseCase, error) {
	var err error
	c.queueWorkerInit.Do(func() {
		err = c.registerJobHandlers()
		if err != nil {
			c.initErrors["queueWorker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queueWorker"]; exists {
		return nil, storedErr
	}
	return c.queueUseCase, nil
}

// initJobRepository creates the job repository based on the database driver.
func (c *Container) initJobRepository() (queueUsecase.JobRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for job repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return queueRepository.NewPostgreSQLJobRepository(db), nil
	case "mysql":
		return queueRepository.NewMySQLJobRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initQueueUseCase creates the queue use case with all its dependencies.
func (c *Container) initQueueUseCase() (*queueUsecase.QueueUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for queue use case: %w", err)
	}

	jobRepo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for queue use case: %w", err)
	}

	useCaseConfig := queueUsecase.Config{
		Interval:      c.config.WorkerInterval,
		BatchSize:     c.config.WorkerBatchSize,
		MaxRetries:    c.config.WorkerMaxRetries,
		RetryInterval: c.config.WorkerRetryInterval,
	}

	return queueUsecase.NewQueueUseCase(useCaseConfig, txManager, jobRepo, c.Logger()), nil
}

// registerJobHandlers wires the job handlers into the queue use case. The
// queue use case is resolved first because the delivery check use case uses
// it as the scheduler for the next daily run.
func (c *Container) registerJobHandlers() error {
	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return fmt.Errorf("failed to get queue use case for queue worker: %w", err)
	}

	payloadProcessor, err := c.PayloadProcessor()
	if err != nil {
		return fmt.Errorf("failed to get payload processor for queue worker: %w", err)
	}

	deliveryCheckRunner, err := c.DeliveryCheckRunner()
	if err != nil {
		return fmt.Errorf("failed to get delivery check runner for queue worker: %w", err)
	}

	logger := c.Logger()
	queueUseCase.Register(
		queueDomain.JobTypeSendMessage,
		sendUsecase.NewSendJobHandler(payloadProcessor, logger),
	)
	queueUseCase.Register(
		queueDomain.JobTypeDeliveryCheck,
		eventUsecase.NewDeliveryCheckHandler(deliveryCheckRunner, logger),
	)

	return nil
}
