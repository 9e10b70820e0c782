package app

import (
	"fmt"

	submissionHTTP "github.com/allisson/mailsync/internal/submission/http"
	submissionRepository "github.com/allisson/mailsync/internal/submission/repository"
	submissionUsecase "github.com/allisson/mailsync/internal/submission/usecase"
)

// SubmissionRepository returns the submission repository based on database driver.
func (c *Container) SubmissionRepository() (submissionUsecase.SubmissionRepository, error) {
	var err error
	c.submissionRepoInit.Do(func() {
		c.submissionRepo, err = c.initSubmissionRepository()
		if err != nil {
			c.initErrors["submissionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["submissionRepo"]; exists {
		return nil, storedErr
	}
	return c.submissionRepo, nil
}

// SubmissionUseCase returns the submission use case.
func (c *Container) SubmissionUseCase() (*submissionUsecase.SubmissionUseCase, error) {
	var err error
	c.submissionUseCaseInit.Do(func() {
		c.submissionUseCase, err = c.initSubmissionUseCase()
		if err != nil {
			c.initErrors["submissionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["submissionUseCase"]; exists {
		return nil, storedErr
	}
	return c.submissionUseCase, nil
}

// SubmissionHandler returns the HTTP handler for submission operations.
func (c *Container) SubmissionHandler() (*submissionHTTP.SubmissionHandler, error) {
	var err error
	c.submissionHandlerInit.Do(func() {
		c.submissionHandler, err = c.initSubmissionHandler()
		if err != nil {
			c.initErrors["submissionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["submissionHandler"]; exists {
		return nil, storedErr
	}
	return c.submissionHandler, nil
}

// initSubmissionRepository creates the submission repository based on the database driver.
func (c *Container) initSubmissionRepository() (submissionUsecase.SubmissionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for submission repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return submissionRepository.NewPostgreSQLSubmissionRepository(db), nil
	case "mysql":
		return submissionRepository.NewMySQLSubmissionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSubmissionUseCase creates the submission use case with all its dependencies.
func (c *Container) initSubmissionUseCase() (*submissionUsecase.SubmissionUseCase, error) {
	submissionRepo, err := c.SubmissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission repository for submission use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for submission use case: %w", err)
	}

	return submissionUsecase.NewSubmissionUseCase(submissionRepo, eventRepo, c.Logger()), nil
}

// initSubmissionHandler creates the submission HTTP handler with all its dependencies.
func (c *Container) initSubmissionHandler() (*submissionHTTP.SubmissionHandler, error) {
	submissionUseCase, err := c.SubmissionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get submission use case for submission handler: %w", err)
	}

	return submissionHTTP.NewSubmissionHandler(submissionUseCase, c.Logger()), nil
}
