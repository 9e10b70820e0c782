package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/mailsync/cmd/app/commands"
	"github.com/allisson/mailsync/internal/app"
	"github.com/allisson/mailsync/internal/config"
)

func getMailCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "send-message",
			Usage: "Track a submission and queue a message send",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "domain",
					Aliases: []string{"d"},
					Usage:   "Sending domain (defaults to MAILGUN_DOMAIN)",
				},
				&cli.StringFlag{
					Name:     "from",
					Required: true,
					Usage:    "Sender address",
				},
				&cli.StringFlag{
					Name:  "to",
					Usage: "Recipient address (defaults to SEND_DEFAULT_RECIPIENT)",
				},
				&cli.StringFlag{
					Name:     "subject",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Message subject",
				},
				&cli.StringFlag{
					Name:  "text",
					Usage: "Plain text body",
				},
				&cli.StringFlag{
					Name:  "html",
					Usage: "HTML body",
				},
				&cli.StringFlag{
					Name:  "source-type",
					Value: "cli",
					Usage: "Source record type tracked on the submission",
				},
				&cli.StringFlag{
					Name:  "source-id",
					Value: "",
					Usage: "Source record id tracked on the submission",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				submissionUseCase, err := container.SubmissionUseCase()
				if err != nil {
					return err
				}

				queueUseCase, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				domain := cmd.String("domain")
				if domain == "" {
					domain = cfg.MailgunDomain
				}

				return commands.RunSendMessage(
					ctx,
					submissionUseCase,
					queueUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.SendMessageOptions{
						Domain:     domain,
						From:       cmd.String("from"),
						To:         cmd.String("to"),
						Subject:    cmd.String("subject"),
						Text:       cmd.String("text"),
						HTML:       cmd.String("html"),
						SourceType: cmd.String("source-type"),
						SourceID:   cmd.String("source-id"),
					},
				)
			},
		},
		{
			Name:  "poll-events",
			Usage: "Fetch provider events and store them locally",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "since",
					Aliases: []string{"s"},
					Value:   24 * time.Hour,
					Usage:   "How far back to poll events from",
				},
				&cli.StringFlag{
					Name:    "filter",
					Aliases: []string{"f"},
					Usage:   "Event type filter expression (e.g. \"failed OR rejected\")",
				},
				&cli.BoolFlag{
					Name:  "resubmit",
					Usage: "Override RESUBMIT_ENABLED for this poll",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: "text",
					Usage: "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				eventPoller, err := container.EventPoller()
				if err != nil {
					return err
				}

				// Only an explicit flag overrides the configured toggle.
				var resubmit *bool
				if cmd.IsSet("resubmit") {
					value := cmd.Bool("resubmit")
					resubmit = &value
				}

				return commands.RunPollEvents(
					ctx,
					eventPoller,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Duration("since"),
					cmd.String("filter"),
					resubmit,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "check-deliveries",
			Usage: "Reconcile stored failure events against delivered events",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    "event-id",
					Aliases: []string{"e"},
					Usage:   "Check specific stored events instead of a full sweep (repeatable)",
				},
				&cli.StringFlag{
					Name:  "format",
					Value: "text",
					Usage: "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				deliveryCheckRunner, err := container.DeliveryCheckRunner()
				if err != nil {
					return err
				}

				return commands.RunCheckDeliveries(
					ctx,
					deliveryCheckRunner,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.StringSlice("event-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
