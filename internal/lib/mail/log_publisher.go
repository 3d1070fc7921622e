package mail

import (
	"context"
	"log/slog"

	"signin_service/internal/models"
)

// LogPublisher writes messages to the log instead of a broker. Used for
// local runs without RabbitMQ.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.log.Info("email message",
		slog.String("to", msg.Email),
		slog.String("purpose", msg.Purpose),
		slog.String("link", msg.Link),
		slog.String("code", msg.Code),
	)

	return nil
}
