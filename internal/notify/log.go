// Package notify hands user notifications to a sink. Delivery to the user
// happens downstream.
package notify

import (
	"context"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// LogNotifier records notifications in the service log. It is used when no
// broker is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	l.log.WithFields(logrus.Fields{
		"user_id":      n.UserID,
		"category":     n.Category,
		"reference_id": n.ReferenceID,
	}).Info(n.Title)
	return nil
}
