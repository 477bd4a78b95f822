package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// NotificationService persists in-app notifications and optionally mirrors
// them to email. Everything here is fire-and-forget: failures are logged and
// swallowed so a notification problem can never reach the pipeline.
type NotificationService struct {
	notifications *mongo.Collection
	users         *mongo.Collection
	cfg           *config.Config
	breaker       *gobreaker.CircuitBreaker
}

func NewNotificationService(db *mongo.Database, cfg *config.Config) *NotificationService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SMTP",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &NotificationService{
		notifications: db.Collection("notifications"),
		users:         db.Collection("users"),
		cfg:           cfg,
		breaker:       breaker,
	}
}

// Notify records the notification and, when SMTP is configured, emails the
// recipient through the circuit breaker. Callers cannot observe delivery
// failures.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, notifType string, payload map[string]interface{}) {
	doc := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notifType,
		Payload:   payload,
		Read:      false,
		CreatedAt: time.Now(),
	}
	if _, err := s.notifications.InsertOne(ctx, doc); err != nil {
		logger.Error("failed to persist notification", "user_id", userID.Hex(), "type", notifType, "error", err.Error())
	}

	if s.cfg.SMTPHost == "" {
		return
	}

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil || user.Email == "" {
		return
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.sendEmail(user.Email, notifType, payload)
	})
	if err != nil {
		logger.Warn("notification email not delivered", "user_id", userID.Hex(), "error", err.Error())
	}
}

func (s *NotificationService) sendEmail(to, notifType string, payload map[string]interface{}) error {
	subject, body := s.composeEmail(notifType, payload)

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		s.cfg.SMTPFrom, to, subject, body)

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	return smtp.SendMail(addr, auth, s.cfg.SMTPFrom, []string{to}, []byte(message))
}

func (s *NotificationService) composeEmail(notifType string, payload map[string]interface{}) (subject, body string) {
	switch notifType {
	case models.NotificationPlagiarismChecked:
		score := payload["originality_score"]
		subject = fmt.Sprintf("Originality check complete (%v%% original)", score)
		var b strings.Builder
		fmt.Fprintf(&b, "The originality check for your submission has finished.\n\n")
		fmt.Fprintf(&b, "Originality score: %v%%\n", score)
		if ch, ok := payload["chapter"]; ok {
			fmt.Fprintf(&b, "Document: %v\n", ch)
		}
		body = b.String()
	case models.NotificationCheckFailed:
		subject = "Originality check failed"
		body = "The originality check for your submission could not be completed. Please re-upload the document or contact your coordinator."
	default:
		subject = "Capstone platform notification"
		body = fmt.Sprintf("You have a new notification: %s", notifType)
	}
	return subject, body
}
