package service

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/pkg/logger"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type EmailMessage struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
}

type EmailSender interface {
	Send(msg EmailMessage) error
}

// SendgridEmailSender 通过 SendGrid v3 API 发送纯文本邮件
type SendgridEmailSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendgridEmailSender(cfg *config.EmailConfig) *SendgridEmailSender {
	return &SendgridEmailSender{
		key:        cfg.SendgridAPIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: cfg.SubjectPrefix,
	}
}

func (s *SendgridEmailSender) Send(msg EmailMessage) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	m := sgmail.NewSingleEmail(s.from, s.subjPrefix+msg.Subject, to, msg.Body, "")

	res, err := sendgrid.NewSendClient(s.key).Send(m)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogEmailSender 未配置 API key 时只写日志
type LogEmailSender struct{}

func (LogEmailSender) Send(msg EmailMessage) error {
	logger.Log.Info("email (not sent, no provider configured)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

func NewEmailSender(cfg *config.EmailConfig) EmailSender {
	if cfg.SendgridAPIKey == "" {
		return LogEmailSender{}
	}
	return NewSendgridEmailSender(cfg)
}

// sendAsync 通知邮件不影响主流程，失败只记录
func sendAsync(sender EmailSender, msg EmailMessage) {
	go func() {
		if err := sender.Send(msg); err != nil {
			logger.Log.Error("sending email failed",
				zap.String("to", msg.ToAddress),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
	}()
}

func submissionFeedbackEmail(studentName, studentEmail, stepTitle, courseTitle, status string, grade *int, feedback string) EmailMessage {
	gradeText := "Ungraded"
	if grade != nil {
		gradeText = fmt.Sprintf("%d/100", *grade)
	}
	body := fmt.Sprintf("Hi %s,\n\nYour submission for %q in the course %q has been %s.\nGrade: %s\n",
		studentName, stepTitle, courseTitle, status, gradeText)
	if feedback != "" {
		body += "\nFeedback:\n" + feedback + "\n"
	}
	return EmailMessage{
		ToName:    studentName,
		ToAddress: studentEmail,
		Subject:   "Your submission has been " + status,
		Body:      body,
	}
}

func roleChangeEmail(name, address, oldRole, newRole string) EmailMessage {
	return EmailMessage{
		ToName:    name,
		ToAddress: address,
		Subject:   "Your role has been updated",
		Body:      fmt.Sprintf("Hi %s,\n\nYour role changed from %s to %s.\n", name, oldRole, newRole),
	}
}
