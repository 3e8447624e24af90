package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"

	"github.com/wayfarer-app/wayfarer-backend/config"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *EmailMetrics
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service", "from", cfg.FromAddress)
	client := resend.NewClient(cfg.ResendAPIKey)
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfarer_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		client:  client,
		metrics: metrics,
	}
}

func (s *EmailService) SendInvitationEmail(ctx context.Context, data types.EmailData) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	requiredFields := []string{"InviteeEmail", "PlanName", "AcceptanceURL"}
	for _, field := range requiredFields {
		if _, ok := data.TemplateData[field]; !ok {
			s.metrics.errorCount.Inc()
			err := fmt.Errorf("missing required template field: %s", field)
			log.Errorw("Invalid template data", "error", err)
			return err
		}
	}

	tmpl, err := template.New("invitation").Parse(invitationEmailTemplate)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to parse email template", "error", err)
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, data.TemplateData); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to execute email template", "error", err)
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{data.To},
		Subject: data.Subject,
		Html:    htmlContent.String(),
	}

	_, err = s.client.Emails.Send(params)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"to", logger.MaskEmail(data.To),
			"subject", data.Subject)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Email sent successfully",
		"to", logger.MaskEmail(data.To),
		"subject", data.Subject)

	return nil
}

const invitationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Wayfarer invitation</title>
    <style>
        body {
            font-family: -apple-system, 'Segoe UI', Helvetica, sans-serif;
            background-color: #f2f5f4;
            color: #2b2b2b;
            margin: 0;
            padding: 24px 16px;
        }
        .card {
            max-width: 560px;
            margin: 0 auto;
            background-color: #ffffff;
            padding: 32px;
            border-radius: 10px;
            border-top: 4px solid #1A7F6B;
        }
        h1 {
            font-size: 22px;
            margin: 0 0 16px;
        }
        p {
            font-size: 15px;
            line-height: 1.6;
            margin: 0 0 16px;
        }
        blockquote {
            margin: 0 0 16px;
            padding: 12px 16px;
            background-color: #f2f5f4;
            border-left: 3px solid #1A7F6B;
            font-style: italic;
        }
        .button {
            display: inline-block;
            padding: 12px 28px;
            font-size: 15px;
            font-weight: 600;
            text-decoration: none;
            background-color: #1A7F6B;
            color: #ffffff;
            border-radius: 6px;
        }
        .fallback {
            margin-top: 24px;
            font-size: 13px;
            color: #6b6b6b;
            word-break: break-all;
        }
    </style>
</head>
<body>
    <div class="card">
        <h1>Join "{{.PlanName}}" on Wayfarer</h1>
        <p>Hi {{.InviteeEmail}},</p>
        <p>A tripmate wants you on the plan for "{{.PlanName}}".</p>
        {{if .PersonalMessage}}<blockquote>{{.PersonalMessage}}</blockquote>{{end}}
        <p><a href="{{.AcceptanceURL}}" class="button">View invitation</a></p>
        <p class="fallback">
            If the button does not work, open this link:<br/>
            {{.AcceptanceURL}}
        </p>
    </div>
</body>
</html>`
