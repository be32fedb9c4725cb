// Package email delivers payslips through Brevo's transactional email API.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"

	"github.com/Lllllllleong/payslipflow/internal/models"
)

const defaultSignature = "HR Team"

var bodyTemplate = template.Must(template.New("payslip").Parse(`<html><body>
    <p>Dear {{.Name}},</p>
    <p>Please find attached your salary slip for the month of {{.Month}}.</p>
    <p>Best Regards,<br>{{.Signature}}</p>
  </body></html>`))

// BrevoConfig holds the account and sender identity used for every message.
type BrevoConfig struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	CompanyName string
	Timeout     time.Duration
}

// PaySlip is one page addressed to one employee.
type PaySlip struct {
	ToEmail    string
	ToName     string
	Month      string
	Attachment models.PdfData
	Filename   string
}

// BrevoClient sends payslips with the transactional emails API.
type BrevoClient struct {
	api    *brevo.APIClient
	config BrevoConfig
}

// NewBrevoClient creates a client. A zero Timeout leaves requests unbounded.
func NewBrevoClient(config BrevoConfig) *BrevoClient {
	cfg := brevo.NewConfiguration()
	if config.BaseURL != "" {
		cfg.BasePath = strings.TrimSuffix(config.BaseURL, "/")
	}
	cfg.AddDefaultHeader("api-key", config.APIKey)
	cfg.HTTPClient = &http.Client{Timeout: config.Timeout}
	return &BrevoClient{
		api:    brevo.NewAPIClient(cfg),
		config: config,
	}
}

// Subject returns the subject line for month.
func Subject(month string) string {
	return "Salary Slip – " + month
}

// SendPaySlip sends slip and returns the provider's message id.
func (c *BrevoClient) SendPaySlip(ctx context.Context, slip PaySlip) (string, error) {
	body, err := c.render(slip)
	if err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	message := brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Name: c.config.SenderName, Email: c.config.SenderEmail},
		To:          []brevo.SendSmtpEmailTo{{Email: slip.ToEmail, Name: slip.ToName}},
		Subject:     Subject(slip.Month),
		HtmlContent: body,
		Attachment: []brevo.SendSmtpEmailAttachment{{
			Content: base64.StdEncoding.EncodeToString(slip.Attachment),
			Name:    slip.Filename,
		}},
	}

	sent, resp, err := c.api.TransactionalEmailsApi.SendTransacEmail(ctx, message)
	if err != nil {
		err = apiError(resp, err)
		slog.Error("Failed to send email.", "email", slip.ToEmail, "error", err)
		return "", err
	}
	slog.Info("Email sent.", "email", slip.ToEmail, "messageId", sent.MessageId)
	return sent.MessageId, nil
}

func (c *BrevoClient) render(slip PaySlip) (string, error) {
	signature := c.config.CompanyName
	if signature == "" {
		signature = defaultSignature
	}
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		Name, Month, Signature string
	}{slip.ToName, slip.Month, signature})
	return buf.String(), err
}

// APIError is a non-2xx answer from Brevo.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// apiError turns the SDK's error for a rejected request into an APIError
// carrying Brevo's message. Transport errors are returned unchanged.
func apiError(resp *http.Response, err error) error {
	var swaggerErr brevo.GenericSwaggerError
	if !errors.As(err, &swaggerErr) || resp == nil {
		return err
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var decoded struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(swaggerErr.Body(), &decoded) == nil {
		apiErr.Code = decoded.Code
		apiErr.Message = decoded.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
