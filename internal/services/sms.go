package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/chachabrian/rideon-backend/internal/config"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/google/uuid"
)

// SMSResult reports the outcome of one send
type SMSResult struct {
	Success   bool   `json:"success"`
	Provider  string `json:"provider"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SMSSender dispatches text messages
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) SMSResult
}

// NewSMSSender picks the provider named in configuration
func NewSMSSender(cfg config.SMSConfig, awsSession *session.Session, log *logger.Logger) SMSSender {
	switch cfg.Provider {
	case "africastalking":
		return NewAfricasTalkingSMS(cfg.ATBaseURL, cfg.ATUsername, cfg.ATAPIKey, cfg.SenderID, log)
	case "sns":
		return NewSNSSMS(sns.New(awsSession), cfg.SenderID, log)
	default:
		return NewMockSMS(log)
	}
}

// MockSMS succeeds without network I/O
type MockSMS struct {
	log *logger.Logger
}

func NewMockSMS(log *logger.Logger) *MockSMS {
	return &MockSMS{log: log}
}

func (m *MockSMS) Send(ctx context.Context, phoneNumber, message string) SMSResult {
	id := "mock_" + uuid.NewString()
	m.log.Info("Mock SMS sent",
		logger.String("to", phoneNumber),
		logger.String("message_id", id),
		logger.Int("length", len(message)),
	)
	return SMSResult{Success: true, Provider: "mock", MessageID: id}
}

// AfricasTalkingSMS posts to the Africa's Talking messaging API
type AfricasTalkingSMS struct {
	baseURL  string
	username string
	apiKey   string
	senderID string
	client   *http.Client
	log      *logger.Logger
}

func NewAfricasTalkingSMS(baseURL, username, apiKey, senderID string, log *logger.Logger) *AfricasTalkingSMS {
	return &AfricasTalkingSMS{
		baseURL:  baseURL,
		username: username,
		apiKey:   apiKey,
		senderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

func (a *AfricasTalkingSMS) Send(ctx context.Context, phoneNumber, message string) SMSResult {
	fail := func(err error) SMSResult {
		a.log.Error("Africa's Talking SMS failed", logger.String("to", phoneNumber), logger.Err(err))
		return SMSResult{Success: false, Provider: "africastalking", Error: err.Error()}
	}

	if a.username == "" || a.apiKey == "" {
		return fail(fmt.Errorf("africa's talking credentials not set"))
	}

	data := url.Values{}
	data.Set("username", a.username)
	data.Set("to", phoneNumber)
	data.Set("message", message)
	if a.senderID != "" {
		data.Set("from", a.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("status code %d", resp.StatusCode))
	}

	var body atResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	if len(body.SMSMessageData.Recipients) == 0 || body.SMSMessageData.Recipients[0].Status != "Success" {
		return fail(fmt.Errorf("rejected: %s", body.SMSMessageData.Message))
	}

	return SMSResult{
		Success:   true,
		Provider:  "africastalking",
		MessageID: body.SMSMessageData.Recipients[0].MessageID,
	}
}

// SNSSMS publishes transactional SMS through AWS SNS
type SNSSMS struct {
	client   snsiface.SNSAPI
	senderID string
	log      *logger.Logger
}

func NewSNSSMS(client snsiface.SNSAPI, senderID string, log *logger.Logger) *SNSSMS {
	return &SNSSMS{client: client, senderID: senderID, log: log}
}

func (s *SNSSMS) Send(ctx context.Context, phoneNumber, message string) SMSResult {
	attrs := map[string]*sns.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.PublishWithContext(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phoneNumber),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		s.log.Error("SNS SMS failed", logger.String("to", phoneNumber), logger.Err(err))
		return SMSResult{Success: false, Provider: "sns", Error: err.Error()}
	}

	return SMSResult{Success: true, Provider: "sns", MessageID: aws.StringValue(out.MessageId)}
}
