package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/chachabrian/rideon-backend/internal/config"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/testutil"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSMS(t *testing.T) {
	res := NewMockSMS(logger.NewNop()).Send(context.Background(), "+2348012345678", "hello")
	assert.True(t, res.Success)
	assert.Equal(t, "mock", res.Provider)
	assert.True(t, strings.HasPrefix(res.MessageID, "mock_"))
}

func TestAfricasTalkingSMS(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
	}{
		{"accepted", http.StatusCreated, `{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"status":"Success","messageId":"ATXid_1"}]}}`, true},
		{"rejected recipient", http.StatusCreated, `{"SMSMessageData":{"Message":"Sent to 0/1","Recipients":[{"status":"InvalidPhoneNumber"}]}}`, false},
		{"server error", http.StatusInternalServerError, `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "key", r.Header.Get("apiKey"))
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "+2348012345678", r.PostForm.Get("to"))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			sms := NewAfricasTalkingSMS(srv.URL, "sandbox", "key", "", logger.NewNop())
			res := sms.Send(context.Background(), "+2348012345678", "code 123456")
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, "africastalking", res.Provider)
			if tt.success {
				assert.Equal(t, "ATXid_1", res.MessageID)
			} else {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestAfricasTalkingSMS_MissingCredentials(t *testing.T) {
	res := NewAfricasTalkingSMS("http://unused", "", "", "", logger.NewNop()).Send(context.Background(), "+2348012345678", "x")
	assert.False(t, res.Success)
}

type fakeSNS struct {
	snsiface.SNSAPI
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) PublishWithContext(ctx aws.Context, in *sns.PublishInput, _ ...request.Option) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestSNSSMS(t *testing.T) {
	client := &fakeSNS{}
	res := NewSNSSMS(client, "RideOn", logger.NewNop()).Send(context.Background(), "+2348012345678", "hi")
	assert.True(t, res.Success)
	assert.Equal(t, "sns-1", res.MessageID)
	assert.Equal(t, "+2348012345678", aws.StringValue(client.input.PhoneNumber))
	assert.Equal(t, "RideOn", aws.StringValue(client.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))

	client.err = errors.New("throttled")
	res = NewSNSSMS(client, "", logger.NewNop()).Send(context.Background(), "+2348012345678", "hi")
	assert.False(t, res.Success)
	assert.Equal(t, "throttled", res.Error)
}

type fakeSES struct {
	sesiface.SESAPI
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmailWithContext(ctx aws.Context, in *ses.SendEmailInput, _ ...request.Option) (*ses.SendEmailOutput, error) {
	f.input = in
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESEmailSender(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESEmailSender(client, "no-reply@rideon.ng", "RideOn", logger.NewNop())
	require.NoError(t, sender.Send(context.Background(), "ada@example.com", "Hi", "text", "<p>html</p>"))
	assert.Equal(t, "RideOn <no-reply@rideon.ng>", aws.StringValue(client.input.Source))
	assert.Equal(t, "ada@example.com", aws.StringValue(client.input.Destination.ToAddresses[0]))
	assert.Equal(t, "<p>html</p>", aws.StringValue(client.input.Message.Body.Html.Data))
}

func TestSMTPEmailSender(t *testing.T) {
	sender := NewSMTPEmailSender(config.EmailConfig{
		From: "no-reply@rideon.ng", FromName: "RideOn", SMTPHost: "smtp.example.com", SMTPPort: "587",
	}, logger.NewNop())

	var gotAddr string
	var gotMsg []byte
	sender.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		assert.Nil(t, a)
		assert.Equal(t, []string{"ada@example.com"}, to)
		return nil
	}

	email := VerificationEmail("Ada", "https://rideon.ng/verify-email/abc")
	require.NoError(t, sender.Send(context.Background(), "ada@example.com", email.Subject, email.Text, email.HTML))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Verify your RideOn account")
	assert.Contains(t, string(gotMsg), "https://rideon.ng/verify-email/abc")

	unconfigured := NewSMTPEmailSender(config.EmailConfig{}, logger.NewNop())
	assert.Error(t, unconfigured.Send(context.Background(), "a@example.com", "s", "t", "h"))
}

func TestPasswordResetEmail(t *testing.T) {
	email := PasswordResetEmail("Ada", "https://rideon.ng/reset-password/tok", 24)
	assert.Contains(t, email.Text, "https://rideon.ng/reset-password/tok")
	assert.Contains(t, email.HTML, "valid for 24 hours")
}

func TestRedisTokenBlacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bl := NewRedisTokenBlacklist(client)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, bl.Add(ctx, "jti-expired", time.Now().Add(-time.Hour)))

	ok, err := bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bl.Contains(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRidePublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	sub := client.Subscribe(ctx, RideUpdatesChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	NewRidePublisher(client, logger.NewNop()).NotifyUser(ctx, 9, Event{Type: "ride_accepted"})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"userId":9`)
	assert.Contains(t, msg.Payload, `"ride_accepted"`)
}

func TestDBTokenBlacklist(t *testing.T) {
	db := testutil.NewDB(t)
	bl := NewDBTokenBlacklist(db)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, bl.Add(ctx, "jti-1", time.Now().Add(time.Hour)), "adding twice is a no-op")
	require.NoError(t, bl.Add(ctx, "jti-old", time.Now().Add(-time.Hour)))

	ok, err := bl.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bl.Contains(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, ok)

	purged, err := bl.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) NotifyUser(ctx context.Context, userID uint, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestMultiNotifier(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	MultiNotifier{a, nil, b}.NotifyUser(context.Background(), 1, Event{Type: "x"})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestHub_NotifyWithoutClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub([]string{"*"}, logger.NewNop())
	go hub.Run(ctx)
	defer cancel()

	hub.NotifyUser(ctx, 1, Event{Type: "ride_accepted"})
	assert.Equal(t, 0, hub.ConnectedClients())
}

type fakeFCM struct {
	messages []*messaging.Message
	err      error
}

func (f *fakeFCM) Send(ctx context.Context, m *messaging.Message) (string, error) {
	f.messages = append(f.messages, m)
	return "projects/x/messages/1", f.err
}

func TestPushNotifier(t *testing.T) {
	db := testutil.NewDB(t)
	token := "device-token"
	withToken := testutil.CreateUser(t, db, models.UserTypeRider, func(u *models.User) { u.FCMToken = &token })
	withoutToken := testutil.CreateUser(t, db, models.UserTypeRider)

	fcm := &fakeFCM{}
	push := NewPushNotifier(fcm, db, logger.NewNop())
	ctx := context.Background()

	push.NotifyUser(ctx, withToken.ID, Event{Type: "driver_arrival", Title: "Your driver has arrived", Data: map[string]interface{}{"ride_id": 4}})
	push.NotifyUser(ctx, withoutToken.ID, Event{Type: "driver_arrival", Title: "Your driver has arrived"})
	push.NotifyUser(ctx, withToken.ID, Event{Type: "silent"})

	require.Len(t, fcm.messages, 1)
	assert.Equal(t, token, fcm.messages[0].Token)
	assert.Equal(t, "4", fcm.messages[0].Data["ride_id"])
	assert.Equal(t, "driver_arrival", fcm.messages[0].Data["type"])
}
