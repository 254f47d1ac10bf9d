package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var _ repository.NotificationRepository = (*Sender)(nil)

type mockProvider struct {
	sendFn func(ctx context.Context, to, subject, htmlBody string) (string, error)
}

func (m *mockProvider) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	return m.sendFn(ctx, to, subject, htmlBody)
}

func testNotice() entity.PriceDropNotice {
	return entity.PriceDropNotice{
		SubscriptionID: "sub-1",
		Destination:    "shopper@example.com",
		ProductName:    "Acme <b>Espresso</b> Machine<script>alert(1)</script>",
		ProductURL:     "https://shop.example.com/p/1?a=1&b=2",
		OldPrice:       200,
		NewPrice:       150,
	}
}

func TestSender_Send(t *testing.T) {
	var gotTo, gotSubject, gotBody string
	provider := &mockProvider{sendFn: func(_ context.Context, to, subject, body string) (string, error) {
		gotTo, gotSubject, gotBody = to, subject, body
		return "msg-42", nil
	}}

	ref, err := NewSender(provider, zaptest.NewLogger(t)).Send(context.Background(), testNotice())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ref != "msg-42" {
		t.Errorf("ref = %q, want msg-42", ref)
	}
	if gotTo != "shopper@example.com" {
		t.Errorf("to = %q", gotTo)
	}
	if !strings.HasPrefix(gotSubject, "Price drop: ") {
		t.Errorf("subject = %q", gotSubject)
	}
	for _, want := range []string{"200.00", "150.00", "You save 50.00 (25%)", "a=1&amp;b=2"} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("body missing %q", want)
		}
	}
	for _, bad := range []string{"<script>", "<b>Espresso</b>"} {
		if strings.Contains(gotBody, bad) {
			t.Errorf("body contains unsanitized %q", bad)
		}
	}
}

func TestSender_SendError(t *testing.T) {
	provider := &mockProvider{sendFn: func(context.Context, string, string, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	if _, err := NewSender(provider, zap.NewNop()).Send(context.Background(), testNotice()); err == nil {
		t.Error("Send() error = nil, want error")
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		name   string
		notice entity.PriceDropNotice
		want   string
	}{
		{name: "named", notice: entity.PriceDropNotice{ProductName: "Acme Kettle"}, want: "Price drop: Acme Kettle"},
		{name: "name is url", notice: entity.PriceDropNotice{ProductName: "https://x.example", ProductURL: "https://x.example"}, want: "Price drop on a product you follow"},
		{name: "empty", notice: entity.PriceDropNotice{}, want: "Price drop on a product you follow"},
		{name: "long", notice: entity.PriceDropNotice{ProductName: strings.Repeat("a", 80)}, want: "Price drop: " + strings.Repeat("a", 60) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSubject(tt.notice); got != tt.want {
				t.Errorf("formatSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBrevoProvider_Send(t *testing.T) {
	var gotKey string
	var gotReq brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@smtp-relay.mailin.fr>"}`))
	}))
	defer srv.Close()

	b := NewBrevoProvider("key-1", "alerts@pricewatch.local", "Pricewatch", zaptest.NewLogger(t))
	b.endpoint = srv.URL

	ref, err := b.Send(context.Background(), "shopper@example.com", "Price drop", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ref != "<abc@smtp-relay.mailin.fr>" {
		t.Errorf("ref = %q", ref)
	}
	if gotKey != "key-1" {
		t.Errorf("api-key = %q", gotKey)
	}
	if gotReq.Sender.Email != "alerts@pricewatch.local" || len(gotReq.To) != 1 || gotReq.To[0].Email != "shopper@example.com" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestBrevoProvider_Retries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "server error retried", status: http.StatusInternalServerError, wantCalls: 3},
		{name: "bad request not retried", status: http.StatusBadRequest, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			b := NewBrevoProvider("key", "from@example.com", "", zap.NewNop())
			b.endpoint = srv.URL
			b.delay = time.Millisecond

			if _, err := b.Send(context.Background(), "to@example.com", "s", "b"); err == nil {
				t.Fatal("Send() error = nil, want error")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	raw, err := base64.URLEncoding.DecodeString(buildMessage("a@example.com\r\nBcc: evil@example.com", "Hi\nthere", "<p>x</p>"))
	if err != nil {
		t.Fatal(err)
	}
	msg := string(raw)
	if strings.Contains(msg, "\r\nBcc:") {
		t.Errorf("header injection survived: %q", msg)
	}
	if !strings.Contains(msg, "Subject: Hithere\r\n") {
		t.Errorf("subject not sanitized: %q", msg)
	}
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		wantPrefix string
	}{
		{name: "ascii passes through", subject: "Price drop: Headphones", wantPrefix: "Subject: Price drop: Headphones\r\n"},
		{name: "arabic", subject: "خصم على سماعات", wantPrefix: "Subject: =?utf-8?q?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := base64.URLEncoding.DecodeString(buildMessage("a@example.com", tt.subject, "<p>x</p>"))
			if err != nil {
				t.Fatal(err)
			}
			var header string
			for _, line := range strings.Split(string(raw), "\r\n") {
				if strings.HasPrefix(line, "Subject: ") {
					header = line
				}
			}
			if !strings.HasPrefix(header+"\r\n", tt.wantPrefix) {
				t.Fatalf("subject header = %q, want prefix %q", header, tt.wantPrefix)
			}
			decoded, err := new(mime.WordDecoder).DecodeHeader(strings.TrimPrefix(header, "Subject: "))
			if err != nil {
				t.Fatal(err)
			}
			if decoded != tt.subject {
				t.Errorf("decoded subject = %q, want %q", decoded, tt.subject)
			}
		})
	}
}

func TestMockProvider(t *testing.T) {
	ref, err := NewMockProvider(zap.NewNop()).Send(context.Background(), "a@example.com", "s", "b")
	if err != nil || !strings.HasPrefix(ref, "mock-") {
		t.Errorf("Send() = %q, %v", ref, err)
	}
}
