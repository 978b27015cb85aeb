package mail_test

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/msomdec/recipe-box/internal/mail"
)

// fakeSMTP accepts one connection and speaks just enough SMTP for net/smtp.
// The message data is sent on the returned channel.
func fakeSMTP(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "DATA"):
				_ = tp.PrintfLine("354 go ahead")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				_ = tp.PrintfLine("250 OK")
				got <- strings.Join(lines, "\n")
			case strings.HasPrefix(cmd, "QUIT"):
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("500 unknown command")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, got
}

func TestSMTPSender_Send(t *testing.T) {
	port, got := fakeSMTP(t)
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host: "127.0.0.1",
		Port: port,
		From: "noreply@recipes.test",
	})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}

	err = sender.Send(context.Background(), mail.Message{
		To:      "cook@example.com",
		Subject: "Password recovery",
		Text:    "Follow the link",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case data := <-got:
		for _, want := range []string{"To: cook@example.com", "Subject: Password recovery", "Follow the link"} {
			if !strings.Contains(data, want) {
				t.Errorf("message missing %q:\n%s", want, data)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fake server received no message")
	}
}

func TestSMTPSender_BreakerOpens(t *testing.T) {
	// A closed listener gives a port that refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:             "127.0.0.1",
		Port:             port,
		From:             "noreply@recipes.test",
		FailureThreshold: 2,
		BreakerTimeout:   time.Hour,
		DialTimeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}

	msg := mail.Message{To: "cook@example.com", Subject: "s", Text: "t"}
	for i := 0; i < 2; i++ {
		err := sender.Send(context.Background(), msg)
		if err == nil || errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("attempt %d: expected a dial error, got %v", i+1, err)
		}
	}

	if err := sender.Send(context.Background(), msg); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}

func TestNewSMTPSender_RequiresSettings(t *testing.T) {
	if _, err := mail.NewSMTPSender(mail.SMTPConfig{Port: 25, From: "a@b.c"}); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestRecorder(t *testing.T) {
	var r mail.Recorder
	ctx := context.Background()

	if err := r.Send(ctx, mail.Message{To: "a@example.com"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	r.Err = errors.New("down")
	if err := r.Send(ctx, mail.Message{To: "b@example.com"}); err == nil {
		t.Fatal("expected configured error")
	}

	msgs := r.Messages()
	if len(msgs) != 1 || msgs[0].To != "a@example.com" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}
