// Package mail sends state change notifications over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/doridoridoriand/netsav-go/internal/event"
	"github.com/doridoridoriand/netsav-go/internal/trigger"
)

// Name is the configuration key of this trigger.
const Name = "mail"

const (
	defaultTag     = "NETSAV"
	defaultBody    = "Hi,\n\n{message}\n\nRegards,\nNETSAV Network monitoring system"
	defaultTimeout = 5 * time.Second
)

// Settings is the validated mail configuration.
type Settings struct {
	Sender     string
	Recipients []string
	Server     string
	Port       int
	SSL        bool
	StartTLS   bool
	Auth       bool
	Username   string
	Password   string
	Tag        string
	Body       string
	Timeout    time.Duration
}

// Plugin delivers one mail per event.
type Plugin struct {
	log      zerolog.Logger
	settings Settings
	hostname string
}

// New is the trigger.Factory for the mail plugin.
func New(logger zerolog.Logger) (trigger.Plugin, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Plugin{log: logger, hostname: host}, nil
}

// Name implements trigger.Plugin.
func (p *Plugin) Name() string { return Name }

// Configure validates sender, recipients, server and credentials.
func (p *Plugin) Configure(params map[string]string) error {
	settings, err := parseSettings(trigger.Params(params))
	if err != nil {
		return err
	}
	p.settings = settings
	return nil
}

func parseSettings(params trigger.Params) (Settings, error) {
	if err := params.Require("sender", "recipient", "server"); err != nil {
		return Settings{}, err
	}
	s := Settings{
		Sender:     params["sender"],
		Recipients: params.List("recipient"),
		Server:     params["server"],
		SSL:        params.Bool("ssl"),
		StartTLS:   params.Bool("start_tls"),
		Auth:       params.Bool("auth"),
		Username:   params["username"],
		Password:   params["password"],
		Tag:        strings.Trim(params.Get("tag", defaultTag), "[]"),
		Body:       params.Get("body", defaultBody),
	}
	if len(s.Recipients) == 0 {
		return Settings{}, errors.New("recipient list is empty")
	}
	if s.Auth && (s.Username == "" || s.Password == "") {
		return Settings{}, errors.New("auth requires username and password")
	}
	if s.SSL && s.StartTLS {
		return Settings{}, errors.New("ssl and start_tls are exclusive")
	}

	defaultPort := 25
	if s.SSL {
		defaultPort = 465
	}
	port, err := params.Int("port", defaultPort)
	if err != nil {
		return Settings{}, err
	}
	if port < 1 || port > 65535 {
		return Settings{}, fmt.Errorf("port %d out of range", port)
	}
	s.Port = port

	timeout, err := params.Seconds("timeout", defaultTimeout)
	if err != nil {
		return Settings{}, err
	}
	s.Timeout = timeout
	return s, nil
}

// Handle implements trigger.Plugin.
func (p *Plugin) Handle(ctx context.Context, evt event.StateChangeEvent) error {
	msg := BuildMessage(p.settings, p.hostname, evt)
	if err := p.send(ctx, msg); err != nil {
		return fmt.Errorf("send to %s:%d: %w", p.settings.Server, p.settings.Port, err)
	}
	p.log.Debug().Str("target", evt.Name).Strs("recipients", p.settings.Recipients).Msg("mail sent")
	return nil
}

// Subject returns "[host][tag][event tag] brief".
func Subject(s Settings, hostname string, evt event.StateChangeEvent) string {
	subject := "[" + hostname + "][" + s.Tag + "]"
	if evt.Tag != "" {
		subject += "[" + evt.Tag + "]"
	}
	if evt.Brief != "" {
		subject += " " + evt.Brief
	}
	return subject
}

// Body renders the body template. {message} and every payload key in braces
// are substituted and literal "\n" sequences become line breaks.
func Body(s Settings, evt event.StateChangeEvent) string {
	body := strings.ReplaceAll(s.Body, `\n`, "\n")
	pairs := []string{"{message}", evt.Msg}
	for key, value := range evt.Fields() {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// BuildMessage renders the RFC 5322 message for evt.
func BuildMessage(s Settings, hostname string, evt event.StateChangeEvent) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.Sender + "\r\n")
	b.WriteString("To: " + strings.Join(s.Recipients, ", ") + "\r\n")
	b.WriteString("Subject: " + Subject(s, hostname, evt) + "\r\n")
	b.WriteString("Date: " + evt.Time.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: <" + evt.ID.String() + "@" + hostname + ">\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(Body(s, evt), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (p *Plugin) send(ctx context.Context, msg []byte) error {
	s := p.settings
	addr := net.JoinHostPort(s.Server, strconv.Itoa(s.Port))
	dialer := &net.Dialer{Timeout: s.Timeout}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var conn net.Conn
	var err error
	if s.SSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.Server}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.Server)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if err := client.Hello(p.hostname); err != nil {
		return err
	}
	if s.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.Server}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.Auth {
		if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Server)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(s.Sender); err != nil {
		return err
	}
	for _, rcpt := range s.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
