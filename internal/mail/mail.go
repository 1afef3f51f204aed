// Package mail renders request notifications and delivers them over SMTP.
// When no relay is configured, rendered messages are appended to
// logs/notifications.log instead.
package mail

import (
    "bytes"
    "context"
    "fmt"
    "net"
    "net/smtp"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "sync"
    "text/template"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/config"
    "github.com/iliyamo/cafe-ordering/internal/queue"
)

var bodyTmpl = template.Must(template.New("status").Parse(`Hello,

{{if .FromStatus -}}
your {{.KindLabel}} #{{.RequestID}} moved from {{.FromStatus}} to {{.ToStatus}}.
{{- else -}}
we received your {{.KindLabel}} #{{.RequestID}}. It is {{.ToStatus}}.
{{- end}}
{{if .StartsAt}}
Time: {{.StartsAt}}{{if .EndsAt}} - {{.EndsAt}}{{end}}
{{- end}}
{{if .SeatID}}
Table: {{.SeatID}}
{{- end}}
Total: {{.Total}}

Thank you for visiting us.
`))

type view struct {
    queue.StatusChangedEvent
    KindLabel string
    SeatID    uint64
    Total     string
}

// Message is a rendered notification.
type Message struct {
    To      string
    Subject string
    Body    string
}

// Render turns ev into a plain-text email.
func Render(ev queue.StatusChangedEvent) (Message, error) {
    v := view{
        StatusChangedEvent: ev,
        KindLabel:          kindLabel(ev.Kind),
        Total:              formatCents(ev.TotalAmountCents),
    }
    if ev.SeatID != nil {
        v.SeatID = *ev.SeatID
    }
    var buf bytes.Buffer
    if err := bodyTmpl.Execute(&buf, v); err != nil {
        return Message{}, fmt.Errorf("render: %w", err)
    }
    subject := fmt.Sprintf("Your %s #%d is %s", v.KindLabel, ev.RequestID, strings.ToLower(ev.ToStatus))
    return Message{To: ev.OwnerEmail, Subject: subject, Body: buf.String()}, nil
}

func kindLabel(kind string) string {
    switch kind {
    case "RESERVATION":
        return "reservation"
    case "PREORDER":
        return "pre-order"
    case "WALKIN":
        return "walk-in"
    default:
        return "order"
    }
}

func formatCents(c int64) string {
    return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// Sender delivers rendered messages.
type Sender struct {
    cfg     config.SMTPConfig
    log     logrus.FieldLogger
    logPath string
    send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

    mu sync.Mutex // serializes writes to logPath
}

// NewSender returns a Sender for cfg.  An empty cfg.Host selects the file
// fallback.
func NewSender(cfg config.SMTPConfig, log logrus.FieldLogger) *Sender {
    return &Sender{
        cfg:     cfg,
        log:     log,
        logPath: filepath.Join("logs", "notifications.log"),
        send:    smtp.SendMail,
    }
}

// HandleStatusChanged renders and delivers ev.  It has the queue.Handler
// signature so it can be plugged straight into a queue.Consumer.
func (s *Sender) HandleStatusChanged(ctx context.Context, ev queue.StatusChangedEvent) error {
    if ev.OwnerEmail == "" {
        return fmt.Errorf("request %d has no recipient", ev.RequestID)
    }
    msg, err := Render(ev)
    if err != nil {
        return err
    }
    if err := ctx.Err(); err != nil {
        return err
    }
    if s.cfg.Host == "" {
        return s.appendToLog(msg)
    }
    if err := s.deliver(msg); err != nil {
        return err
    }
    s.log.WithFields(logrus.Fields{"request_id": ev.RequestID, "to_status": ev.ToStatus}).Info("notification sent")
    return nil
}

func (s *Sender) deliver(msg Message) error {
    addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
    var auth smtp.Auth
    if s.cfg.Username != "" {
        auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
    }
    raw := compose(s.cfg.From, msg, time.Now().UTC())
    if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, raw); err != nil {
        return fmt.Errorf("smtp send: %w", err)
    }
    return nil
}

func compose(from string, msg Message, at time.Time) []byte {
    var b strings.Builder
    b.WriteString("From: " + from + "\r\n")
    b.WriteString("To: " + msg.To + "\r\n")
    b.WriteString("Subject: " + msg.Subject + "\r\n")
    b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
    b.WriteString("MIME-Version: 1.0\r\n")
    b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
    b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
    return []byte(b.String())
}

func (s *Sender) appendToLog(msg Message) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(s.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(s.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    line := fmt.Sprintf("[%s] to=%s | subject=%q\n", time.Now().UTC().Format(time.RFC3339), msg.To, msg.Subject)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
