package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// Config holds mail provider settings (matches FullConfig.MailOptions).
type Config struct {
	Enable    bool   `json:"enable"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	From      string `json:"from"`
	ReplyTo   string `json:"reply_to"`
	UseResend bool   `json:"use_resend"`
	ResendKey string `json:"resend_key"`
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender sends emails via SMTP or Resend.
type Sender struct {
	cfg Config
	// Overrides resolves a stored replacement template for a kind. Nil
	// means built-ins only.
	Overrides func(kind string) (string, bool)
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg}
}

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(msg)
	}
	return s.sendSMTP(msg)
}

// sendSMTP sends via net/smtp.
func (s *Sender) sendSMTP(msg Message) error {
	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(msg Message) error {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"from":    from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const riskAlertTpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="background-color:#fff;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,Arial,Noto Sans,sans-serif;padding:.5rem">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;border-width:1px;border-style:solid;border-radius:.25rem;box-shadow:0 4px 6px -1px rgb(0 0 0 / .1),0 2px 4px -2px rgb(0 0 0 / .1);margin:40px auto;padding:20px;width:550px;border-color:rgb(239,68,68);position:relative;overflow:hidden">
    <tbody>
      <tr><td>
        <h1 style="color:#000;font-size:18px;font-weight:400;text-align:center;margin:30px 0">Risk alert for <strong>{{.DocumentTitle}}</strong></h1>
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#000">The <strong>{{.Category}}</strong> category scored <strong>{{printf "%.1f" .Score}}</strong>, above your alert threshold of {{printf "%.1f" .Threshold}} (overall risk: {{.RiskLevel}}).</p>
        {{if .Summary}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="background-color:rgb(243,244,246);border-radius:.75rem;padding:0 1rem">
          <tbody><tr><td><p style="font-size:12px;line-height:24px;margin:16px 0;color:rgb(51,51,51)">{{.Summary}}</p></td></tr></tbody>
        </table>
        {{end}}
        {{if .KeyPoints}}
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#000">Key points:</p>
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="background-color:rgb(243,244,246);border-radius:.75rem;padding:0 1rem">
          <tbody><tr><td><p style="font-size:12px;line-height:24px;margin:16px 0;color:rgb(51,51,51)">{{range .KeyPoints}}&bull; {{.}}<br />{{end}}</p></td></tr></tbody>
        </table>
        {{end}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="text-align:center;margin:32px 0">
          <tbody><tr><td>
            <a href="{{.DetailURL}}" target="_blank" style="line-height:100%;text-decoration:none;display:inline-block;max-width:100%;padding:12px 20px;background-color:rgb(239,68,68);border-radius:.25rem;color:#fff;font-size:12px;font-weight:600;text-align:center">View full analysis</a>
          </td></tr></tbody>
        </table>
        <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
        <p style="font-size:10px;line-height:24px;margin:16px 0;text-align:center;color:rgb(156,163,175)">This is an automated message, please do not reply.<br />&copy;{{year}} {{.ProductName}}</p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>`

const dailyDigestTpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="background-color:#fff;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,Arial,Noto Sans,sans-serif;padding:.5rem">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;border-radius:.375rem;box-shadow:0 4px 6px -1px rgb(0 0 0 / .1),0 2px 4px -2px rgb(0 0 0 / .1);margin:40px auto;padding:20px;width:550px;position:relative;overflow:hidden;border:1px solid rgb(59,130,246)">
    <tbody>
      <tr><td>
        <h1 style="font-size:20px;text-align:center">Your {{.ProductName}} digest for {{.Date}}</h1>
        <p style="font-size:14px;line-height:24px;margin:16px 0">{{.AnalysisCount}} document(s) analyzed, {{.AlertCount}} alert(s) raised.</p>
        {{range .Items}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="background-color:rgb(243,244,246);border-radius:.75rem;padding:0 1rem;margin-bottom:8px">
          <tbody><tr><td><p style="font-size:12px;line-height:24px;margin:16px 0;color:rgb(51,51,51)"><strong>{{.Title}}</strong> &mdash; {{.RiskLevel}} risk ({{printf "%.1f" .Score}})</p></td></tr></tbody>
        </table>
        {{end}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="text-align:center;margin-top:32px;margin-bottom:32px;position:relative">
          <tbody><tr><td>
            <a href="{{.DashboardURL}}" target="_blank" style="line-height:100%;text-decoration:none;display:inline-block;max-width:100%;padding:12px 20px;background-color:rgb(59,130,246);border-radius:.25rem;color:#fff;font-size:12px;font-weight:600;text-align:center">Open dashboard</a>
          </td></tr></tbody>
        </table>
        <hr style="width:100%;border:none;border-top:1px solid #eaeaea" />
        <p style="font-size:10px;line-height:24px;margin:16px 0;text-align:center;color:rgb(156,163,175)">This is an automated message, please do not reply.<br />&copy;{{year}} {{.ProductName}}</p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>`

const verifyMailTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Verify your email</h2>
  <p>Thanks for signing up. Click the button below to verify this address:</p>
  <p style="margin-top:24px">
    <a href="{{.VerifyURL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Verify email</a>
  </p>
  <p style="color:#999;font-size:12px">If this wasn't you, you can safely ignore this message.</p>
</div>
</body>
</html>`

// RiskAlertData is the data for risk alert emails.
type RiskAlertData struct {
	ProductName   string
	DocumentTitle string
	Category      string
	Score         float64
	Threshold     float64
	RiskLevel     string
	Summary       string
	KeyPoints     []string
	DetailURL     string
}

// DigestItem is one analyzed document inside a daily digest.
type DigestItem struct {
	Title     string
	RiskLevel string
	Score     float64
}

// DailyDigestData is the data for daily digest emails.
type DailyDigestData struct {
	ProductName   string
	Date          string
	AnalysisCount int
	AlertCount    int
	Items         []DigestItem
	DashboardURL  string
}

// VerifyMailData is the data for email verification messages.
type VerifyMailData struct {
	VerifyURL string
}

// Template kinds addressable by the template override endpoints.
const (
	TemplateAlert  = "alert"
	TemplateDigest = "digest"
	TemplateVerify = "verify"
)

// DefaultTemplate returns the built-in template for a kind.
func DefaultTemplate(kind string) (string, bool) {
	switch kind {
	case TemplateAlert:
		return riskAlertTpl, true
	case TemplateDigest:
		return dailyDigestTpl, true
	case TemplateVerify:
		return verifyMailTpl, true
	}
	return "", false
}

// ValidateTemplate parses src with the same function map used at send time.
func ValidateTemplate(src string) error {
	_, err := template.New("").Funcs(templateFuncs()).Parse(src)
	return err
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(templateFuncs()).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render resolves the template for kind. A stored override that fails to
// render falls back to the built-in.
func (s *Sender) render(kind, builtin string, data interface{}) (string, error) {
	if s.Overrides != nil {
		if tpl, ok := s.Overrides(kind); ok && strings.TrimSpace(tpl) != "" {
			if html, err := renderTemplate(tpl, data); err == nil {
				return html, nil
			}
		}
	}
	return renderTemplate(builtin, data)
}

// SendRiskAlert sends a risk alert for one analysis category crossing its threshold.
func (s *Sender) SendRiskAlert(to string, data RiskAlertData) error {
	if strings.TrimSpace(data.ProductName) == "" {
		data.ProductName = "ClauseLens"
	}
	if strings.TrimSpace(data.RiskLevel) == "" {
		data.RiskLevel = "-"
	}
	html, err := s.render(TemplateAlert, riskAlertTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Risk alert: %s", data.ProductName, data.DocumentTitle),
		HTML:    html,
	})
}

// SendDailyDigest sends the daily summary of analyses and alerts.
func (s *Sender) SendDailyDigest(to string, data DailyDigestData) error {
	if strings.TrimSpace(data.ProductName) == "" {
		data.ProductName = "ClauseLens"
	}
	if strings.TrimSpace(data.Date) == "" {
		data.Date = time.Now().Format("2006-01-02")
	}
	html, err := s.render(TemplateDigest, dailyDigestTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Daily digest for %s", data.ProductName, data.Date),
		HTML:    html,
	})
}

// SendVerifyMail sends an email verification link to a new account.
func (s *Sender) SendVerifyMail(to string, data VerifyMailData) error {
	html, err := s.render(TemplateVerify, verifyMailTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "Please verify your email address",
		HTML:    html,
	})
}
