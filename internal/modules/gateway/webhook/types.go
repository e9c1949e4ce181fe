package webhook

import "time"

// CreateWebhookDTO is the request body for creating a webhook.
type CreateWebhookDTO struct {
	PayloadURL string   `json:"payloadUrl" binding:"required,url"`
	Events     []string `json:"events"      binding:"required,min=1"`
	Enabled    *bool    `json:"enabled"`
	Secret     string   `json:"secret"`
}

// UpdateWebhookDTO is the request body for updating a webhook.
type UpdateWebhookDTO struct {
	PayloadURL *string  `json:"payloadUrl"`
	Events     []string `json:"events"`
	Enabled    *bool    `json:"enabled"`
	Secret     *string  `json:"secret"`
}

// webhookResponse is the outbound representation of a webhook (no secret).
type webhookResponse struct {
	ID         string    `json:"id"`
	PayloadURL string    `json:"payloadUrl"`
	Events     []string  `json:"events"`
	Enabled    bool      `json:"enabled"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// webhookEventEnum is the canonical list of supported event names.
var webhookEventEnum = []string{
	"GATEWAY_CONNECT",
	"GATEWAY_DISCONNECT",
	"EXTENSION_ONLINE",
	"EXTENSION_OFFLINE",
	"AUTH_FAILED",
	"USER_REGISTERED",
	"PROFILE_SUBMITTED",
	"PROFILE_UPDATED",
	"PROFILE_DELETED",
	"DOCUMENT_CREATED",
	"DOCUMENT_DELETED",
	"ANALYSIS_STARTED",
	"ANALYSIS_PASS_COMPLETED",
	"ANALYSIS_COMPLETED",
	"ANALYSIS_FAILED",
	"ALERT_RULE_CREATE",
	"ALERT_RULE_UPDATE",
	"ALERT_RULE_DELETE",
	"ALERT_TRIGGERED",
	"ALERT_DIGEST_SENT",
	"REPORT_GENERATED",
	"ARCHIVE_CREATED",
	"CONFIG_CHANGED",
	"ADMIN_NOTIFICATION",
	"STDOUT",
}

// acceptedWebhookEvents is a set built from webhookEventEnum for O(1) lookup.
var acceptedWebhookEvents = func() map[string]struct{} {
	out := make(map[string]struct{}, len(webhookEventEnum))
	for _, event := range webhookEventEnum {
		out[event] = struct{}{}
	}
	return out
}()
