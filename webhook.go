package pennant

import "github.com/OrlandoBitencourt/pennant/internal/server"

// WebhookSignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const WebhookSignatureHeader = server.SignatureHeader

// SignWebhook computes the signature the admin server expects for body.
func SignWebhook(secret string, body []byte) string {
	return server.Sign(secret, body)
}
