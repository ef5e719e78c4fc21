package messaging

// EmailEvent carries a rendered notification to the relay worker.
type EmailEvent struct {
	AlertID string `json:"alertId,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// DeliveredEvent is published by the relay worker once the email for an alert left over SMTP.
type DeliveredEvent struct {
	AlertID string `json:"alertId"`
}
