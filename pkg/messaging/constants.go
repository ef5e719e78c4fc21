package messaging

const (
	ExchangeName        = "notifications"
	TicketsRoutingKey   = "tickets_available"
	TicketsQueueName    = "tickets_available_queue"
	DeliveredRoutingKey = "tickets_delivered"
	DeliveredQueueName  = "tickets_delivered_queue"
)
