package cache

import "time"

const (
	// order_status:{order_id} -> OrderStatusView JSON
	KeyOrderStatus = "order_status:%s"

	// dedup:{scope}:{id}
	KeyDedup = "dedup:%s:%s"

	dedupScopeWebhook = "webhook"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
