package observability

const (
	MSyncRequests        MetricKey = "stock_sync_requests_total"
	MSyncDuration        MetricKey = "stock_sync_duration_seconds"
	MReservations        MetricKey = "stock_reservations_total"
	MNotifications       MetricKey = "stock_notifications_total"
	MCacheEvictions      MetricKey = "stock_cache_evictions_total"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
)
