// Package providers holds what the payment provider integrations share.
package providers

import (
	"fmt"
	"net/url"
	"strings"
)

// Return statuses carried back to the storefront. They are a UX hint only.
const (
	ReturnSuccess   = "success"
	ReturnFailed    = "failed"
	ReturnCancelled = "cancelled"
)

// ReturnURL is where a provider sends the browser back to after checkout.
func ReturnURL(siteURL, orderID, status string) string {
	q := url.Values{}
	q.Set("order_id", orderID)
	q.Set("status", status)
	return fmt.Sprintf("%s/#/checkout?%s", strings.TrimRight(siteURL, "/"), q.Encode())
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
