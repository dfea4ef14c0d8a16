package qrpay

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// ReferencePrefix starts every QR transaction reference. A reference reads
// {prefix}-{order_id}-{unix_millis} so a callback names its order without a lookup.
const ReferencePrefix = "QRP"

func NewReference(orderID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", ReferencePrefix, orderID, at.UnixMilli())
}

// ParseReference recovers the order id from a reference minted by NewReference.
// Order ids may themselves contain dashes, so the timestamp is split off the end.
func ParseReference(ref string) (orderID string, mintedAt time.Time, err error) {
	rest, ok := strings.CutPrefix(ref, ReferencePrefix+"-")
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: reference %q has no %s prefix", models.ErrMalformedCallback, ref, ReferencePrefix)
	}
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 || i == len(rest)-1 {
		return "", time.Time{}, fmt.Errorf("%w: reference %q has no timestamp", models.ErrMalformedCallback, ref)
	}
	millis, err := strconv.ParseInt(rest[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: reference %q timestamp: %v", models.ErrMalformedCallback, ref, err)
	}
	return rest[:i], time.UnixMilli(millis), nil
}
