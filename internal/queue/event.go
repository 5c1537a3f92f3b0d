// Package queue forwards marketplace events to a message broker and
// consumes them back into an append-only audit log.
package queue

import (
	"fmt"
	"time"

	"github.com/iliyamo/marketplace-auction/internal/notify"
)

// AuditLine renders a settlement event as one human readable log line.  It
// reports false for events that are not recorded in the audit log.
func AuditLine(ev notify.Event) (string, bool) {
	if !ev.Type.Settlement() {
		return "", false
	}
	amount := "-"
	if ev.Amount != nil {
		amount = ev.Amount.StringFixed(2)
	}
	return fmt.Sprintf("[%s] %s | listing_id=%d | transaction_id=%d | buyer_id=%d | amount=%s | status=%s\n",
		ev.At.UTC().Format(time.RFC3339), ev.Type, ev.ListingID, ev.TransactionID, ev.BuyerID, amount, ev.Status), true
}
