package staffbooks

import (
	"github.com/sirupsen/logrus"

	"github.com/staffbooks/staffbooks/internal/notification"
)

// Webhook event names emitted after ledger mutations commit. Delivery
// is fire-and-forget; a failed post never rolls back ledger state.
const (
	EventTransactionAllocated = "transaction.allocated"
	EventAllocationsCancelled = "transaction.allocations_cancelled"
	EventTransactionIgnored   = "transaction.ignored"
	EventStatementImported    = "statement.imported"
	EventBillMerged           = "bill.merged"
	EventBalanceTransferred   = "bill.balance_transferred"
)

func (s *Staffbooks) postEvent(event string, payload interface{}) {
	client, err := notification.NewWebhookClientFromConfig()
	if err != nil {
		logrus.Error(err)
		return
	}
	go func() {
		if err := client.Send(event, payload); err != nil {
			notification.NotifyError(err)
		}
	}()
}
