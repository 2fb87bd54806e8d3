package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
)

// CustomerNotification is the message published for one customer affected by a
// status-update batch.
type CustomerNotification struct {
	CustomerID  string                 `json:"customer_id"`
	BatchID     string                 `json:"batch_id"`
	NewStatus   string                 `json:"new_status"`
	PackageIDs  []string               `json:"package_ids"`
	Priority    domain.PackagePriority `json:"priority"`
	PerformedBy string                 `json:"performed_by"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

func (m CustomerNotification) Validate() error {
	if strings.TrimSpace(m.CustomerID) == "" {
		return fmt.Errorf("customer_id is required")
	}
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batch_id is required")
	}
	if strings.TrimSpace(m.NewStatus) == "" {
		return fmt.Errorf("new_status is required")
	}
	return nil
}
