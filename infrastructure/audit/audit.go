package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"washdesk/models"
)

// Service writes audit records inside the caller transaction so a rolled back
// change never leaves a history entry behind.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Write records one change. A nil receiver is a no-op, which lets tests and the
// CLI seeders run without audit.
func (s *Service) Write(ctx context.Context, tx bun.Tx, operatorID int64, action, entityType string, entityID int64, before, after any) error {
	if s == nil {
		return nil
	}
	beforeJSON, err := marshal(before)
	if err != nil {
		return fmt.Errorf("marshal before: %w", err)
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return fmt.Errorf("marshal after: %w", err)
	}
	entry := &models.AuditLog{
		OperatorID: operatorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   fmt.Sprintf("%d", entityID),
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(entry).Exec(ctx)
	return err
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
