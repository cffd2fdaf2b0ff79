package maintenance

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// Grounding is the binary safety gate: an item is either available or
// grounded, nothing in between. It is a procedural gate with an audit trail,
// orthogonal to the maintenance status tiers; ungrounding does not check that
// the underlying hazard was resolved.
type Grounding struct {
	items  db.ItemCollection
	logger *log.Logger
	now    func() time.Time
}

// NewGrounding creates the grounding state machine.
func NewGrounding(items db.ItemCollection, logger *log.Logger) *Grounding {
	return &Grounding{items: items, logger: logger, now: time.Now}
}

// Ground takes the item out of service, recording reason, actor and
// timestamp. Grounding an already-grounded item refreshes the audit fields.
func (g *Grounding) Ground(ctx context.Context, itemID string, itemType models.ItemType, reason, groundedBy string) (*models.MaintainableItem, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "is required"}
	}
	if groundedBy == "" {
		return nil, &ValidationError{Field: "grounded_by", Reason: "is required"}
	}
	item, err := g.items.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if itemType != "" && item.ItemType != itemType {
		return nil, db.ErrNotFound
	}
	at := g.now()
	lifecycle := models.GroundedLifecycleStatus(item.ItemType)
	if err := g.items.SetGrounding(ctx, itemID, reason, groundedBy, lifecycle, at); err != nil {
		return nil, err
	}
	g.logger.WithFields(log.Fields{
		"item_id":     itemID,
		"reason":      reason,
		"grounded_by": groundedBy,
	}).Warn("item grounded")
	return g.items.FindItemByID(ctx, itemID)
}

// Unground returns the item to service, clearing the grounding fields and
// stamping who cleared it and why.
func (g *Grounding) Unground(ctx context.Context, itemID string, itemType models.ItemType, clearedBy, notes string) (*models.MaintainableItem, error) {
	if clearedBy == "" {
		return nil, &ValidationError{Field: "cleared_by", Reason: "is required"}
	}
	item, err := g.items.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if itemType != "" && item.ItemType != itemType {
		return nil, db.ErrNotFound
	}
	at := g.now()
	lifecycle := models.InServiceLifecycleStatus(item.ItemType)
	if err := g.items.ClearGrounding(ctx, itemID, clearedBy, notes, lifecycle, at); err != nil {
		return nil, err
	}
	g.logger.WithFields(log.Fields{
		"item_id":    itemID,
		"cleared_by": clearedBy,
	}).Info("item returned to service")
	return g.items.FindItemByID(ctx, itemID)
}
