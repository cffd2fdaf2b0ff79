package maintenance

import (
	"context"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ItemSummary is one item's row in a dashboard worklist.
type ItemSummary struct {
	ItemID         string          `json:"item_id"`
	Name           string          `json:"name"`
	ItemType       models.ItemType `json:"item_type"`
	Registration   string          `json:"registration,omitempty"`
	Status         string          `json:"status"`
	GroundedReason string          `json:"grounded_reason,omitempty"`
	MinRemaining   *float64        `json:"min_remaining,omitempty"`
	OverdueCount   int             `json:"overdue_count"`
	DueSoonCount   int             `json:"due_soon_count"`
}

// DashboardStats is the organization-wide maintenance snapshot. Each item
// lands in exactly one bucket: grounded wins over overdue, overdue over due
// soon, due soon over ok.
type DashboardStats struct {
	OrganizationID string        `json:"organization_id"`
	TotalItems     int           `json:"total_items"`
	GroundedItems  []ItemSummary `json:"grounded_items"`
	OverdueItems   []ItemSummary `json:"overdue_items"`
	DueSoonItems   []ItemSummary `json:"due_soon_items"`
	OK             int           `json:"ok"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// Dashboard builds read-only aggregate views across an organization's items
// and ledger. It never writes; the scan accepts eventual consistency.
type Dashboard struct {
	items   db.ItemCollection
	records db.RecordCollection
	logger  *log.Logger
	now     func() time.Time
}

// NewDashboard creates a dashboard aggregator.
func NewDashboard(items db.ItemCollection, records db.RecordCollection, logger *log.Logger) *Dashboard {
	return &Dashboard{items: items, records: records, logger: logger, now: time.Now}
}

// summarize folds an item's stored schedule statuses into a worklist row.
func summarize(item models.MaintainableItem) ItemSummary {
	s := ItemSummary{
		ItemID:         item.ID.Hex(),
		Name:           item.Name,
		ItemType:       item.ItemType,
		Registration:   item.Registration,
		Status:         item.Status,
		GroundedReason: item.GroundedReason,
	}
	for _, entry := range item.MaintenanceStatus {
		switch entry.Status {
		case models.TierOverdue:
			s.OverdueCount++
		case models.TierDueSoon:
			s.DueSoonCount++
		}
		if entry.Remaining != nil {
			if s.MinRemaining == nil || *entry.Remaining < *s.MinRemaining {
				r := *entry.Remaining
				s.MinRemaining = &r
			}
		}
	}
	return s
}

// sortByUrgency orders summaries ascending by minimum remaining; entries
// without a remaining value are treated as +Inf and sort last.
func sortByUrgency(items []ItemSummary) {
	remaining := func(s ItemSummary) float64 {
		if s.MinRemaining == nil {
			return math.Inf(1)
		}
		return *s.MinRemaining
	}
	sort.SliceStable(items, func(i, j int) bool {
		return remaining(items[i]) < remaining(items[j])
	})
}

// Stats scans all non-retired, non-sold items of the organization and
// classifies each into exactly one bucket using the items' stored schedule
// statuses. Grounding always dominates the maintenance tiers.
func (d *Dashboard) Stats(ctx context.Context, organizationID string) (*DashboardStats, error) {
	if organizationID == "" {
		return nil, &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	items, err := d.items.FindItems(ctx, bson.M{
		"organization_id": organizationID,
		"status":          bson.M{"$nin": []string{models.StatusRetired, models.StatusSold}},
	})
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		OrganizationID: organizationID,
		TotalItems:     len(items),
		GroundedItems:  []ItemSummary{},
		OverdueItems:   []ItemSummary{},
		DueSoonItems:   []ItemSummary{},
		GeneratedAt:    d.now(),
	}
	for _, item := range items {
		s := summarize(item)
		switch {
		case item.IsGrounded:
			stats.GroundedItems = append(stats.GroundedItems, s)
		case s.OverdueCount > 0:
			stats.OverdueItems = append(stats.OverdueItems, s)
		case s.DueSoonCount > 0:
			stats.DueSoonItems = append(stats.DueSoonItems, s)
		default:
			stats.OK++
		}
	}
	sortByUrgency(stats.OverdueItems)
	sortByUrgency(stats.DueSoonItems)
	return stats, nil
}

// ItemsDueSoon returns the due-soon worklist, most urgent first.
func (d *Dashboard) ItemsDueSoon(ctx context.Context, organizationID string) ([]ItemSummary, error) {
	stats, err := d.Stats(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return stats.DueSoonItems, nil
}

// OverdueItems returns the overdue worklist, most overdue first.
func (d *Dashboard) OverdueItems(ctx context.Context, organizationID string) ([]ItemSummary, error) {
	stats, err := d.Stats(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return stats.OverdueItems, nil
}

// UpcomingMaintenance returns planned ledger records with a service date in
// the next withinDays days, soonest first.
func (d *Dashboard) UpcomingMaintenance(ctx context.Context, organizationID string, withinDays int) ([]models.MaintenanceRecord, error) {
	if organizationID == "" {
		return nil, &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	if withinDays <= 0 {
		withinDays = 30
	}
	now := d.now()
	filter := bson.M{
		"organization_id": organizationID,
		"status":          bson.M{"$in": []models.RecordStatus{models.RecordScheduled, models.RecordInProgress}},
		"service_date":    bson.M{"$gte": now, "$lte": now.AddDate(0, 0, withinDays)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "service_date", Value: 1}})
	return d.records.FindRecords(ctx, filter, opts)
}

// RecentMaintenance returns the latest completed ledger records, newest
// first.
func (d *Dashboard) RecentMaintenance(ctx context.Context, organizationID string, limit int) ([]models.MaintenanceRecord, error) {
	if organizationID == "" {
		return nil, &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	if limit <= 0 {
		limit = 20
	}
	filter := bson.M{
		"organization_id": organizationID,
		"status":          models.RecordCompleted,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "service_date", Value: -1}}).
		SetLimit(int64(limit))
	return d.records.FindRecords(ctx, filter, opts)
}
