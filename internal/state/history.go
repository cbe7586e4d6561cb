package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryEntry represents a state change history entry. EntityID is the
// instance_id for an instance-scoped event, or "<instance_id>/<task_id>"
// for a task-scoped one — not itself a UUID, so it's stored as text.
type HistoryEntry struct {
	ID         uuid.UUID              `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	EntityType string                 `gorm:"type:varchar(50);not null;index:idx_state_history_entity" json:"entity_type"`
	EntityID   string                 `gorm:"type:varchar(255);not null;index:idx_state_history_entity" json:"entity_id"`
	OldState   *string                `gorm:"type:varchar(50)" json:"old_state"`
	NewState   string                 `gorm:"type:varchar(50);not null" json:"new_state"`
	ChangedAt  time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_state_history_changed_at" json:"changed_at"`
	Metadata   map[string]interface{} `gorm:"type:jsonb;default:'{}'" json:"metadata"`
}

// TableName specifies the table name for HistoryEntry
func (HistoryEntry) TableName() string {
	return "state_history"
}

// HistoryTracker tracks state changes to a database
type HistoryTracker struct {
	db *gorm.DB
}

// NewHistoryTracker creates a new history tracker
func NewHistoryTracker(db *gorm.DB) *HistoryTracker {
	return &HistoryTracker{db: db}
}

// Record records a state change to the history table
func (h *HistoryTracker) Record(ctx context.Context, entityType, entityID, oldState, newState string, metadata map[string]interface{}) error {
	var oldStateStr *string
	if oldState != "" {
		str := oldState
		oldStateStr = &str
	}

	entry := HistoryEntry{
		EntityType: entityType,
		EntityID:   entityID,
		OldState:   oldStateStr,
		NewState:   newState,
		ChangedAt:  time.Now().UTC(),
		Metadata:   metadata,
	}

	if err := h.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record state history: %w", err)
	}

	return nil
}

// GetHistory retrieves state history for an entity
func (h *HistoryTracker) GetHistory(ctx context.Context, entityType, entityID string, limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	query := h.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("changed_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get state history: %w", err)
	}

	return entries, nil
}

// GetRecentHistory retrieves recent state changes across all entities
func (h *HistoryTracker) GetRecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	query := h.db.WithContext(ctx).
		Order("changed_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get recent history: %w", err)
	}

	return entries, nil
}

// HistoryPublisher publishes state changes to the history tracker
type HistoryPublisher struct {
	tracker *HistoryTracker
}

// NewHistoryPublisher creates a new history publisher
func NewHistoryPublisher(db *gorm.DB) *HistoryPublisher {
	return &HistoryPublisher{
		tracker: NewHistoryTracker(db),
	}
}

// Publish records a state change event to the history
func (p *HistoryPublisher) Publish(event TransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.tracker.Record(ctx, event.EntityType, event.EntityID, event.OldState, event.NewState, event.Metadata)
}

// MarshalJSON implements custom JSON marshaling for metadata
func (h *HistoryEntry) MarshalJSON() ([]byte, error) {
	type Alias HistoryEntry
	return json.Marshal(&struct {
		*Alias
		Metadata string `json:"metadata"`
	}{
		Alias:    (*Alias)(h),
		Metadata: fmt.Sprintf("%v", h.Metadata),
	})
}
