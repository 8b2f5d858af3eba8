package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event describes a churn event to store in the outbox.
type Event struct {
	CustomerID snowflake.ID
	Type       string
	Payload    map[string]any
	DedupeKey  string
}

// OutboxRow is the persisted shape of an outbox event. A separate
// notifier process drains unpublished rows.
type OutboxRow struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	CustomerID snowflake.ID      `gorm:"not null;index"`
	EventType  string            `gorm:"type:text;not null"`
	Payload    datatypes.JSONMap `gorm:"not null"`
	DedupeKey  *string           `gorm:"type:text;uniqueIndex"`
	Published  bool              `gorm:"not null;default:false;index"`
	CreatedAt  time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (OutboxRow) TableName() string { return "churn_events" }

// Outbox inserts churn events into the churn_events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.CustomerID == 0 {
		return errors.New("invalid_customer_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	row := OutboxRow{
		ID:         o.genID.Generate(),
		CustomerID: event.CustomerID,
		EventType:  name,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		row.DedupeKey = &dedupe
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(&row).Error
}
