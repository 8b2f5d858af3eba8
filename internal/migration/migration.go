// Package migration owns the database schema. Schema changes are applied
// at startup through gorm's migrator, before any service touches the
// database.
package migration

import (
	auditdomain "github.com/retainly/churnguard/internal/audit/domain"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/events"
	predictiondomain "github.com/retainly/churnguard/internal/prediction/domain"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.Interaction{},
		&predictiondomain.Record{},
		&events.OutboxRow{},
		&auditdomain.AuditLog{},
	)
}
