package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// One schedule row per field and date; the optimistic version CAS
	// depends on racing writers converging on the same row. Postgres has
	// no ADD CONSTRAINT IF NOT EXISTS, so guard via pg_constraint.
	err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'unique_schedule_per_field_date') THEN
				ALTER TABLE schedules
				ADD CONSTRAINT unique_schedule_per_field_date
				UNIQUE (field_id, date);
			END IF;
		END $$;
	`).Error
	if err != nil {
		return err
	}

	// One gateway order reference per transaction; duplicate callbacks
	// must converge on a single record.
	err = db.Exec(`
		CREATE UNIQUE INDEX CONCURRENTLY IF NOT EXISTS idx_transactions_order_ref_unique
		ON transactions (order_ref);
	`).Error
	if err != nil {
		return err
	}

	// Balances never go negative regardless of application bugs.
	err = db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'wallets_non_negative') THEN
				ALTER TABLE wallets
				ADD CONSTRAINT wallets_non_negative
				CHECK (system_balance >= 0 AND pending_balance >= 0 AND refund_balance >= 0);
			END IF;
		END $$;
	`).Error
	if err != nil {
		return err
	}

	// Booking sweeps scan by status and age.
	err = db.Exec(`
		CREATE INDEX CONCURRENTLY IF NOT EXISTS idx_bookings_status_created
		ON bookings (status, created_at);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
