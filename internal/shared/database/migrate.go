package database

import (
	"gorm.io/gorm"

	"github.com/MNhat168/sport-zone-sub003/internal/bookings"
	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/payments"
	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/users"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&fields.Field{},
		&schedules.Schedule{},
		&bookings.Booking{},
		&payments.Transaction{},
		&wallets.Wallet{},
		&wallets.Entry{},
	)
}
