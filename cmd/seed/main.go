package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/config"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/database"
	"github.com/MNhat168/sport-zone-sub003/internal/users"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting SportZone Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"wallet_entries",
		"wallets",
		"bookings",
		"transactions",
		"schedules",
		"fields",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	// Seed users first (no dependencies)
	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// Seed fields owned by the seeded owners
	fieldIDs, err := s.SeedFields(userIDs)
	if err != nil {
		return fmt.Errorf("failed to seed fields: %w", err)
	}

	// Seed schedules with a few pre-booked intervals
	if err := s.SeedSchedules(fieldIDs); err != nil {
		return fmt.Errorf("failed to seed schedules: %w", err)
	}

	// Seed wallets so balances exist before the first settlement
	if err := s.SeedWallets(userIDs); err != nil {
		return fmt.Errorf("failed to seed wallets: %w", err)
	}

	return nil
}

// SeedUsers creates one admin, two owners and three customers
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	seedUsers := []struct {
		key   string
		name  string
		email string
		phone string
		role  users.Role
	}{
		{"admin", "SportZone Admin", "admin@sportzone.vn", "0900000001", users.RoleAdmin},
		{"owner1", "Nguyen Van Minh", "minh.owner@sportzone.vn", "0900000002", users.RoleOwner},
		{"owner2", "Tran Thi Lan", "lan.owner@sportzone.vn", "0900000003", users.RoleOwner},
		{"customer1", "Le Van Hung", "hung@example.com", "0900000004", users.RoleUser},
		{"customer2", "Pham Thi Mai", "mai@example.com", "0900000005", users.RoleUser},
		{"customer3", "Hoang Van Nam", "nam@example.com", "0900000006", users.RoleUser},
	}

	ids := make(map[string]uuid.UUID, len(seedUsers))
	for _, u := range seedUsers {
		user := users.User{
			ID:    uuid.New(),
			Name:  u.name,
			Email: u.email,
			Phone: u.phone,
			Role:  u.role,
		}
		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.email, err)
		}
		ids[u.key] = user.ID
		fmt.Printf("    ✅ %s (%s)\n", u.name, u.role)
	}

	return ids, nil
}

// SeedFields creates a handful of fields across both owners
func (s *Seeder) SeedFields(userIDs map[string]uuid.UUID) ([]uuid.UUID, error) {
	fmt.Println("  🏟️  Seeding fields...")

	seedFields := []fields.Field{
		{
			ID:           uuid.New(),
			OwnerID:      userIDs["owner1"],
			Name:         "Thanh Cong Futsal 1",
			Sport:        "futsal",
			Location:     "12 Lang Ha, Ba Dinh, Ha Noi",
			PricePerHour: 250000,
			OpenTime:     "06:00",
			CloseTime:    "22:00",
			Active:       true,
		},
		{
			ID:           uuid.New(),
			OwnerID:      userIDs["owner1"],
			Name:         "Thanh Cong Futsal 2",
			Sport:        "futsal",
			Location:     "12 Lang Ha, Ba Dinh, Ha Noi",
			PricePerHour: 200000,
			OpenTime:     "06:00",
			CloseTime:    "22:00",
			Active:       true,
		},
		{
			ID:           uuid.New(),
			OwnerID:      userIDs["owner2"],
			Name:         "Lan Anh Badminton Court A",
			Sport:        "badminton",
			Location:     "291 Cach Mang Thang 8, Q10, TP HCM",
			PricePerHour: 120000,
			OpenTime:     "06:00",
			CloseTime:    "22:00",
			Active:       true,
		},
		{
			ID:           uuid.New(),
			OwnerID:      userIDs["owner2"],
			Name:         "Lan Anh Tennis Court 1",
			Sport:        "tennis",
			Location:     "291 Cach Mang Thang 8, Q10, TP HCM",
			PricePerHour: 300000,
			OpenTime:     "06:00",
			CloseTime:    "22:00",
			Active:       true,
		},
	}

	ids := make([]uuid.UUID, 0, len(seedFields))
	for i := range seedFields {
		if err := s.db.PostgreSQL.Create(&seedFields[i]).Error; err != nil {
			return nil, fmt.Errorf("create field %s: %w", seedFields[i].Name, err)
		}
		ids = append(ids, seedFields[i].ID)
		fmt.Printf("    ✅ %s (%s)\n", seedFields[i].Name, seedFields[i].Sport)
	}

	return ids, nil
}

// SeedSchedules creates schedules for the next three days with some
// intervals already booked on the first field
func (s *Seeder) SeedSchedules(fieldIDs []uuid.UUID) error {
	fmt.Println("  📅 Seeding schedules...")

	booked := [][]schedules.Interval{
		{{Start: "08:00", End: "09:00"}, {Start: "18:00", End: "20:00"}},
		{},
		{},
	}

	for day := 0; day < 3; day++ {
		date := time.Now().AddDate(0, 0, day).Format(schedules.DateLayout)
		for i, fieldID := range fieldIDs {
			intervals := []schedules.Interval{}
			if i == 0 {
				intervals = booked[day]
			}
			raw, err := json.Marshal(intervals)
			if err != nil {
				return err
			}
			schedule := schedules.Schedule{
				ID:              uuid.New(),
				FieldID:         fieldID,
				Date:            date,
				Version:         0,
				BookedIntervals: raw,
			}
			if err := s.db.PostgreSQL.Create(&schedule).Error; err != nil {
				return fmt.Errorf("create schedule %s/%s: %w", fieldID, date, err)
			}
		}
		fmt.Printf("    ✅ Schedules for %s\n", date)
	}

	return nil
}

// SeedWallets creates the platform wallet and empty owner wallets
func (s *Seeder) SeedWallets(userIDs map[string]uuid.UUID) error {
	fmt.Println("  💰 Seeding wallets...")

	cfg := config.Load()
	platformHolder, err := uuid.Parse(cfg.Booking.PlatformHolderID)
	if err != nil {
		return fmt.Errorf("invalid platform holder id: %w", err)
	}

	seedWallets := []wallets.Wallet{
		{ID: uuid.New(), HolderID: platformHolder, Role: wallets.RolePlatform},
		{ID: uuid.New(), HolderID: userIDs["owner1"], Role: wallets.RoleOwner},
		{ID: uuid.New(), HolderID: userIDs["owner2"], Role: wallets.RoleOwner},
	}

	for i := range seedWallets {
		if err := s.db.PostgreSQL.Create(&seedWallets[i]).Error; err != nil {
			return fmt.Errorf("create wallet for %s: %w", seedWallets[i].HolderID, err)
		}
		fmt.Printf("    ✅ %s wallet (%s)\n", seedWallets[i].Role, seedWallets[i].HolderID)
	}

	return nil
}
