package constants

import "fmt"

// Redis Cache Configuration
// This file centralizes the Redis cache keys for the SportZone application
// Pattern: sportzone:{module}:{operation}:{identifier}:{params?}

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "sportzone"
)

// ================== SCHEDULES MODULE ==================

const (
	// Per field, per day availability view
	CACHE_KEY_AVAILABILITY = CACHE_PREFIX + ":schedules:availability" // + :field-id:date
)

// ================== FIELDS MODULE ==================

const (
	CACHE_KEY_FIELD_DETAIL = CACHE_PREFIX + ":fields:detail:uuid:" // + field-id
	CACHE_KEY_FIELDS_LIST  = CACHE_PREFIX + ":fields:list"         // + :page:X:limit:Y
)

// ================== KEY BUILDERS ==================

// BuildAvailabilityKey builds the cache key for a field's availability on a date.
func BuildAvailabilityKey(fieldID, date string) string {
	return fmt.Sprintf("%s:%s:%s", CACHE_KEY_AVAILABILITY, fieldID, date)
}

// BuildFieldDetailKey builds the cache key for a single field read model.
func BuildFieldDetailKey(fieldID string) string {
	return CACHE_KEY_FIELD_DETAIL + fieldID
}

// BuildFieldsListKey builds the cache key for a fields listing page.
func BuildFieldsListKey(page, limit int) string {
	return fmt.Sprintf("%s:page:%d:limit:%d", CACHE_KEY_FIELDS_LIST, page, limit)
}
