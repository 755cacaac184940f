package database

import "gorm.io/gorm"

// Database holds user profiles. It is process-lifetime storage: the default
// DSN is an in-memory sqlite database.
type Database struct {
	db *gorm.DB
}
