package database

import "gorm.io/gorm"

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

func IsPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == DialectPostgres
}
