package service

import (
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// forUpdate locks the selected rows on Postgres. SQLite already serializes
// writers so the clause is skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if isPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	return tx
}

// serializable returns options for transactions whose correctness depends
// on a count read earlier in the same transaction
func serializable(db *gorm.DB) []*sql.TxOptions {
	if isPostgres(db) {
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}

	return nil
}
