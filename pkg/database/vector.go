package database

import (
	"fmt"

	"gorm.io/gorm"
)

// VectorDimension reports the declared dimension of a pgvector column.
// Returns 0 when the table or column does not exist yet, or when the column
// was created without a dimension. pgvector stores the dimension directly in
// the column's type modifier.
func VectorDimension(db *gorm.DB, table, column string) (int, error) {
	var typmod *int
	err := db.Raw(
		`SELECT a.atttypmod
		 FROM pg_attribute a
		 WHERE a.attrelid = to_regclass(?) AND a.attname = ? AND NOT a.attisdropped`,
		table, column,
	).Scan(&typmod).Error
	if err != nil {
		return 0, err
	}
	if typmod == nil || *typmod < 0 {
		return 0, nil
	}
	return *typmod, nil
}

// EnsureVectorDimension alters the column to vector(dim) when its declared
// dimension differs. Existing vectors of another dimension cannot be cast, so
// they are dropped; callers are expected to re-embed afterwards. Any ANN
// indexes on the column must be passed in so they can be dropped first.
func EnsureVectorDimension(db *gorm.DB, table, column string, dim int, dropIndexes ...string) (changed bool, err error) {
	current, err := VectorDimension(db, table, column)
	if err != nil {
		return false, err
	}
	if current == dim {
		return false, nil
	}

	for _, idx := range dropIndexes {
		if err := db.Exec(fmt.Sprintf(`DROP INDEX IF EXISTS %s`, idx)).Error; err != nil {
			return false, err
		}
	}
	err = db.Exec(fmt.Sprintf(
		`ALTER TABLE %s ALTER COLUMN %s TYPE vector(%d) USING NULL`,
		table, column, dim,
	)).Error
	if err != nil {
		return false, err
	}
	return true, nil
}
