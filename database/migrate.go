package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.MenuItem{},
		&models.Reservation{},
		&models.Notification{},
	}
}

// Migrate creates the schema and installs the overlap guards for the
// current dialect.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	for _, stmt := range OverlapGuards(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install overlap guard: %w", err)
		}
	}
	utils.InfoLogger.WithField("dialect", db.Dialector.Name()).Info("Overlap guards installed")
	return nil
}

const activeStatusesSQL = "('pending', 'confirmed')"

// OverlapGuards returns the statements that make the store itself reject two
// active reservations whose windows intersect, on the same table or for the
// same user.
func OverlapGuards(dialect string) []string {
	switch dialect {
	case "postgres":
		return []string{
			"CREATE EXTENSION IF NOT EXISTS btree_gist",
			postgresExclusion("reservations_table_no_overlap", "table_id"),
			postgresExclusion("reservations_user_no_overlap", "user_id"),
		}
	case "mysql":
		var stmts []string
		for _, scope := range []string{"table_id", "user_id"} {
			for _, event := range []string{"INSERT", "UPDATE"} {
				name := fmt.Sprintf("reservations_%s_no_overlap_%s", scope[:len(scope)-3], event)
				stmts = append(stmts, "DROP TRIGGER IF EXISTS "+name, mysqlTrigger(name, event, scope))
			}
		}
		return stmts
	case "sqlite":
		var stmts []string
		for _, scope := range []string{"table_id", "user_id"} {
			for _, event := range []string{"INSERT", "UPDATE"} {
				name := fmt.Sprintf("reservations_%s_no_overlap_%s", scope[:len(scope)-3], event)
				stmts = append(stmts, sqliteTrigger(name, event, scope))
			}
		}
		return stmts
	}
	return nil
}

func postgresExclusion(name, scope string) string {
	return fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%[1]s') THEN
		ALTER TABLE reservations ADD CONSTRAINT %[1]s
			EXCLUDE USING gist (%[2]s WITH =, tstzrange(reservation_time, end_time, '[)') WITH &&)
			WHERE (status IN %[3]s);
	END IF;
END $$`, name, scope, activeStatusesSQL)
}

func mysqlTrigger(name, event, scope string) string {
	return fmt.Sprintf(`CREATE TRIGGER %[1]s BEFORE %[2]s ON reservations FOR EACH ROW
BEGIN
	IF NEW.status IN %[4]s AND EXISTS (
		SELECT 1 FROM reservations r
		WHERE r.%[3]s = NEW.%[3]s
			AND r.id <> COALESCE(NEW.id, 0)
			AND r.status IN %[4]s
			AND r.reservation_time < NEW.end_time
			AND r.end_time > NEW.reservation_time
	) THEN
		SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'overlapping active reservation on %[3]s';
	END IF;
END`, name, event, scope, activeStatusesSQL)
}

func sqliteTrigger(name, event, scope string) string {
	return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s BEFORE %[2]s ON reservations
FOR EACH ROW
WHEN NEW.status IN %[4]s AND EXISTS (
	SELECT 1 FROM reservations r
	WHERE r.%[3]s = NEW.%[3]s
		AND r.id <> COALESCE(NEW.id, 0)
		AND r.status IN %[4]s
		AND r.reservation_time < NEW.end_time
		AND r.end_time > NEW.reservation_time
)
BEGIN
	SELECT RAISE(ABORT, 'overlapping active reservation on %[3]s');
END`, name, event, scope, activeStatusesSQL)
}
