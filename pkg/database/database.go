package database

import (
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConnectDB opens the database selected by cfg.DBDriver and applies the migrations.
func ConnectDB(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case DriverPostgres:
		db, err = OpenPostgres(cfg.DatabaseURL, log)
	case DriverSQLite:
		db, err = OpenSQLite(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Database connection established")
	return db, nil
}

func OpenPostgres(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // works behind transaction-mode poolers
	}), &gorm.Config{
		Logger:         newGormLogger(log, logger.Warn),
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// sqliteDialector stores decimal columns as text. With the NUMERIC affinity sqlite
// gives decimal(p,s) columns, every value would round trip through float64.
type sqliteDialector struct {
	sqlite.Dialector
}

func (d sqliteDialector) DataTypeOf(field *schema.Field) string {
	if strings.HasPrefix(strings.ToLower(string(field.DataType)), "decimal") {
		return "text"
	}
	return d.Dialector.DataTypeOf(field)
}

// Migrator mirrors sqlite.Dialector.Migrator so column types resolve through DataTypeOf above.
func (d sqliteDialector) Migrator(db *gorm.DB) gorm.Migrator {
	return sqlite.Migrator{Migrator: migrator.Migrator{Config: migrator.Config{
		DB:                          db,
		Dialector:                   d,
		CreateIndexAfterCreateTable: true,
	}}}
}

// OpenSQLite opens a pure Go sqlite database. A single connection serialises writers,
// which is what keeps the ledger transactions consistent on this driver.
func OpenSQLite(path string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqliteDialector{sqlite.Dialector{DSN: path}}, &gorm.Config{
		Logger:         newGormLogger(log, logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// OpenMemory returns a migrated in-memory sqlite database private to name.
func OpenMemory(name string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// liveNameIndexes keep ingredient and recipe names unique, ignoring case, among rows not soft deleted.
var liveNameIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_ingredients_live_name ON ingredients (LOWER(name)) WHERE deleted_at IS NULL",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_recipes_live_name ON recipes (LOWER(name)) WHERE deleted_at IS NULL",
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Ingredient{},
		&model.Recipe{},
		&model.RecipeIngredient{},
		&model.ProductionRecord{},
		&model.Product{},
		&model.Sale{},
	); err != nil {
		return err
	}
	for _, stmt := range liveNameIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func newGormLogger(log *logrus.Logger, level logger.LogLevel) logger.Interface {
	return logger.New(log, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
