package infra

import (
	"fmt"

	"github.com/kupferco/lv-notas/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express — the partial unique indexes the billing invariants depend on.
func NewDatabase(dsn string) (*gorm.DB, error) {
	// TranslateError maps Postgres unique violations to gorm.ErrDuplicatedKey,
	// which the services depend on to detect race losers on the partial
	// unique indexes below.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.AutoMigrate(
		&model.Therapist{},
		&model.Patient{},
		&model.BillingPeriod{},
		&model.SessionSnapshot{},
		&model.Payment{},
		&model.BankTransaction{},
		&model.Invoice{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
// Each statement is guarded by IF NOT EXISTS so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// One non-void billing period per (therapist, patient, year, month).
		// Two concurrent processCharges calls for the same key race on this
		// index; the loser gets a unique violation, never a silent duplicate.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uniq_billing_periods_active_key') THEN
		    CREATE UNIQUE INDEX uniq_billing_periods_active_key
		        ON billing_periods (therapist_id, patient_id, year, month)
		        WHERE status <> 'void';
		  END IF;
		END $$`,
		// One issued invoice per billing period at a time.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uniq_invoices_issued_period') THEN
		    CREATE UNIQUE INDEX uniq_invoices_issued_period
		        ON invoices (billing_period_id)
		        WHERE status = 'issued';
		  END IF;
		END $$`,
		// Partial index for the invoice status cron query.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_invoices_pending_check') THEN
		    CREATE INDEX idx_invoices_pending_check
		        ON invoices (next_retry_at)
		        WHERE status = 'processing' AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

// RunMigrations applies the full schema for integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Therapist{},
		&model.Patient{},
		&model.BillingPeriod{},
		&model.SessionSnapshot{},
		&model.Payment{},
		&model.BankTransaction{},
		&model.Invoice{},
	); err != nil {
		return err
	}
	return applySchemaPatches(db)
}
