package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/logger"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(cfg Config, log logger.Logger) (RunRepository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, errFactory.WithData(ErrStorageInit, struct {
				Phase string
				Path  string
				Error string
			}{
				Phase: "create_directory",
				Path:  cfg.DBPath,
				Error: err.Error(),
			})
		}
	}

	// Open database with specific pragmas for better performance and safety
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ensureSchema(db, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Run repository initialized")

	return &repository{
		db:     db,
		logger: log,
	}, nil
}

func (r *repository) Store(ctx context.Context, run *dyno.Run) error {
	errFactory := errors.New()

	payload, err := json.Marshal(run)
	if err != nil {
		return errFactory.Wrap(ErrEncodeRun, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if _, err := tx.ExecContext(ctx, insertRunSQL,
		run.ID,
		run.VehicleVersion,
		string(run.Source),
		string(run.Status),
		run.Confidence.Value,
		run.PeakTorqueNm,
		run.PeakPowerW,
		string(payload),
	); err != nil {
		r.logger.Error().Err(err).Msg("Failed to execute insert")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().
		Str("id", run.ID).
		Str("status", string(run.Status)).
		Msg("Stored run")

	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*dyno.Run, error) {
	errFactory := errors.New()

	var payload string
	err := r.db.QueryRowContext(ctx, `
        SELECT payload
        FROM runs
        WHERE id = ?
    `, id).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errFactory.WithData(ErrRunNotFound, struct {
			ID string
		}{ID: id})
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrTransactionFailed, err)
	}

	var run dyno.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, errFactory.Wrap(ErrDecodeRun, err)
	}

	return &run, nil
}

func (r *repository) ListByVehicleVersion(ctx context.Context, version string) ([]RunSummary, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, vehicle_version, source, status,
               confidence, peak_torque_nm, peak_power_w, created_at
        FROM runs
        WHERE vehicle_version = ?
        ORDER BY created_at, id
    `, version)
	if err != nil {
		return nil, errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.ID, &s.VehicleVersion, &s.Source, &s.Status,
			&s.Confidence, &s.PeakTorqueNm, &s.PeakPowerW, &s.CreatedAt,
		); err != nil {
			return nil, errFactory.Wrap(ErrTransactionFailed, err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrTransactionFailed, err)
	}

	return summaries, nil
}

func (r *repository) Close() error {
	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Run repository closed gracefully")

	return nil
}
