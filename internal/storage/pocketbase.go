package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/daos"
	"github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/migrations/logs"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"
	"github.com/pocketbase/pocketbase/tools/migrate"
	"go.uber.org/zap"

	"eradata/internal/models"
)

// ResultsCollection holds one record per aggregated result row
const ResultsCollection = "county_results"

// ResultFilter narrows a results lookup. Zero values match everything.
type ResultFilter struct {
	CountyFIPS string
	Year       int
	Office     string
}

type PocketBaseStore struct {
	app    *pocketbase.PocketBase
	logger *zap.Logger
}

// NewPocketBaseStore opens (or creates) an embedded PocketBase database in dataDir.
func NewPocketBaseStore(dataDir string, logger *zap.Logger) (*PocketBaseStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir:  dataDir,
		HideStartBanner: true,
	})
	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
	}

	if err := runMigrations(app, logger); err != nil {
		_ = app.ResetBootstrapState()
		return nil, err
	}

	if err := ensureCollection(app); err != nil {
		_ = app.ResetBootstrapState()
		return nil, fmt.Errorf("failed to ensure collection exists: %w", err)
	}

	return &PocketBaseStore{app: app, logger: logger}, nil
}

// runMigrations applies the PocketBase system migrations, which a plain
// Bootstrap (without the serve command) leaves to the caller.
func runMigrations(app *pocketbase.PocketBase, logger *zap.Logger) error {
	connections := []struct {
		db   *dbx.DB
		list migrate.MigrationsList
	}{
		{app.DB(), migrations.AppMigrations},
		{app.LogsDB(), logs.LogsMigrations},
	}

	var total int
	for _, c := range connections {
		runner, err := migrate.NewRunner(c.db, c.list)
		if err != nil {
			return fmt.Errorf("failed to init migrations: %w", err)
		}
		applied, err := runner.Up()
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		total += len(applied)
	}
	if total == 0 {
		return nil
	}

	logger.Debug("applied migrations", zap.Int("count", total))
	if err := app.RefreshSettings(); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return nil
}

func ensureCollection(app *pocketbase.PocketBase) error {
	if _, err := app.Dao().FindCollectionByNameOrId(ResultsCollection); err == nil {
		return nil
	}

	text := func(name string) *schema.SchemaField {
		return &schema.SchemaField{Name: name, Type: schema.FieldTypeText}
	}
	number := func(name string) *schema.SchemaField {
		return &schema.SchemaField{Name: name, Type: schema.FieldTypeNumber}
	}

	collection := &pbModels.Collection{
		Name: ResultsCollection,
		Type: pbModels.CollectionTypeBase,
		Schema: schema.NewSchema(
			number(models.ColumnYear),
			text(models.ColumnState),
			text(models.ColumnStatePO),
			text(models.ColumnCountyName),
			text(models.ColumnCountyFIPS),
			text(models.ColumnOffice),
			text(models.ColumnCandidate),
			text(models.ColumnParty),
			number(models.ColumnCandidateVotes),
			// number columns are NOT NULL DEFAULT 0, so optional measures are stored as text
			text(models.ColumnTotalVotes),
			text(models.ColumnVersion),
			text(models.ColumnMode),
		),
	}

	if err := app.Dao().SaveCollection(collection); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// ReplaceResults swaps the stored results for records in a single transaction.
func (s *PocketBaseStore) ReplaceResults(ctx context.Context, records []models.AggregatedRecord) error {
	err := s.app.Dao().RunInTransaction(func(txDao *daos.Dao) error {
		collection, err := txDao.FindCollectionByNameOrId(ResultsCollection)
		if err != nil {
			return fmt.Errorf("failed to find collection: %w", err)
		}

		if _, err := txDao.DB().NewQuery("DELETE FROM {{" + ResultsCollection + "}}").Execute(); err != nil {
			return fmt.Errorf("failed to clear results: %w", err)
		}

		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			record := pbModels.NewRecord(collection)
			setRecord(record, rec)
			if err := txDao.SaveRecord(record); err != nil {
				return fmt.Errorf("failed to save record %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("replaced results", zap.Int("records", len(records)))
	return nil
}

func setRecord(record *pbModels.Record, rec models.AggregatedRecord) {
	record.Set(models.ColumnYear, rec.Key.Year)
	record.Set(models.ColumnState, rec.Key.State)
	record.Set(models.ColumnStatePO, rec.Key.StatePO)
	record.Set(models.ColumnCountyName, rec.Key.CountyName)
	record.Set(models.ColumnCountyFIPS, rec.Key.CountyFIPS)
	record.Set(models.ColumnOffice, rec.Key.Office)
	record.Set(models.ColumnCandidate, rec.Key.Candidate)
	record.Set(models.ColumnParty, rec.Key.Party)
	record.Set(models.ColumnCandidateVotes, rec.CandidateVotes)
	record.Set(models.ColumnTotalVotes, rec.TotalVotes.String())
	record.Set(models.ColumnVersion, rec.Version.String())
	record.Set(models.ColumnMode, rec.Mode)
}

// FindResults returns the stored results matching filter, ordered by office and candidate.
func (s *PocketBaseStore) FindResults(ctx context.Context, filter ResultFilter) ([]models.AggregatedRecord, error) {
	collection, err := s.app.Dao().FindCollectionByNameOrId(ResultsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	exp := dbx.HashExp{}
	if filter.CountyFIPS != "" {
		exp[models.ColumnCountyFIPS] = filter.CountyFIPS
	}
	if filter.Year != 0 {
		exp[models.ColumnYear] = filter.Year
	}
	if filter.Office != "" {
		exp[models.ColumnOffice] = filter.Office
	}

	query := s.app.Dao().RecordQuery(collection).WithContext(ctx)
	if len(exp) > 0 {
		query.AndWhere(exp)
	}
	query.OrderBy(models.ColumnOffice+" ASC", models.ColumnCandidate+" ASC")

	var records []*pbModels.Record
	if err := query.All(&records); err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}

	results := make([]models.AggregatedRecord, len(records))
	for i, record := range records {
		totalVotes, err := models.ParseOptionalInt(record.GetString(models.ColumnTotalVotes))
		if err != nil {
			return nil, fmt.Errorf("record %s: %s: %w", record.Id, models.ColumnTotalVotes, err)
		}
		version, err := models.ParseOptionalInt(record.GetString(models.ColumnVersion))
		if err != nil {
			return nil, fmt.Errorf("record %s: %s: %w", record.Id, models.ColumnVersion, err)
		}
		results[i] = models.AggregatedRecord{
			Key: models.GroupKey{
				Year:       record.GetInt(models.ColumnYear),
				State:      record.GetString(models.ColumnState),
				StatePO:    record.GetString(models.ColumnStatePO),
				CountyName: record.GetString(models.ColumnCountyName),
				CountyFIPS: record.GetString(models.ColumnCountyFIPS),
				Office:     record.GetString(models.ColumnOffice),
				Candidate:  record.GetString(models.ColumnCandidate),
				Party:      record.GetString(models.ColumnParty),
			},
			CandidateVotes: record.GetInt(models.ColumnCandidateVotes),
			TotalVotes:     totalVotes,
			Version:        version,
			Mode:           record.GetString(models.ColumnMode),
		}
	}
	return results, nil
}

// Close flushes the PocketBase logger and releases the database handles
func (s *PocketBaseStore) Close() error {
	return s.app.OnTerminate().Trigger(&core.TerminateEvent{App: s.app}, func(e *core.TerminateEvent) error {
		return e.App.ResetBootstrapState()
	})
}
