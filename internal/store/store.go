package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pankgraph/cypherflow/types"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database backend.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver"`

	// DSN is the driver-specific connection string. For SQLite this is a
	// file path, or ":memory:" for an in-memory database.
	DSN string `yaml:"dsn" json:"dsn"`
}

// RefinementRun is one persisted refinement outcome.
type RefinementRun struct {
	ID              uint      `gorm:"primaryKey"`
	CreatedAt       time.Time `gorm:"index"`
	Question        string    `gorm:"type:text"`
	BestIteration   int
	FinalScore      int
	TotalIterations int
	Improvement     int

	// Attempts holds the per-iteration scores and finding counts as JSON.
	Attempts string `gorm:"type:text"`
}

// attemptRecord is the serialized per-iteration shape inside Attempts.
type attemptRecord struct {
	Iteration int `json:"iteration"`
	Score     int `json:"score"`
	Errors    int `json:"errors"`
	Warnings  int `json:"warnings"`
}

// Stats aggregates all persisted runs.
type Stats struct {
	TotalRuns             int64   `json:"total_runs"`
	AvgFinalScore         float64 `json:"avg_final_score"`
	AvgIterations         float64 `json:"avg_iterations"`
	AvgImprovement        float64 `json:"avg_improvement"`
	FirstIterationSuccess float64 `json:"first_iteration_success_rate"`
	RefinementHelped      float64 `json:"refinement_helped_rate"`
}

// Store persists refinement runs.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&RefinementRun{}); err != nil {
		return nil, fmt.Errorf("migrate refinement runs: %w", err)
	}

	logger = logger.With(zap.String("component", "store"))
	logger.Info("refinement store opened", zap.String("driver", cfg.Driver))
	return &Store{db: db, logger: logger}, nil
}

// Save persists one refinement run.
func (s *Store) Save(ctx context.Context, question string, result *types.RefinementResult) error {
	attempts := make([]attemptRecord, 0, len(result.Attempts))
	for _, a := range result.Attempts {
		attempts = append(attempts, attemptRecord{
			Iteration: a.Iteration,
			Score:     a.Report.Score,
			Errors:    len(a.Report.Errors),
			Warnings:  len(a.Report.Warnings),
		})
	}
	encoded, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}

	run := &RefinementRun{
		CreatedAt:       time.Now().UTC(),
		Question:        question,
		BestIteration:   result.BestIteration,
		FinalScore:      result.BestScore,
		TotalIterations: result.TotalIterations(),
		Improvement:     result.Improvement(),
		Attempts:        string(encoded),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("save refinement run: %w", err)
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RefinementRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RefinementRun
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}
	return runs, nil
}

// Stats aggregates every persisted run. An empty store yields zero stats.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&RefinementRun{}).Count(&stats.TotalRuns).Error; err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	if stats.TotalRuns == 0 {
		return &stats, nil
	}

	type averages struct {
		AvgFinalScore  float64
		AvgIterations  float64
		AvgImprovement float64
	}
	var avg averages
	err := db.Model(&RefinementRun{}).
		Select("AVG(final_score) AS avg_final_score, AVG(total_iterations) AS avg_iterations, AVG(improvement) AS avg_improvement").
		Scan(&avg).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate runs: %w", err)
	}
	stats.AvgFinalScore = avg.AvgFinalScore
	stats.AvgIterations = avg.AvgIterations
	stats.AvgImprovement = avg.AvgImprovement

	var firstIteration int64
	err = db.Model(&RefinementRun{}).
		Where("total_iterations = ?", 1).
		Count(&firstIteration).Error
	if err != nil {
		return nil, fmt.Errorf("count first-iteration runs: %w", err)
	}
	stats.FirstIterationSuccess = float64(firstIteration) / float64(stats.TotalRuns)

	var helped int64
	err = db.Model(&RefinementRun{}).
		Where("improvement > ?", 0).
		Count(&helped).Error
	if err != nil {
		return nil, fmt.Errorf("count improved runs: %w", err)
	}
	stats.RefinementHelped = float64(helped) / float64(stats.TotalRuns)

	return &stats, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
