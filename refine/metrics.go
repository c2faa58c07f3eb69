package refine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/types"
)

// IterationMetrics is the per-iteration slice of a metrics record.
type IterationMetrics struct {
	Iteration int      `json:"iteration"`
	Score     int      `json:"score"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
}

// MetricsRecord is one completed refinement run, shaped for append-only
// JSONL storage.
type MetricsRecord struct {
	Timestamp       time.Time          `json:"timestamp"`
	Question        string             `json:"query"`
	BestIteration   int                `json:"best_iteration"`
	FinalScore      int                `json:"final_score"`
	TotalIterations int                `json:"total_iterations"`
	Improvement     int                `json:"improvement"`
	Iterations      []IterationMetrics `json:"iterations"`
}

// NewMetricsRecord flattens a refinement result into a record.
func NewMetricsRecord(question string, result *types.RefinementResult) MetricsRecord {
	record := MetricsRecord{
		Timestamp:       time.Now().UTC(),
		Question:        question,
		BestIteration:   result.BestIteration,
		FinalScore:      result.BestScore,
		TotalIterations: result.TotalIterations(),
		Improvement:     result.Improvement(),
	}
	for _, attempt := range result.Attempts {
		record.Iterations = append(record.Iterations, IterationMetrics{
			Iteration: attempt.Iteration,
			Score:     attempt.Report.Score,
			Errors:    attempt.Report.Errors,
			Warnings:  attempt.Report.Warnings,
		})
	}
	return record
}

// MetricsLogger appends refinement records to a JSONL file. Safe for
// concurrent use; each record is one line.
type MetricsLogger struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	file *os.File
}

// NewMetricsLogger opens (creating if needed) the JSONL file at path.
// logger may be nil.
func NewMetricsLogger(path string, logger *zap.Logger) (*MetricsLogger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metrics dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open metrics log: %w", err)
	}
	return &MetricsLogger{
		path:   path,
		logger: logger.With(zap.String("component", "refinement_metrics")),
		file:   file,
	}, nil
}

// Log appends one record.
func (m *MetricsLogger) Log(question string, result *types.RefinementResult) error {
	record := NewMetricsRecord(question, result)
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal metrics record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append metrics record: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (m *MetricsLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// Stats summarizes a metrics log.
type Stats struct {
	TotalQueries          int     `json:"total_queries"`
	AvgImprovement        float64 `json:"avg_improvement"`
	AvgFinalScore         float64 `json:"avg_final_score"`
	AvgIterations         float64 `json:"avg_iterations"`
	FirstIterationSuccess int     `json:"first_iteration_success"`
	FirstIterationRate    float64 `json:"first_iteration_success_rate"`
	RefinementHelped      int     `json:"refinement_helped"`
	RefinementHelpedRate  float64 `json:"refinement_helped_rate"`
}

// ReadStats scans a JSONL metrics file and aggregates summary statistics.
// Blank and malformed lines are skipped.
func ReadStats(path string) (Stats, error) {
	var stats Stats

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("open metrics log: %w", err)
	}
	defer file.Close()

	var sumImprovement, sumScore, sumIterations int
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record MetricsRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		stats.TotalQueries++
		sumImprovement += record.Improvement
		sumScore += record.FinalScore
		sumIterations += record.TotalIterations
		if record.BestIteration == 1 {
			stats.FirstIterationSuccess++
		}
		if record.Improvement > 0 {
			stats.RefinementHelped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan metrics log: %w", err)
	}

	if stats.TotalQueries > 0 {
		n := float64(stats.TotalQueries)
		stats.AvgImprovement = float64(sumImprovement) / n
		stats.AvgFinalScore = float64(sumScore) / n
		stats.AvgIterations = float64(sumIterations) / n
		stats.FirstIterationRate = float64(stats.FirstIterationSuccess) / n
		stats.RefinementHelpedRate = float64(stats.RefinementHelped) / n
	}
	return stats, nil
}
