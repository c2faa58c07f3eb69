package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pankgraph/cypherflow/types"
)

// LoadSchema reads and parses the schema JSON document at path.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrSchemaLoad, "read schema file").WithCause(err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, types.NewError(types.ErrSchemaMalformed, "parse schema file").WithCause(err)
	}
	return &s, nil
}

// LoadValidValues reads the optional value-constraint document at path.
// A missing file is not an error: it returns (nil, nil) so value checks
// degrade to no-ops.
func LoadValidValues(path string) (*ValidValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewError(types.ErrSchemaLoad, "read valid values file").WithCause(err)
	}
	var vv ValidValues
	if err := json.Unmarshal(data, &vv); err != nil {
		return nil, types.NewError(types.ErrSchemaMalformed, "parse valid values file").WithCause(err)
	}
	return &vv, nil
}

// LoadHints reads the optional hints document at path. A missing file
// returns (nil, nil).
func LoadHints(path string) (Hints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewError(types.ErrSchemaLoad, "read hints file").WithCause(err)
	}
	var h Hints
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, types.NewError(types.ErrSchemaMalformed, "parse hints file").WithCause(err)
	}
	return h, nil
}

// Loader lazily loads the schema documents exactly once per process and
// hands out the resulting immutable Context. Concurrent first loads are
// collapsed into a single read.
type Loader struct {
	SchemaPath      string
	ValidValuesPath string
	HintsPath       string

	logger *zap.Logger

	mu     sync.RWMutex
	cached *Context
	group  singleflight.Group
}

// NewLoader creates a Loader for the given document paths. validValuesPath
// and hintsPath may be empty.
func NewLoader(schemaPath, validValuesPath, hintsPath string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		SchemaPath:      schemaPath,
		ValidValuesPath: validValuesPath,
		HintsPath:       hintsPath,
		logger:          logger.With(zap.String("component", "schema_loader")),
	}
}

// Context returns the cached schema Context, loading it on first use.
// The context argument only bounds the wait for a concurrent first load.
func (l *Loader) Context(ctx context.Context) (*Context, error) {
	l.mu.RLock()
	if c := l.cached; c != nil {
		l.mu.RUnlock()
		return c, nil
	}
	l.mu.RUnlock()

	ch := l.group.DoChan("load", func() (any, error) {
		return l.load()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Context), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load performs the one-time read of all schema documents.
func (l *Loader) load() (*Context, error) {
	schema, err := LoadSchema(l.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	var validValues *ValidValues
	if l.ValidValuesPath != "" {
		validValues, err = LoadValidValues(l.ValidValuesPath)
		if err != nil {
			// Fail open: a broken side-table must not block validation.
			l.logger.Warn("valid values unavailable, value checks disabled", zap.Error(err))
			validValues = nil
		}
	}

	var hints Hints
	if l.HintsPath != "" {
		hints, err = LoadHints(l.HintsPath)
		if err != nil {
			l.logger.Warn("schema hints unavailable", zap.Error(err))
			hints = nil
		}
	}

	c := NewContext(schema, validValues, hints)

	l.mu.Lock()
	l.cached = c
	l.mu.Unlock()

	l.logger.Info("schema loaded",
		zap.Int("node_types", len(schema.NodeTypes)),
		zap.Int("edge_types", len(schema.EdgeTypes)),
		zap.Bool("valid_values", validValues != nil),
	)
	return c, nil
}
