package query

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sqlmate/dbcore/com"
	"github.com/sqlmate/dbcore/mapper"
	"github.com/sqlmate/dbcore/registry"
)

// Sink receives the streaming event triple for one query_id. Implementations typically
// forward these straight to the desktop shell's IPC channel.
type Sink interface {
	QueryMetadata(queryID string, columns []string)
	QueryBatch(queryID string, rows [][]any)
	QueryComplete(queryID string, executionTimeMs int64, totalRows int64)
	QueryError(queryID string, err error)
}

// StreamingExecutor runs cursor-backed queries that emit batches through a Sink instead of
// collecting the whole result set. Cancellation tokens are tracked per query_id so that
// CancelQuery can stop a fetch loop at its next row boundary.
type StreamingExecutor struct {
	registry *registry.Registry

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewStreamingExecutor returns a StreamingExecutor backed by reg.
func NewStreamingExecutor(reg *registry.Registry) *StreamingExecutor {
	return &StreamingExecutor{
		registry: reg,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// ExecuteQueryStreaming runs stmt against id's pool, emitting rows to sink in batches of
// BatchSize. Cancellation is checked at every row boundary: if CancelQuery(queryID) has
// been called, the loop returns without emitting query-complete, and the caller must treat
// the absence of a complete/error event as cancellation. Registration of queryID's
// cancellation token is removed before this method returns, on every path.
func (s *StreamingExecutor) ExecuteQueryStreaming(ctx context.Context, id uuid.UUID, stmt string, queryID string, sink Sink) {
	ctx, cancel := context.WithCancel(ctx)
	s.register(queryID, cancel)
	defer s.unregister(queryID)
	defer cancel()

	start := time.Now()

	pool, dialect, err := s.registry.ResolvePool(id)
	if err != nil {
		sink.QueryError(queryID, err)
		return
	}

	rows, err := pool.QueryxContext(ctx, stmt)
	if err != nil {
		sink.QueryError(queryID, err)
		return
	}
	defer rows.Close()

	mapDialect := mapper.Dialect(dialect)

	var columns []string
	var typeNames []string
	var batch [][]any
	var rowCounter com.Counter
	metadataSent := false

	for rows.Next() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !metadataSent {
			columns, err = rows.Columns()
			if err != nil {
				sink.QueryError(queryID, err)
				return
			}
			types, err := rows.ColumnTypes()
			if err != nil {
				sink.QueryError(queryID, err)
				return
			}
			typeNames = make([]string, len(types))
			for i, t := range types {
				typeNames[i] = t.DatabaseTypeName()
			}

			sink.QueryMetadata(queryID, columns)
			metadataSent = true
		}

		raw, err := rows.SliceScan()
		if err != nil {
			sink.QueryError(queryID, err)
			return
		}

		row := make([]any, len(raw))
		for i, v := range raw {
			typeName := ""
			if i < len(typeNames) {
				typeName = typeNames[i]
			}
			row[i] = mapper.MapValue(mapDialect, typeName, v)
		}

		batch = append(batch, row)
		rowCounter.Add(1)

		if len(batch) >= BatchSize {
			sink.QueryBatch(queryID, batch)
			batch = nil
			rowCounter.Reset()
			time.Sleep(YieldInterval)

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
	if err := rows.Err(); err != nil {
		sink.QueryError(queryID, err)
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	if len(batch) > 0 {
		sink.QueryBatch(queryID, batch)
	}

	sink.QueryComplete(queryID, time.Since(start).Milliseconds(), int64(rowCounter.Total()))
}

// CancelQuery signals the cancellation token for queryID, if one is currently registered.
// It is idempotent: an unknown or already-completed queryID is not an error.
func (s *StreamingExecutor) CancelQuery(queryID string) {
	s.mu.Lock()
	cancel, ok := s.cancels[queryID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

func (s *StreamingExecutor) register(queryID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[queryID] = cancel
}

func (s *StreamingExecutor) unregister(queryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, queryID)
}
