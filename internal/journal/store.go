package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/toolflow/agent"
	"github.com/BaSui01/toolflow/internal/database"
	"github.com/BaSui01/toolflow/types"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("journal record not found")

const (
	defaultLimit = 50
	maxLimit     = 500
	writeRetries = 3
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteHook is called after every Append with its duration and result.
func WithWriteHook(hook func(time.Duration, error)) Option {
	return func(s *Store) { s.onWrite = hook }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store persists envelopes through GORM. It implements agent.Observer so
// it can be attached to an agent directly.
type Store struct {
	pool    *database.PoolManager
	logger  *zap.Logger
	onWrite func(time.Duration, error)
	now     func() time.Time
}

// NewStore creates a store on pool.
func NewStore(pool *database.PoolManager, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("journal: pool cannot be nil")
	}
	s := &Store{
		pool:   pool,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "journal"))
	return s, nil
}

// Migrate creates or updates the records table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// Append stores one processed request.
func (s *Store) Append(ctx context.Context, ev agent.Event) (rec *Record, err error) {
	start := time.Now()
	defer func() {
		if s.onWrite != nil {
			s.onWrite(time.Since(start), err)
		}
	}()

	rec = s.toRecord(ev)
	err = s.pool.WithRetry(ctx, writeRetries, func(db *gorm.DB) error {
		return db.Create(rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("journal: append: %w", err)
	}
	return rec, nil
}

// ObserveEnvelope implements agent.Observer. Write failures are logged;
// they never change the envelope already produced.
func (s *Store) ObserveEnvelope(ctx context.Context, ev agent.Event) {
	if _, err := s.Append(ctx, ev); err != nil {
		s.logger.Error("failed to journal envelope",
			zap.String("agent", ev.Agent),
			zap.String("type", ev.Envelope.Type),
			zap.Error(err))
	}
}

func (s *Store) toRecord(ev agent.Event) *Record {
	rec := &Record{
		ID:          uuid.NewString(),
		Agent:       ev.Agent,
		RequestType: ev.Request.Type,
		Message:     ev.Envelope.Message,
		Strategy:    string(ev.Strategy),
		ToolID:      ev.ToolID,
		Pattern:     ev.Pattern,
		Type:        ev.Envelope.Type,
		ErrorCode:   string(ev.ErrorCode),
		Error:       ev.Envelope.Error,
		DurationMS:  ev.Duration.Milliseconds(),
		CreatedAt:   s.now().UTC(),
	}
	if id, ok := ev.Envelope.ExecutionContext[agent.CtxRequestID].(string); ok {
		rec.RequestID = id
	}

	payload, err := json.Marshal(ev.Envelope)
	if err != nil {
		// 数据不可序列化时仍保留摘要字段
		s.logger.Warn("envelope is not JSON serializable", zap.Error(err))
	} else {
		rec.Envelope = string(payload)
	}
	return rec
}

// Filter 查询条件，零值字段不参与过滤
type Filter struct {
	Agent     string
	Type      string
	ErrorCode types.ErrorCode
	Since     time.Time
	Limit     int
}

// Recent returns records matching f, newest first.
func (s *Store) Recent(ctx context.Context, f Filter) ([]Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	q := s.pool.DB().WithContext(ctx).Model(&Record{})
	if f.Agent != "" {
		q = q.Where("agent = ?", f.Agent)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.ErrorCode != "" {
		q = q.Where("error_code = ?", string(f.ErrorCode))
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}

	var out []Record
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	return out, nil
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.pool.DB().WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal: get: %w", err)
	}
	return &rec, nil
}

// TypeCount 每种响应类型的数量
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// CountByType aggregates records per envelope type, ordered by type.
func (s *Store) CountByType(ctx context.Context, agentName string) ([]TypeCount, error) {
	q := s.pool.DB().WithContext(ctx).Model(&Record{}).Select("type, COUNT(*) AS count")
	if agentName != "" {
		q = q.Where("agent = ?", agentName)
	}

	var out []TypeCount
	if err := q.Group("type").Order("type").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("journal: count: %w", err)
	}
	return out, nil
}

// Prune deletes records created before cutoff and returns how many.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.pool.WithRetry(ctx, writeRetries, func(db *gorm.DB) error {
		res := db.Where("created_at < ?", cutoff.UTC()).Delete(&Record{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned journal records", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Ping 检查底层数据库连接
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	return s.pool.Close()
}
