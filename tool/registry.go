package tool

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/types"
)

var (
	// ErrNotFound 工具未找到
	ErrNotFound = errors.New("tool not found")

	// ErrDuplicateToolID 工具 ID 重复
	ErrDuplicateToolID = errors.New("duplicate tool id")
)

// ====== 实现：Registry ======

// Registry maps tool ids to tools and remembers registration order.
// Ids are case-sensitive. A Registry is safe for concurrent use, though an
// Agent stops registering once construction completes.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
}

// Register adds t. A second tool with the same id fails with DUPLICATE_TOOL_ID.
func (r *Registry) Register(t *Tool) error {
	if t == nil {
		return types.NewError(types.ErrInvalidRequest, "tool is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.id]; exists {
		return types.NewError(types.ErrDuplicateToolID, fmt.Sprintf("tool %s already registered", t.id)).
			WithToolID(t.id).
			WithCause(ErrDuplicateToolID)
	}

	r.tools[t.id] = t
	r.order = append(r.order, t.id)

	r.logger.Info("tool registered", zap.String("id", t.id))
	return nil
}

// Get returns the tool for id, or a NOT_FOUND error wrapping ErrNotFound.
func (r *Registry) Get(id string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("tool %s not found", id)).
			WithToolID(id).
			WithCause(ErrNotFound)
	}
	return t, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[id]
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// List yields a summary of every tool in registration order. The sequence
// is lazy and may be ranged over any number of times; each pass reflects
// the registry at the moment it starts.
func (r *Registry) List() iter.Seq[Summary] {
	return func(yield func(Summary) bool) {
		r.mu.RLock()
		snapshot := make([]*Tool, 0, len(r.order))
		for _, id := range r.order {
			snapshot = append(snapshot, r.tools[id])
		}
		r.mu.RUnlock()

		for _, t := range snapshot {
			if !yield(t.Summary()) {
				return
			}
		}
	}
}

// Summaries collects List into a slice.
func (r *Registry) Summaries() []Summary {
	return slices.Collect(r.List())
}
