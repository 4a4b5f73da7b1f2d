// Package memory keeps audits in process memory. It backs local runs,
// the CLI and service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

type AuditRepository struct {
	mu     sync.RWMutex
	nextID audit.ID
	rows   map[audit.ID]*audit.Audit
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{rows: make(map[audit.ID]*audit.Audit)}
}

func (r *AuditRepository) Create(_ context.Context, a *audit.Audit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	r.rows[a.ID] = clone(a)
	return nil
}

func (r *AuditRepository) Get(_ context.Context, id audit.ID) (*audit.Audit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return clone(a), nil
}

// Update leaves the completion columns alone, like the SQL stores.
func (r *AuditRepository) Update(_ context.Context, a *audit.Audit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[a.ID]
	if !ok {
		return audit.ErrNotFound
	}
	next := clone(a)
	next.CreatedAt = cur.CreatedAt
	next.Completed = cur.Completed
	next.CompletedAt = cur.CompletedAt
	r.rows[a.ID] = next
	return nil
}

func (r *AuditRepository) MarkCompleted(_ context.Context, id audit.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return audit.ErrNotFound
	}
	at = at.UTC()
	a.Completed = true
	a.CompletedAt = &at
	a.UpdatedAt = at
	return nil
}

func (r *AuditRepository) Recent(_ context.Context, limit int) ([]*audit.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	out := make([]*audit.Audit, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, clone(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AuditRepository) DeleteIncompleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.rows {
		if !a.Completed && a.CreatedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *AuditRepository) Ping(context.Context) error { return nil }

func clone(a *audit.Audit) *audit.Audit {
	c := *a
	c.Answers = audit.Answers{}.Merge(a.Answers)
	for k, v := range c.Answers {
		if v.Values != nil {
			v.Values = append([]string{}, v.Values...)
			c.Answers[k] = v
		}
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
