package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
)

// EvaluationRepository stores one evaluation row per (login, month).
// Upsert applies a partial patch: fields left nil in the patch keep their
// stored value, and a missing row is created.
type EvaluationRepository interface {
	FindByMemberAndMonth(ctx context.Context, login string, month evaluation.MonthKey) (*evaluation.Evaluation, error)
	FindByMonth(ctx context.Context, month evaluation.MonthKey) ([]*evaluation.Evaluation, error)
	FindByMember(ctx context.Context, login string) ([]*evaluation.Evaluation, error)
	ListMonths(ctx context.Context) ([]evaluation.MonthKey, error)
	Upsert(ctx context.Context, login string, month evaluation.MonthKey, patch evaluation.Patch) (*evaluation.Evaluation, error)
	Delete(ctx context.Context, login string, month evaluation.MonthKey) error
	DeleteByMonth(ctx context.Context, month evaluation.MonthKey) (int, error)
}

type memoryEvaluationRepo struct {
	mu   sync.RWMutex
	rows map[evaluation.MonthKey]map[string]*evaluation.Evaluation
	now  func() time.Time
}

// NewInMemoryEvaluationRepo returns an evaluation repository kept in process memory.
func NewInMemoryEvaluationRepo() EvaluationRepository {
	return &memoryEvaluationRepo{
		rows: make(map[evaluation.MonthKey]map[string]*evaluation.Evaluation),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryEvaluationRepo) FindByMemberAndMonth(ctx context.Context, login string, month evaluation.MonthKey) (*evaluation.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[month][loginKey(login)]
	if !ok {
		return nil, apperr.ErrEvaluationNotFound
	}
	return row.Clone(), nil
}

func (r *memoryEvaluationRepo) FindByMonth(ctx context.Context, month evaluation.MonthKey) ([]*evaluation.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.rows[month]
	out := make([]*evaluation.Evaluation, 0, len(bucket))
	for _, row := range bucket {
		out = append(out, row.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

func (r *memoryEvaluationRepo) FindByMember(ctx context.Context, login string) ([]*evaluation.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := loginKey(login)
	var out []*evaluation.Evaluation
	for _, bucket := range r.rows {
		if row, ok := bucket[key]; ok {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *memoryEvaluationRepo) ListMonths(ctx context.Context) ([]evaluation.MonthKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]evaluation.MonthKey, 0, len(r.rows))
	for month, bucket := range r.rows {
		if len(bucket) > 0 {
			out = append(out, month)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memoryEvaluationRepo) Upsert(ctx context.Context, login string, month evaluation.MonthKey, patch evaluation.Patch) (*evaluation.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := loginKey(login)
	bucket, ok := r.rows[month]
	if !ok {
		bucket = make(map[string]*evaluation.Evaluation)
		r.rows[month] = bucket
	}
	now := r.now()
	row, ok := bucket[key]
	if !ok {
		row = evaluation.New(key, month)
		row.CreatedAt = now
		bucket[key] = row
	}
	patch.Apply(row)
	row.UpdatedAt = now
	return row.Clone(), nil
}

func (r *memoryEvaluationRepo) Delete(ctx context.Context, login string, month evaluation.MonthKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := loginKey(login)
	if _, ok := r.rows[month][key]; !ok {
		return apperr.ErrEvaluationNotFound
	}
	delete(r.rows[month], key)
	return nil
}

func (r *memoryEvaluationRepo) DeleteByMonth(ctx context.Context, month evaluation.MonthKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.rows[month])
	delete(r.rows, month)
	return n, nil
}
