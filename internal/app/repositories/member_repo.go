package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
)

// MemberRepository persists the member directory. Logins are compared
// case-insensitively.
type MemberRepository interface {
	Create(ctx context.Context, m *member.Member) error
	FindByLogin(ctx context.Context, login string) (*member.Member, error)
	List(ctx context.Context) ([]*member.Member, error)
	Upsert(ctx context.Context, m *member.Member) error
	Delete(ctx context.Context, login string) error
	// Merge grava winner e remove cada login de removed diferente de
	// winner.Login, numa única unidade.
	Merge(ctx context.Context, winner *member.Member, removed []string) error
}

type memoryMemberRepo struct {
	mu      sync.RWMutex
	members map[string]*member.Member
}

// NewInMemoryMemberRepo returns a member repository kept in process memory.
func NewInMemoryMemberRepo() MemberRepository {
	return &memoryMemberRepo{members: make(map[string]*member.Member)}
}

func loginKey(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func copyMember(m *member.Member) *member.Member {
	out := *m
	out.Badges = append([]string(nil), m.Badges...)
	return &out
}

func (r *memoryMemberRepo) Create(ctx context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := loginKey(m.Login)
	if _, exists := r.members[key]; exists {
		return apperr.ErrLoginTaken
	}
	r.members[key] = copyMember(m)
	return nil
}

func (r *memoryMemberRepo) FindByLogin(ctx context.Context, login string) (*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[loginKey(login)]
	if !ok {
		return nil, apperr.ErrMemberNotFound
	}
	return copyMember(m), nil
}

func (r *memoryMemberRepo) List(ctx context.Context) ([]*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*member.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, copyMember(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

func (r *memoryMemberRepo) Upsert(ctx context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[loginKey(m.Login)] = copyMember(m)
	return nil
}

func (r *memoryMemberRepo) Delete(ctx context.Context, login string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := loginKey(login)
	if _, ok := r.members[key]; !ok {
		return apperr.ErrMemberNotFound
	}
	delete(r.members, key)
	return nil
}

func (r *memoryMemberRepo) Merge(ctx context.Context, winner *member.Member, removed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	winnerKey := loginKey(winner.Login)
	for _, login := range removed {
		if key := loginKey(login); key != winnerKey {
			delete(r.members, key)
		}
	}
	r.members[winnerKey] = copyMember(winner)
	return nil
}
