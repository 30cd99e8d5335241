// Package memory holds in-process repositories used in development and tests
// when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
)

// Store is the shared state behind all in-memory repositories. One mutex
// serializes every write, which makes list upserts atomic per store.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	emails   map[string]uuid.UUID
	tokens   map[uuid.UUID]domain.RefreshToken
	items    map[uuid.UUID][]domain.TrackedItem
	position int64
	friends  map[uuid.UUID]map[uuid.UUID]time.Time
	requests map[uuid.UUID]map[uuid.UUID]time.Time
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]domain.User),
		emails:   make(map[string]uuid.UUID),
		tokens:   make(map[uuid.UUID]domain.RefreshToken),
		items:    make(map[uuid.UUID][]domain.TrackedItem),
		friends:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
		requests: make(map[uuid.UUID]map[uuid.UUID]time.Time),
		now:      time.Now,
	}
}

// NewRepositories returns repositories backed by a fresh Store.
func NewRepositories() *repository.Repositories {
	return NewStore().Repositories()
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:         &userRepository{s: s},
		RefreshToken: &refreshTokenRepository{s: s},
		TrackedItem:  &trackedItemRepository{s: s},
		Friend:       &friendRepository{s: s},
	}
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.emails[user.Email]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	r.s.emails[user.Email] = user.ID
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, &u)
		}
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if old.Email != user.Email {
		if _, taken := r.s.emails[user.Email]; taken {
			return repository.ErrDuplicate
		}
		delete(r.s.emails, old.Email)
		r.s.emails[user.Email] = user.ID
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[id]; ok {
		delete(r.s.emails, u.Email)
		delete(r.s.users, id)
	}
	delete(r.s.tokens, id)
	delete(r.s.items, id)
	return nil
}

type refreshTokenRepository struct{ s *Store }

func (r *refreshTokenRepository) Replace(ctx context.Context, userID uuid.UUID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokens[userID] = domain.RefreshToken{UserID: userID, TokenValue: token, UpdatedAt: r.s.now()}
	return nil
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.tokens {
		if rec.TokenValue == token {
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *refreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for userID, rec := range r.s.tokens {
		if rec.TokenValue == token {
			delete(r.s.tokens, userID)
		}
	}
	return nil
}

type trackedItemRepository struct{ s *Store }

func (r *trackedItemRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TrackedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return copyItems(r.s.items[userID]), nil
}

func (r *trackedItemRepository) Upsert(ctx context.Context, item *domain.TrackedItem, fields repository.UpsertFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	list := r.s.items[item.UserID]
	for i := range list {
		if list[i].ExternalID != item.ExternalID {
			continue
		}
		existing := &list[i]
		existing.Status = item.Status
		if fields.Title {
			existing.Title = item.Title
		}
		if fields.PosterURL {
			existing.PosterURL = item.PosterURL
		}
		if fields.EpisodesTotal {
			existing.EpisodesTotal = item.EpisodesTotal
		}
		existing.UpdatedAt = now
		*item = *existing
		return nil
	}

	r.s.position++
	item.Position = r.s.position
	item.CreatedAt = now
	item.UpdatedAt = now
	r.s.items[item.UserID] = append(list, *item)
	return nil
}

func (r *trackedItemRepository) Delete(ctx context.Context, userID uuid.UUID, externalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := r.s.items[userID]
	kept := list[:0]
	for _, it := range list {
		if it.ExternalID != externalID {
			kept = append(kept, it)
		}
	}
	r.s.items[userID] = kept
	return nil
}

func (r *trackedItemRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TrackedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := copyItems(r.s.items[userID])
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].Position > items[j].Position
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func copyItems(list []domain.TrackedItem) []*domain.TrackedItem {
	out := make([]*domain.TrackedItem, 0, len(list))
	for i := range list {
		it := list[i]
		out = append(out, &it)
	}
	return out
}

type friendRepository struct{ s *Store }

func (r *friendRepository) AddRequest(ctx context.Context, from, to uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	link(r.s.requests, to, from, r.s.now())
	return nil
}

func (r *friendRepository) DeleteRequest(ctx context.Context, from, to uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.requests[to], from)
	return nil
}

func (r *friendRepository) Befriend(ctx context.Context, a, b uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	link(r.s.friends, a, b, now)
	link(r.s.friends, b, a, now)
	delete(r.s.requests[a], b)
	delete(r.s.requests[b], a)
	return nil
}

func (r *friendRepository) Unfriend(ctx context.Context, a, b uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.friends[a], b)
	delete(r.s.friends[b], a)
	return nil
}

func (r *friendRepository) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return sortedIDs(r.s.friends[userID]), nil
}

func (r *friendRepository) ListRequestIDs(ctx context.Context, toUserID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return sortedIDs(r.s.requests[toUserID]), nil
}

func link(m map[uuid.UUID]map[uuid.UUID]time.Time, owner, other uuid.UUID, at time.Time) {
	set, ok := m[owner]
	if !ok {
		set = make(map[uuid.UUID]time.Time)
		m[owner] = set
	}
	if _, exists := set[other]; !exists {
		set[other] = at
	}
}

// sortedIDs orders ids by the time the link was created.
func sortedIDs(set map[uuid.UUID]time.Time) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := set[ids[i]], set[ids[j]]
		if ti.Equal(tj) {
			return ids[i].String() < ids[j].String()
		}
		return ti.Before(tj)
	})
	return ids
}
