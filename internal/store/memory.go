package store

import (
	"context"
	"sync"
	"time"

	"facet.views/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu         sync.RWMutex
	views      map[string]*models.View       // by id
	slugs      map[string]string             // slug -> view id
	tokens     map[string]*models.ShareToken // by id
	digests    map[string]string             // digest -> token id
	viewTokens map[string][]string           // view id -> token ids
	owners     map[string]*models.Owner      // by id
	ownerKeys  map[string]string             // key digest -> owner id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		views:      make(map[string]*models.View),
		slugs:      make(map[string]string),
		tokens:     make(map[string]*models.ShareToken),
		digests:    make(map[string]string),
		viewTokens: make(map[string][]string),
		owners:     make(map[string]*models.Owner),
		ownerKeys:  make(map[string]string),
	}
}

func (s *MemoryStore) SaveView(ctx context.Context, view *models.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.slugs[view.Slug]; ok && existing != view.ID {
		return ErrSlugTaken
	}

	cp := *view
	s.views[view.ID] = &cp
	s.slugs[view.Slug] = view.ID
	return nil
}

func (s *MemoryStore) ViewByID(ctx context.Context, id string) (*models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.views[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *view
	return &cp, nil
}

func (s *MemoryStore) ViewBySlug(ctx context.Context, slug string) (*models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	view, ok := s.views[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *view
	return &cp, nil
}

func (s *MemoryStore) SaveToken(ctx context.Context, token *models.ShareToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.ID]; !ok {
		s.viewTokens[token.ViewID] = append(s.viewTokens[token.ViewID], token.ID)
	}

	cp := *token
	s.tokens[token.ID] = &cp
	s.digests[token.Digest] = token.ID
	return nil
}

func (s *MemoryStore) TokenByID(ctx context.Context, id string) (*models.ShareToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *token
	return &cp, nil
}

func (s *MemoryStore) TokensByView(ctx context.Context, viewID string) ([]*models.ShareToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.viewTokens[viewID]
	tokens := make([]*models.ShareToken, 0, len(ids))
	for _, id := range ids {
		if token, ok := s.tokens[id]; ok {
			cp := *token
			tokens = append(tokens, &cp)
		}
	}
	return tokens, nil
}

func (s *MemoryStore) RevokeToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}

	// Idempotent and irreversible; the record is kept for audit history.
	token.Active = false
	return nil
}

func (s *MemoryStore) ValidateToken(ctx context.Context, digest string, now time.Time) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.digests[digest]
	if !ok {
		return "", ErrTokenInvalid
	}
	token, ok := s.tokens[id]
	if !ok {
		return "", ErrTokenInvalid
	}
	if err := tokenUsable(token, now); err != nil {
		return "", err
	}
	return token.ViewID, nil
}

func (s *MemoryStore) RedeemToken(ctx context.Context, digest, viewID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.digests[digest]
	if !ok {
		return ErrTokenInvalid
	}
	token, ok := s.tokens[id]
	if !ok {
		return ErrTokenInvalid
	}
	if token.ViewID != viewID {
		return ErrTokenInvalid
	}
	if err := tokenUsable(token, now); err != nil {
		return err
	}

	token.UseCount++
	used := now
	token.LastUsedAt = &used
	return nil
}

func (s *MemoryStore) SaveOwner(ctx context.Context, owner *models.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *owner
	s.owners[owner.ID] = &cp
	s.ownerKeys[owner.KeyDigest] = owner.ID
	return nil
}

func (s *MemoryStore) OwnerByKeyDigest(ctx context.Context, digest string) (*models.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ownerKeys[digest]
	if !ok {
		return nil, ErrNotFound
	}
	owner, ok := s.owners[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *owner
	return &cp, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views = nil
	s.slugs = nil
	s.tokens = nil
	s.digests = nil
	s.viewTokens = nil
	s.owners = nil
	s.ownerKeys = nil
	return nil
}
