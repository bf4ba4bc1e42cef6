package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"linkboard/api/internal/order"
	"linkboard/api/internal/store"
)

// memStore is an in-memory dataStore with the same scope and ordering
// semantics as the Postgres implementation.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]store.User
	cats    map[int64]store.Category
	links   map[int64]store.Link
	refresh map[string]refreshRec
	revoked map[string]bool
	pingErr error
}

type refreshRec struct {
	userID    int64
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[int64]store.User),
		cats:    make(map[int64]store.Category),
		links:   make(map[int64]store.Link),
		refresh: make(map[string]refreshRec),
		revoked: make(map[string]bool),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// users

func (m *memStore) CreateUser(_ context.Context, user store.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user.ID, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, userID int64) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) ListUsers(context.Context) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]store.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *memStore) SetUserStatus(_ context.Context, userID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Status = status
	m.users[userID] = user
	return nil
}

func (m *memStore) DeleteUserCascade(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return store.ErrNotFound
	}
	for id, link := range m.links {
		if link.OwnerUserID == userID {
			delete(m.links, id)
		}
	}
	for id, cat := range m.cats {
		if cat.OwnerUserID == userID {
			delete(m.cats, id)
		}
	}
	delete(m.users, userID)
	return nil
}

// refresh sessions and token revocation

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = refreshRec{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memStore) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.refresh[tokenHash]
	if !ok || time.Now().After(rec.expiresAt) {
		return store.User{}, store.ErrNotFound
	}
	user, ok := m.users[rec.userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}

// categories

func (m *memStore) ListCategories(_ context.Context, ownerUserID int64) ([]store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedCategories(ownerUserID), nil
}

func (m *memStore) sortedCategories(ownerUserID int64) []store.Category {
	cats := make([]store.Category, 0)
	for _, cat := range m.cats {
		if cat.OwnerUserID == ownerUserID {
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].SortOrder != cats[j].SortOrder {
			return cats[i].SortOrder < cats[j].SortOrder
		}
		return cats[i].ID < cats[j].ID
	})
	return cats
}

func (m *memStore) GetCategory(_ context.Context, ownerUserID, categoryID int64) (store.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.cats[categoryID]
	if !ok || cat.OwnerUserID != ownerUserID {
		return store.Category{}, store.ErrNotFound
	}
	return cat, nil
}

func (m *memStore) InsertCategory(_ context.Context, category store.Category) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	category.ID = m.id()
	m.cats[category.ID] = category
	return category.ID, nil
}

func (m *memStore) RenameCategory(_ context.Context, ownerUserID, categoryID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.cats[categoryID]
	if !ok || cat.OwnerUserID != ownerUserID {
		return store.ErrNotFound
	}
	cat.Name = name
	m.cats[categoryID] = cat
	return nil
}

func (m *memStore) DeleteCategoryCascade(_ context.Context, ownerUserID, categoryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.cats[categoryID]
	if !ok || cat.OwnerUserID != ownerUserID {
		return store.ErrNotFound
	}
	for id, link := range m.links {
		if link.OwnerUserID == ownerUserID && link.CategoryID == categoryID {
			delete(m.links, id)
		}
	}
	delete(m.cats, categoryID)
	return nil
}

func (m *memStore) ApplyCategoryOrder(_ context.Context, ownerUserID int64, moves []order.Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// All or nothing, like the transactional implementation.
	staged := make(map[int64]store.Category, len(moves))
	for _, move := range moves {
		cat, ok := m.cats[move.ID]
		if !ok || cat.OwnerUserID != ownerUserID {
			return store.ErrNotFound
		}
		cat.SortOrder = move.Ordinal
		staged[move.ID] = cat
	}
	for id, cat := range staged {
		m.cats[id] = cat
	}
	return nil
}

// links

func (m *memStore) sortedLinks(ownerUserID, categoryID int64) []store.Link {
	links := make([]store.Link, 0)
	for _, link := range m.links {
		if link.OwnerUserID == ownerUserID && link.CategoryID == categoryID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].SortOrder != links[j].SortOrder {
			return links[i].SortOrder < links[j].SortOrder
		}
		return links[i].ID < links[j].ID
	})
	return links
}

func (m *memStore) ListLinks(_ context.Context, ownerUserID, categoryID int64) ([]store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLinks(ownerUserID, categoryID), nil
}

func (m *memStore) ListLinksPage(_ context.Context, ownerUserID, categoryID int64, limit, offset int) ([]store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := m.sortedLinks(ownerUserID, categoryID)
	if offset >= len(links) {
		return []store.Link{}, nil
	}
	end := offset + limit
	if end > len(links) {
		end = len(links)
	}
	return links[offset:end], nil
}

func (m *memStore) CountLinks(_ context.Context, ownerUserID, categoryID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sortedLinks(ownerUserID, categoryID)), nil
}

func (m *memStore) ListLinksByOwner(_ context.Context, ownerUserID int64) ([]store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]store.Link, 0)
	for _, cat := range m.sortedCategories(ownerUserID) {
		all = append(all, m.sortedLinks(ownerUserID, cat.ID)...)
	}
	return all, nil
}

func (m *memStore) GetLink(_ context.Context, ownerUserID, linkID int64) (store.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok || link.OwnerUserID != ownerUserID {
		return store.Link{}, store.ErrNotFound
	}
	return link, nil
}

func (m *memStore) InsertLink(_ context.Context, link store.Link) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.cats[link.CategoryID]
	if !ok || cat.OwnerUserID != link.OwnerUserID {
		return 0, store.ErrNotFound
	}
	link.ID = m.id()
	m.links[link.ID] = link
	return link.ID, nil
}

func (m *memStore) UpdateLink(_ context.Context, link store.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.links[link.ID]
	if !ok || current.OwnerUserID != link.OwnerUserID {
		return store.ErrNotFound
	}
	cat, ok := m.cats[link.CategoryID]
	if !ok || cat.OwnerUserID != link.OwnerUserID {
		return store.ErrNotFound
	}
	m.links[link.ID] = link
	return nil
}

func (m *memStore) UpdateLinkIcon(_ context.Context, ownerUserID, linkID int64, icon string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok || link.OwnerUserID != ownerUserID {
		return store.ErrNotFound
	}
	link.Icon = icon
	m.links[linkID] = link
	return nil
}

func (m *memStore) DeleteLink(_ context.Context, ownerUserID, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[linkID]
	if !ok || link.OwnerUserID != ownerUserID {
		return store.ErrNotFound
	}
	delete(m.links, linkID)
	return nil
}

func (m *memStore) ApplyLinkOrder(_ context.Context, ownerUserID, categoryID int64, moves []order.Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := make(map[int64]store.Link, len(moves))
	for _, move := range moves {
		link, ok := m.links[move.ID]
		if !ok || link.OwnerUserID != ownerUserID || link.CategoryID != categoryID {
			return store.ErrNotFound
		}
		link.SortOrder = move.Ordinal
		staged[move.ID] = link
	}
	for id, link := range staged {
		m.links[id] = link
	}
	return nil
}
