// Package chatdir provides core.ChatDirectory implementations.
package chatdir

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/voicehub/internal/domain"
)

// Memory is a static chat directory for development and tests.
type Memory struct {
	mu       sync.RWMutex
	members  map[domain.ChatID]map[domain.UserID]struct{}
	contacts map[domain.UserID]map[domain.UserID]struct{}
}

// NewMemory seeds the directory from chat → users and user → contacts maps.
func NewMemory(members, contacts map[string][]string) *Memory {
	m := &Memory{
		members:  make(map[domain.ChatID]map[domain.UserID]struct{}),
		contacts: make(map[domain.UserID]map[domain.UserID]struct{}),
	}
	for chat, users := range members {
		for _, u := range users {
			m.AddMember(domain.ChatID(chat), domain.UserID(u))
		}
	}
	for user, friends := range contacts {
		for _, f := range friends {
			m.AddContact(domain.UserID(user), domain.UserID(f))
		}
	}
	return m
}

func (m *Memory) AddMember(chatID domain.ChatID, uid domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[chatID]
	if !ok {
		set = make(map[domain.UserID]struct{})
		m.members[chatID] = set
	}
	set[uid] = struct{}{}
}

// AddContact makes watcher receive uid's presence changes.
func (m *Memory) AddContact(uid, watcher domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.contacts[uid]
	if !ok {
		set = make(map[domain.UserID]struct{})
		m.contacts[uid] = set
	}
	set[watcher] = struct{}{}
}

func (m *Memory) IsUserMemberOfChat(_ context.Context, chatID domain.ChatID, uid domain.UserID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[chatID][uid]
	return ok, nil
}

func (m *Memory) ResolveChatMembers(_ context.Context, chatID domain.ChatID) ([]domain.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.members[chatID]), nil
}

func (m *Memory) ResolveContacts(_ context.Context, uid domain.UserID) ([]domain.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.contacts[uid]), nil
}

func sortedKeys(set map[domain.UserID]struct{}) []domain.UserID {
	out := make([]domain.UserID, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
