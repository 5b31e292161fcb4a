package app

import (
	"slices"
	"sync/atomic"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEntry struct {
	conns    map[core.ConnID]struct{}
	username string
}

// Registry maps a user to its open realtime connections.
// A user is online iff it holds at least one connection; the first connect and
// the last disconnect are reported to the caller exactly once.
type Registry struct {
	users  *shardedMap[domain.UserID, *presenceEntry]
	online atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{
		users: newShardedMap[domain.UserID, *presenceEntry](defaultShards, hashString[domain.UserID]),
	}
}

// Connect adds conn to the user's set. It returns true when the set went from empty to non-empty.
func (r *Registry) Connect(uid domain.UserID, conn core.ConnID) bool {
	sh := r.users.shardOf(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.m[uid]
	if !ok {
		e = &presenceEntry{conns: make(map[core.ConnID]struct{}), username: string(uid)}
		sh.m[uid] = e
	}
	if _, dup := e.conns[conn]; dup {
		return false
	}
	first := len(e.conns) == 0
	e.conns[conn] = struct{}{}
	if first {
		r.online.Add(1)
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(conn)).Bool("first", first).Msg("connected")
	return first
}

// Disconnect removes conn. It returns true when the user has no connection left.
// Unknown handles are a no-op.
func (r *Registry) Disconnect(uid domain.UserID, conn core.ConnID) bool {
	sh := r.users.shardOf(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.m[uid]
	if !ok {
		return false
	}
	if _, known := e.conns[conn]; !known {
		return false
	}
	delete(e.conns, conn)
	if len(e.conns) > 0 {
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(conn)).Msg("disconnected")
		return false
	}
	delete(sh.m, uid)
	r.online.Add(-1)
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(conn)).Msg("went offline")
	return true
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	_, ok := r.users.get(uid)
	return ok
}

// ResolveConnections returns a sorted copy of the user's connections.
func (r *Registry) ResolveConnections(uid domain.UserID) []core.ConnID {
	sh := r.users.shardOf(uid)
	sh.mu.Lock()
	e, ok := sh.m[uid]
	if !ok {
		sh.mu.Unlock()
		return nil
	}
	out := make([]core.ConnID, 0, len(e.conns))
	for c := range e.conns {
		out = append(out, c)
	}
	sh.mu.Unlock()
	slices.Sort(out)
	return out
}

// UpdateUsername sets the display name of a connected user.
func (r *Registry) UpdateUsername(uid domain.UserID, name string) error {
	u := domain.User{ID: uid}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	sh := r.users.shardOf(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.m[uid]; ok {
		e.username = u.Username
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("username", name).Msg("updated username")
	}
	return nil
}

// Username returns the display name, falling back to the user id.
func (r *Registry) Username(uid domain.UserID) string {
	sh := r.users.shardOf(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.m[uid]; ok {
		return e.username
	}
	return string(uid)
}

func (r *Registry) OnlineCount() int {
	return int(r.online.Load())
}
