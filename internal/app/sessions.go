package app

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type JoinOutcome int

const (
	JoinAdded JoinOutcome = iota + 1
	// JoinAlreadyJoined: same user, same connection. Nothing changed.
	JoinAlreadyJoined
	// JoinDisplaced: same user joined from another connection, which replaced the stored one.
	JoinDisplaced
)

type TimeoutChange int

const (
	TimeoutUnchanged TimeoutChange = iota
	TimeoutArmed
	TimeoutCanceled
)

type JoinResult struct {
	Outcome JoinOutcome
	// Activated is set when this join brought the session from zero to one participant.
	Activated    bool
	PreviousConn core.ConnID
	Timeout      TimeoutChange
}

type LeaveResult struct {
	Removed   core.Participant
	Destroyed bool
	Timeout   TimeoutChange
}

// Session is one live voice session bound to a chat.
// Its accessors are only meant for hooks, which run with the session lock held.
type Session struct {
	mu           sync.Mutex
	id           domain.SessionID
	chatID       domain.ChatID
	createdAt    time.Time
	participants map[domain.UserID]*core.Participant
	dead         bool
	timeout      Token
	expiresAt    time.Time
	// seq counts membership changes; it orders watcher events of one session.
	seq uint64
}

func (s *Session) ID() domain.SessionID  { return s.id }
func (s *Session) ChatID() domain.ChatID { return s.chatID }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) Count() int            { return len(s.participants) }
func (s *Session) TimeoutToken() Token   { return s.timeout }
func (s *Session) TimeoutAt() time.Time  { return s.expiresAt }
func (s *Session) Seq() uint64           { return s.seq }

func (s *Session) Participant(uid domain.UserID) (core.Participant, bool) {
	p, ok := s.participants[uid]
	if !ok {
		return core.Participant{}, false
	}
	return *p, true
}

// Participants returns copies ordered by join time.
func (s *Session) Participants() []core.Participant {
	out := make([]core.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b core.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}

func (s *Session) Snapshot() core.SessionSnapshot {
	ps := s.Participants()
	dtos := make([]core.ParticipantDTO, 0, len(ps))
	for _, p := range ps {
		dtos = append(dtos, p.DTO())
	}
	return core.SessionSnapshot{
		SessionID:    s.id,
		ChatID:       s.chatID,
		CreatedAt:    s.createdAt,
		Participants: dtos,
		Count:        len(dtos),
	}
}

type membership struct {
	chat domain.ChatID
	conn core.ConnID
}

// ExpiredSession describes a session torn down by its inactivity timeout.
type ExpiredSession struct {
	ChatID    domain.ChatID
	SessionID domain.SessionID
	Seq       uint64
	Remaining []core.Participant
}

// SessionStore is the in-memory table of live voice sessions keyed by chat.
//
// Lookups are sharded by chat id, each session has its own lock, and the
// user → (chat, connection) reverse index is sharded by user id.
// Lock order: session → reverse-index shard → session-table shard.
type SessionStore struct {
	sessions *shardedMap[domain.ChatID, *Session]
	members  *shardedMap[domain.UserID, membership]
	timeouts *TimeoutScheduler[domain.ChatID]
	grace    time.Duration
	now      func() time.Time

	onExpire atomic.Pointer[func(ExpiredSession)]

	live         atomic.Int64
	participants atomic.Int64
}

// NewSessionStore builds a store. A non-positive grace disables inactivity timeouts.
func NewSessionStore(grace time.Duration, timeouts *TimeoutScheduler[domain.ChatID]) *SessionStore {
	if timeouts == nil {
		timeouts = NewTimeoutScheduler[domain.ChatID]("sessions", hashString[domain.ChatID])
	}
	return &SessionStore{
		sessions: newShardedMap[domain.ChatID, *Session](defaultShards, hashString[domain.ChatID]),
		members:  newShardedMap[domain.UserID, membership](defaultShards, hashString[domain.UserID]),
		timeouts: timeouts,
		grace:    grace,
		now:      time.Now,
	}
}

// OnExpire registers the callback run after a timed-out session was destroyed.
func (st *SessionStore) OnExpire(fn func(ExpiredSession)) {
	st.onExpire.Store(&fn)
}

func (st *SessionStore) Grace() time.Duration { return st.grace }

// GetOrCreateSession returns the chat's session, creating and registering an
// empty one if needed. Concurrent callers for one chat get the same session.
// An empty session is invisible to GetSession and Counts.
func (st *SessionStore) GetOrCreateSession(chatID domain.ChatID) (*Session, bool) {
	sh := st.sessions.shardOf(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.m[chatID]; ok {
		return s, false
	}
	s := &Session{
		id:           domain.SessionID(uuid.NewString()),
		chatID:       chatID,
		createdAt:    st.now().UTC(),
		participants: make(map[domain.UserID]*core.Participant),
	}
	sh.m[chatID] = s
	st.live.Add(1)
	log.Info().Str("module", "app.sessions").Str("chat", string(chatID)).Str("session", string(s.id)).Msg("session created")
	return s, true
}

func (st *SessionStore) lookup(chatID domain.ChatID) *Session {
	s, _ := st.sessions.get(chatID)
	return s
}

// AddParticipant joins p to the chat's session, creating it if needed.
// It fails with domain.ErrAlreadyInAnotherSession if the user is in another
// chat's session; joining the same session again is idempotent.
// hook runs with the session lock held after the mutation.
func (st *SessionStore) AddParticipant(chatID domain.ChatID, p core.Participant, hook func(*Session, JoinResult)) (JoinResult, error) {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = st.now().UTC()
	}
	for {
		s, _ := st.GetOrCreateSession(chatID)
		s.mu.Lock()
		if s.dead {
			// destroyed between lookup and lock
			s.mu.Unlock()
			continue
		}
		res, err := st.addLocked(s, p)
		if err != nil {
			if len(s.participants) == 0 {
				st.destroyLocked(s)
			}
			s.mu.Unlock()
			return JoinResult{}, err
		}
		if hook != nil {
			hook(s, res)
		}
		s.mu.Unlock()
		return res, nil
	}
}

func (st *SessionStore) addLocked(s *Session, p core.Participant) (JoinResult, error) {
	sh := st.members.shardOf(p.UserID)
	sh.mu.Lock()
	if m, ok := sh.m[p.UserID]; ok && m.chat != s.chatID {
		sh.mu.Unlock()
		log.Info().Str("module", "app.sessions").Str("user", string(p.UserID)).Str("chat", string(s.chatID)).Str("current_chat", string(m.chat)).Msg("join rejected: in another session")
		return JoinResult{}, domain.ErrAlreadyInAnotherSession
	}

	if existing, ok := s.participants[p.UserID]; ok {
		if existing.Conn == p.Conn {
			sh.mu.Unlock()
			return JoinResult{Outcome: JoinAlreadyJoined}, nil
		}
		prev := existing.Conn
		existing.Conn = p.Conn
		existing.Flags.Speaking = false
		if p.Username != "" {
			existing.Username = p.Username
		}
		sh.m[p.UserID] = membership{chat: s.chatID, conn: p.Conn}
		sh.mu.Unlock()
		s.seq++
		log.Info().Str("module", "app.sessions").Str("user", string(p.UserID)).Str("chat", string(s.chatID)).Str("from_conn", string(prev)).Str("to_conn", string(p.Conn)).Msg("participant displaced to new connection")
		return JoinResult{Outcome: JoinDisplaced, PreviousConn: prev}, nil
	}

	sh.m[p.UserID] = membership{chat: s.chatID, conn: p.Conn}
	sh.mu.Unlock()

	rec := p
	s.participants[p.UserID] = &rec
	s.seq++
	st.participants.Add(1)
	log.Info().Str("module", "app.sessions").Str("user", string(p.UserID)).Str("chat", string(s.chatID)).Int("count", len(s.participants)).Msg("participant added")

	return JoinResult{
		Outcome:   JoinAdded,
		Activated: len(s.participants) == 1,
		Timeout:   st.rebalanceLocked(s),
	}, nil
}

// rebalanceLocked arms the inactivity timeout at one participant and disarms it at two or more.
func (st *SessionStore) rebalanceLocked(s *Session) TimeoutChange {
	n := len(s.participants)
	switch {
	case n == 1 && s.timeout == 0 && st.grace > 0:
		s.expiresAt = st.now().UTC().Add(st.grace)
		s.timeout = st.timeouts.Arm(s.chatID, st.grace, func(tok Token) { st.expire(s, tok) })
		if s.timeout == 0 {
			return TimeoutUnchanged
		}
		return TimeoutArmed
	case n >= 2 && s.timeout != 0:
		st.timeouts.CancelToken(s.chatID, s.timeout)
		s.timeout = 0
		s.expiresAt = time.Time{}
		return TimeoutCanceled
	}
	return TimeoutUnchanged
}

func (st *SessionStore) expire(s *Session, tok Token) {
	s.mu.Lock()
	if s.dead || s.timeout != tok || len(s.participants) > 1 {
		s.mu.Unlock()
		return
	}
	s.timeout = 0
	remaining := st.destroyLocked(s)
	s.mu.Unlock()

	log.Info().Str("module", "app.sessions").Str("chat", string(s.chatID)).Str("session", string(s.id)).Int("remaining", len(remaining)).Msg("session expired")
	if fn := st.onExpire.Load(); fn != nil {
		(*fn)(ExpiredSession{ChatID: s.chatID, SessionID: s.id, Seq: s.seq, Remaining: remaining})
	}
}

// destroyLocked cancels the pending timeout, clears the reverse index and
// unregisters the session. It returns the participants it evicted.
func (st *SessionStore) destroyLocked(s *Session) []core.Participant {
	if s.timeout != 0 {
		st.timeouts.CancelToken(s.chatID, s.timeout)
		s.timeout = 0
	}
	s.dead = true
	s.seq++
	evicted := s.Participants()
	for _, p := range evicted {
		st.unindex(p.UserID, s.chatID)
	}
	st.participants.Add(-int64(len(evicted)))
	clear(s.participants)

	sh := st.sessions.shardOf(s.chatID)
	sh.mu.Lock()
	if sh.m[s.chatID] == s {
		delete(sh.m, s.chatID)
		st.live.Add(-1)
	}
	sh.mu.Unlock()
	log.Info().Str("module", "app.sessions").Str("chat", string(s.chatID)).Str("session", string(s.id)).Msg("session destroyed")
	return evicted
}

func (st *SessionStore) unindex(uid domain.UserID, chatID domain.ChatID) {
	sh := st.members.shardOf(uid)
	sh.mu.Lock()
	if m, ok := sh.m[uid]; ok && m.chat == chatID {
		delete(sh.m, uid)
	}
	sh.mu.Unlock()
}

// RemoveParticipant removes the user from the chat's session. The session is
// destroyed when it becomes empty. Returns false for unknown chat or user.
func (st *SessionStore) RemoveParticipant(chatID domain.ChatID, uid domain.UserID, hook func(*Session, LeaveResult)) (core.Participant, bool) {
	return st.remove(chatID, uid, "", hook)
}

// RemoveParticipantOnConn removes the user only if its voice is bound to conn.
// A connection that was displaced by another device leaves nothing behind.
func (st *SessionStore) RemoveParticipantOnConn(chatID domain.ChatID, uid domain.UserID, conn core.ConnID, hook func(*Session, LeaveResult)) (core.Participant, bool) {
	return st.remove(chatID, uid, conn, hook)
}

func (st *SessionStore) remove(chatID domain.ChatID, uid domain.UserID, conn core.ConnID, hook func(*Session, LeaveResult)) (core.Participant, bool) {
	s := st.lookup(chatID)
	if s == nil {
		return core.Participant{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return core.Participant{}, false
	}
	p, ok := s.participants[uid]
	if !ok || (conn != "" && p.Conn != conn) {
		return core.Participant{}, false
	}
	removed := *p
	delete(s.participants, uid)
	s.seq++
	st.unindex(uid, chatID)
	st.participants.Add(-1)
	log.Info().Str("module", "app.sessions").Str("user", string(uid)).Str("chat", string(chatID)).Int("count", len(s.participants)).Msg("participant removed")

	res := LeaveResult{Removed: removed}
	if len(s.participants) == 0 {
		st.destroyLocked(s)
		res.Destroyed = true
	} else {
		res.Timeout = st.rebalanceLocked(s)
	}
	if hook != nil {
		hook(s, res)
	}
	return removed, true
}

// DestroySession tears the session down regardless of its participants.
func (st *SessionStore) DestroySession(chatID domain.ChatID, hook func(*Session, []core.Participant)) []core.Participant {
	s := st.lookup(chatID)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return nil
	}
	evicted := st.destroyLocked(s)
	if hook != nil {
		hook(s, evicted)
	}
	return evicted
}

// GetSession returns a snapshot of a live, non-empty session.
func (st *SessionStore) GetSession(chatID domain.ChatID) (core.SessionSnapshot, bool) {
	var snap core.SessionSnapshot
	ok := st.WithSession(chatID, func(s *Session) { snap = s.Snapshot() })
	return snap, ok
}

// WithSession runs fn under the session lock if the session is live and non-empty.
func (st *SessionStore) WithSession(chatID domain.ChatID, fn func(*Session)) bool {
	s := st.lookup(chatID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead || len(s.participants) == 0 {
		return false
	}
	fn(s)
	return true
}

// UpdateParticipant runs fn on the user's record under the session lock.
// Unknown chat or user is a silent no-op.
func (st *SessionStore) UpdateParticipant(chatID domain.ChatID, uid domain.UserID, fn func(*Session, *core.Participant)) bool {
	s := st.lookup(chatID)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return false
	}
	p, ok := s.participants[uid]
	if !ok {
		return false
	}
	fn(s, p)
	return true
}

// MembershipOf returns the chat and connection the user's voice is bound to.
func (st *SessionStore) MembershipOf(uid domain.UserID) (domain.ChatID, core.ConnID, bool) {
	m, ok := st.members.get(uid)
	return m.chat, m.conn, ok
}

// Counts returns participant counts for the given chats that have a live session.
func (st *SessionStore) Counts(chatIDs []domain.ChatID) map[domain.ChatID]int {
	out := make(map[domain.ChatID]int, len(chatIDs))
	for _, id := range chatIDs {
		st.WithSession(id, func(s *Session) { out[id] = len(s.participants) })
	}
	return out
}

func (st *SessionStore) Len() int              { return int(st.live.Load()) }
func (st *SessionStore) ParticipantCount() int { return int(st.participants.Load()) }

// Stop cancels every pending inactivity timeout.
func (st *SessionStore) Stop() { st.timeouts.Stop() }
