package websocket

import (
	"sort"
	"sync"
	"time"

	"rack-service/internal/auth"
)

// Session is one live push connection.
type Session struct {
	ID          string
	Identity    *auth.Identity
	ConnectedAt time.Time
}

// ConnectionInfo is one entry of the diagnostics snapshot.
type ConnectionInfo struct {
	ClientID string   `json:"clientId"`
	UserID   uint     `json:"userId"`
	Rooms    []string `json:"rooms"`
}

// Registry tracks live sessions and which rack rooms they are in. Sessions
// and rooms share one lock so a disconnect leaves no dangling membership.
type Registry struct {
	mu sync.RWMutex

	sessions map[string]*Session

	// rack ID -> session IDs
	rooms map[string]map[string]struct{}

	// session ID -> rack IDs
	sessionRooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		rooms:        make(map[string]map[string]struct{}),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// AddSession inserts or replaces the session record. Room memberships of an
// existing session are kept.
func (r *Registry) AddSession(sessionID string, identity *auth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = &Session{
		ID:          sessionID,
		Identity:    identity,
		ConnectedAt: time.Now(),
	}
}

// RemoveSession deletes the session and its memberships, returning the racks
// it was subscribed to. Unknown ids are ignored.
func (r *Registry) RemoveSession(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.sessionRooms[sessionID]
	left := make([]string, 0, len(rooms))
	for rackID := range rooms {
		r.leaveLocked(rackID, sessionID)
		left = append(left, rackID)
	}
	delete(r.sessionRooms, sessionID)
	delete(r.sessions, sessionID)

	sort.Strings(left)
	return left
}

// GetSession returns a copy of the session record.
func (r *Registry) GetSession(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// UserSessionCount returns how many live sessions belong to userID.
func (r *Registry) UserSessionCount(userID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.Identity != nil && s.Identity.UserID == userID {
			n++
		}
	}
	return n
}

// Join adds the session to the rack room. It reports whether the session was
// newly added and fails with ErrSessionNotFound for unregistered sessions.
func (r *Registry) Join(rackID, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false, ErrSessionNotFound
	}

	members, ok := r.rooms[rackID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[rackID] = members
	}
	if _, already := members[sessionID]; already {
		return false, nil
	}
	members[sessionID] = struct{}{}

	subs, ok := r.sessionRooms[sessionID]
	if !ok {
		subs = make(map[string]struct{})
		r.sessionRooms[sessionID] = subs
	}
	subs[rackID] = struct{}{}
	return true, nil
}

// Leave removes the session from the rack room. Leaving a room the session is
// not in is a no-op.
func (r *Registry) Leave(rackID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(rackID, sessionID)
}

func (r *Registry) leaveLocked(rackID, sessionID string) {
	if members, ok := r.rooms[rackID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, rackID)
		}
	}
	if subs, ok := r.sessionRooms[sessionID]; ok {
		delete(subs, rackID)
		if len(subs) == 0 {
			delete(r.sessionRooms, sessionID)
		}
	}
}

func (r *Registry) IsMember(rackID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[rackID][sessionID]
	return ok
}

// MembersOf returns a copy of the rack room's session ids.
func (r *Registry) MembersOf(rackID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[rackID]
	out := make([]string, 0, len(members))
	for sessionID := range members {
		out = append(out, sessionID)
	}
	return out
}

// SubscriptionsOf returns the racks the session watches, sorted.
func (r *Registry) SubscriptionsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sessionRooms[sessionID])
}

func (r *Registry) MemberCount(rackID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[rackID])
}

// Snapshot returns every session with its user and rooms, ordered by client id.
func (r *Registry) Snapshot() []ConnectionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(r.sessions))
	for id, s := range r.sessions {
		info := ConnectionInfo{ClientID: id, Rooms: sortedKeys(r.sessionRooms[id])}
		if s.Identity != nil {
			info.UserID = s.Identity.UserID
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
