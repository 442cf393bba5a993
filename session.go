// session.go: In-memory session state holding the master key while logged in.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keyward

import (
	"sync"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// SessionState is the authentication state of a Session.
type SessionState int

const (
	// StateLoggedOut is the initial state. No master key is held.
	StateLoggedOut SessionState = iota

	// StateLoggedIn holds a master key derived from a verified password.
	StateLoggedIn
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Session holds the master key for the lifetime of a login.
//
// A Session is an explicit object, created with NewSession and passed to
// whatever needs the authentication context; there is no package-level
// session. All methods take the same exclusive lock: every operation is
// microsecond-scale, so readers and writers are not split.
//
// The master key is overwritten with zeros when it is replaced or cleared.
type Session struct {
	mu            sync.Mutex
	key           Key
	authenticated bool
	loggedInAt    time.Time
	lastActivity  time.Time

	now func() time.Time
}

// NewSession returns a logged-out session.
func NewSession() *Session {
	return &Session{now: timecache.CachedTime}
}

// SetMasterKey stores key and marks the session authenticated. A key already
// held is wiped and replaced, never merged.
func (s *Session) SetMasterKey(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.key.Zeroize()
	s.key = key
	s.authenticated = true
	s.loggedInAt = now
	s.lastActivity = now
}

// ClearMasterKey wipes the key and marks the session logged out. Clearing a
// logged-out session is a no-op.
func (s *Session) ClearMasterKey() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

// clock returns the cached wall time. A zero Session has no clock set.
func (s *Session) clock() time.Time {
	if s.now == nil {
		return timecache.CachedTime()
	}
	return s.now()
}

func (s *Session) clearLocked() {
	s.key.Zeroize()
	s.authenticated = false
	s.loggedInAt = time.Time{}
	s.lastActivity = time.Time{}
}

// MasterKey returns a copy of the master key. The boolean is false when the
// session is logged out, in which case the caller must re-authenticate.
func (s *Session) MasterKey() (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return Key{}, false
	}
	s.lastActivity = s.clock()
	return s.key, true
}

// IsAuthenticated reports whether a master key is held.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authenticated
}

// State returns StateLoggedIn or StateLoggedOut.
func (s *Session) State() SessionState {
	if s.IsAuthenticated() {
		return StateLoggedIn
	}
	return StateLoggedOut
}

// DomainKey derives the key for domain from the held master key. It fails
// with ErrNotAuthenticated when the session is logged out. The derived key is
// not cached; callers should Zeroize it when done.
func (s *Session) DomainKey(domain string) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return Key{}, withCode(ErrNotAuthenticated, goerrors.New(ErrCodeNotAuth, "session is logged out"))
	}
	s.lastActivity = s.clock()
	return DeriveKey(s.key, domain), nil
}

// LoggedInAt returns when the current login started, or the zero time.
func (s *Session) LoggedInAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loggedInAt
}

// LastActivity returns when the master key was last used, or the zero time.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActivity
}

// ExpireIdle clears the session when the master key has not been used for
// longer than maxIdle and reports whether it did. The session never expires
// by itself; an idle-timeout policy calls this periodically.
func (s *Session) ExpireIdle(maxIdle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated || maxIdle <= 0 {
		return false
	}
	if s.clock().Sub(s.lastActivity) <= maxIdle {
		return false
	}
	s.clearLocked()
	return true
}
