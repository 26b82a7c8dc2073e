// Package session tracks each user's most recent search so pagination
// callbacks can page through it. Sessions live in an in-memory LRU with a
// TTL: they are not durable, and a restart or eviction invalidates them,
// which callers surface as "search again".
package session

import (
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"bsfilter-bot/internal/model"
)

// ErrExpired is returned when a callback references a session that was
// evicted, expired or never existed (e.g. after a restart).
var ErrExpired = errors.New("session: expired")

// Session is one user's live result set. A new search for the same user
// replaces it (last write wins).
type Session struct {
	UserID    int64
	Query     string
	Files     []model.FileRecord
	TMDB      *TitleMeta
	CreatedAt time.Time
}

// TitleMeta is the optional metadata header shown above the result list.
type TitleMeta struct {
	Title    string
	Rating   float64
	Overview string
	Poster   string
}

type Store struct {
	lru *expirable.LRU[int64, *Session]
}

// NewStore builds a session store holding at most maxEntries sessions,
// each expiring ttl after creation.
func NewStore(maxEntries int, ttl time.Duration) *Store {
	return &Store{lru: expirable.NewLRU[int64, *Session](maxEntries, nil, ttl)}
}

// Put saves the user's latest search, replacing any previous session.
func (s *Store) Put(userID int64, query string, files []model.FileRecord, meta *TitleMeta) {
	s.lru.Add(userID, &Session{
		UserID:    userID,
		Query:     query,
		Files:     files,
		TMDB:      meta,
		CreatedAt: time.Now(),
	})
}

// Get returns the user's live session or ErrExpired.
func (s *Store) Get(userID int64) (*Session, error) {
	sess, ok := s.lru.Get(userID)
	if !ok {
		return nil, ErrExpired
	}
	return sess, nil
}

// Drop discards the user's session.
func (s *Store) Drop(userID int64) {
	s.lru.Remove(userID)
}
