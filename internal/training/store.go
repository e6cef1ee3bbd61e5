package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps sessions in Redis as JSON, with a per-website pointer to the active one.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a session store. Every save refreshes ttl.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("training:session:%s", id.String())
}

func websiteKey(website string) string {
	return fmt.Sprintf("training:website:%s", strings.ToLower(website))
}

// Save writes s and maintains the active pointer for its website.
func (st *Store) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	pipe := st.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), data, st.ttl)
	if s.IsActive() {
		pipe.Set(ctx, websiteKey(s.Website), s.ID.String(), st.ttl)
	} else {
		pipe.Del(ctx, websiteKey(s.Website))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}
	return nil
}

// Get loads a session by id.
func (st *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := st.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get %s: %w", sessionKey(id), err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &s, nil
}

// ActiveFor returns the active session for website, or nil when there is none.
func (st *Store) ActiveFor(ctx context.Context, website string) (*Session, error) {
	raw, err := st.client.Get(ctx, websiteKey(website)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", websiteKey(website), err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing session id: %w", err)
	}
	s, err := st.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, nil
	}
	return s, nil
}

// CountActive counts websites with an active session. Pointers expire with
// their session, so abandoned sessions drop out on their own.
func (st *Store) CountActive(ctx context.Context) (int, error) {
	n := 0
	iter := st.client.Scan(ctx, 0, websiteKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning active sessions: %w", err)
	}
	return n, nil
}

// Delete removes a session and, if it is the active one, its website pointer.
func (st *Store) Delete(ctx context.Context, s *Session) error {
	pipe := st.client.TxPipeline()
	pipe.Del(ctx, sessionKey(s.ID))
	pipe.Del(ctx, websiteKey(s.Website))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session %s: %w", s.ID, err)
	}
	return nil
}
