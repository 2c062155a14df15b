package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo keeps USSD menu state as a JSON blob with a TTL rewritten on every Put.
type SessionRepo struct {
	client RedisClient
}

func NewSessionRepo(client RedisClient) *SessionRepo {
	return &SessionRepo{client: client}
}

func (s *SessionRepo) Get(ctx context.Context, key string) (*model.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(key))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionRepo) Put(ctx context.Context, key string, sess *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, SessionKey(key), data, ttl)
}

func (s *SessionRepo) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, SessionKey(key))
}
