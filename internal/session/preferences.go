package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// PreferencesKeyPrefix namespaces stored preferences.
const PreferencesKeyPrefix = "git_journal_"

// Preferences prefill the journal selection and new-entry template.
type Preferences struct {
	Owner            string `json:"owner"`
	Repo             string `json:"repo"`
	DiscussionNumber int    `json:"discussionNumber"`
	Template         string `json:"template"`
}

func (s *RedisStore) prefKey(login string) string {
	return s.prefPrefix + login
}

// LoadPreferences returns the stored preferences of login, or zero values.
func (s *RedisStore) LoadPreferences(ctx context.Context, login string) (Preferences, error) {
	fields, err := s.client.HGetAll(ctx, s.prefKey(login)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	prefs := Preferences{
		Owner:    fields["owner"],
		Repo:     fields["repo"],
		Template: fields["template"],
	}
	if raw := fields["discussionNumber"]; raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return Preferences{}, fmt.Errorf("load preferences: discussion number %q: %w", raw, err)
		}
		prefs.DiscussionNumber = number
	}
	return prefs, nil
}

// SavePreferences replaces the stored preferences of login.
func (s *RedisStore) SavePreferences(ctx context.Context, login string, prefs Preferences) error {
	key := s.prefKey(login)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"owner", prefs.Owner,
			"repo", prefs.Repo,
			"discussionNumber", strconv.Itoa(prefs.DiscussionNumber),
			"template", prefs.Template,
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
