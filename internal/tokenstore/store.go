package tokenstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Fixed keys the credential pair is persisted under
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Pair is the persisted credential pair; a nil field means absent
type Pair struct {
	AccessToken  *string `json:"access_token"`
	RefreshToken *string `json:"refresh_token"`
}

// Store reads and writes the credential pair.
// Presence of the access token is the only thing the rest of the app checks.
type Store struct {
	kv KV
}

// New creates a token store over kv
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Save persists both tokens, overwriting any previous values. When the
// refresh token cannot be written the access token is removed again, so a
// failed save never leaves the device authenticated.
func (s *Store) Save(ctx context.Context, access, refresh string) error {
	if err := s.kv.Set(ctx, AccessTokenKey, access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := s.kv.Set(ctx, RefreshTokenKey, refresh); err != nil {
		if derr := s.kv.Delete(ctx, AccessTokenKey); derr != nil {
			log.Ctx(ctx).Error().Err(derr).Msg("failed to roll back access token")
		}
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// Tokens returns the persisted pair. Read failures are logged and reported as absent.
func (s *Store) Tokens(ctx context.Context) Pair {
	return Pair{
		AccessToken:  s.read(ctx, AccessTokenKey),
		RefreshToken: s.read(ctx, RefreshTokenKey),
	}
}

// AccessToken returns the access token or "" when absent
func (s *Store) AccessToken(ctx context.Context) string {
	if v := s.read(ctx, AccessTokenKey); v != nil {
		return *v
	}
	return ""
}

// Clear removes both tokens. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) *string {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("token read failed, treating as absent")
		return nil
	}
	if !ok {
		return nil
	}
	return &v
}
