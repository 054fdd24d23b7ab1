package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/db"
	"golang.org/x/oauth2"
)

// CalendarTokenRepository keeps the OAuth2 tokens of experts who connected
// an external calendar.
type CalendarTokenRepository struct {
	pool db.Querier
}

func NewCalendarTokenRepository(pool db.Querier) *CalendarTokenRepository {
	return &CalendarTokenRepository{pool: pool}
}

// Token returns the stored token for expertID, or (nil, nil) when the expert
// has no calendar connected.
func (r *CalendarTokenRepository) Token(ctx context.Context, expertID string) (*oauth2.Token, error) {
	tok := &oauth2.Token{}
	var expiry *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT access_token, COALESCE(refresh_token, ''), token_type, expires_at
		FROM expert_calendar_tokens
		WHERE expert_id = $1
	`, expertID).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if expiry != nil {
		tok.Expiry = *expiry
	}
	return tok, nil
}

// SaveToken upserts tok, keeping the previous refresh token when the
// provider did not return a new one.
func (r *CalendarTokenRepository) SaveToken(ctx context.Context, expertID string, tok *oauth2.Token) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry.UTC()
		expiry = &e
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO expert_calendar_tokens (expert_id, access_token, refresh_token, token_type, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (expert_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, expert_calendar_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, expertID, tok.AccessToken, tok.RefreshToken, tok.Type(), expiry)
	return err
}
