package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/availability"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// TokenStore loads and persists per-expert OAuth2 tokens.
type TokenStore interface {
	// Token returns (nil, nil) when the expert has no calendar connected.
	Token(ctx context.Context, expertID string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, expertID string, tok *oauth2.Token) error
}

type GoogleConfig struct {
	// OAuth refreshes expired tokens. When nil, stored tokens are used as-is.
	OAuth *oauth2.Config
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
	// HTTPClient is the base transport for API and token calls.
	HTTPClient *http.Client
	CalendarID string
	Timeout    time.Duration
}

// GoogleSource reads busy time from Google Calendar's free/busy API.
type GoogleSource struct {
	cfg    GoogleConfig
	tokens TokenStore
	logger *slog.Logger
}

func NewGoogleSource(cfg GoogleConfig, tokens TokenStore, logger *slog.Logger) *GoogleSource {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &GoogleSource{cfg: cfg, tokens: tokens, logger: logger}
}

func (g *GoogleSource) Busy(ctx context.Context, expertID string, from, until time.Time) ([]availability.Interval, error) {
	tok, err := g.tokens.Token(ctx, expertID)
	if err != nil {
		return nil, fmt.Errorf("load calendar token: %w", err)
	}
	if tok == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	if g.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.cfg.HTTPClient)
	}

	var ts oauth2.TokenSource = oauth2.StaticTokenSource(tok)
	if g.cfg.OAuth != nil {
		ts = g.cfg.OAuth.TokenSource(ctx, tok)
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}

	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: until.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: g.cfg.CalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	g.persistRefreshed(ctx, expertID, tok, ts)

	cal, ok := resp.Calendars[g.cfg.CalendarID]
	if !ok {
		return nil, fmt.Errorf("freebusy response missing calendar %q", g.cfg.CalendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy calendar %q: %s", g.cfg.CalendarID, cal.Errors[0].Reason)
	}
	out := make([]availability.Interval, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("busy start %q: %w", p.Start, err)
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("busy end %q: %w", p.End, err)
		}
		out = append(out, availability.Interval{Start: start, End: end})
	}
	return out, nil
}

func (g *GoogleSource) persistRefreshed(ctx context.Context, expertID string, old *oauth2.Token, ts oauth2.TokenSource) {
	cur, err := ts.Token()
	if err != nil || cur.AccessToken == old.AccessToken {
		return
	}
	if err := g.tokens.SaveToken(ctx, expertID, cur); err != nil {
		g.logger.Warn("persist refreshed calendar token failed", "expert_id", expertID, "err", err)
	}
}
