package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/eventdocs/internal/catalog"
	"github.com/roach88/eventdocs/internal/store"
)

// session is one connected gateway plus the logger commands share.
type session struct {
	gateway *store.Gateway
	logger  *slog.Logger
}

// openSession connects to the store named by the credentials file.
// The caller closes the session.
func openSession(ctx context.Context, opts *RootOptions, logger *slog.Logger) (*session, error) {
	g := store.NewGateway()
	logger.Debug("connecting", "credentials", opts.Credentials)
	if err := g.Connect(ctx, opts.Credentials); err != nil {
		return nil, err
	}
	logger.Debug("connected", "database", g.Database())
	return &session{gateway: g, logger: logger}, nil
}

func (s *session) Close() error {
	return s.gateway.Close()
}

// repository returns the event repository over this session.
func (s *session) repository(opts *RootOptions) *catalog.Repository {
	repoOpts := []catalog.Option{catalog.WithLogger(s.logger)}
	if opts.StampMetadata {
		repoOpts = append(repoOpts, catalog.WithMetadata(opts.Author))
	}
	return catalog.New(s.gateway, repoOpts...)
}
