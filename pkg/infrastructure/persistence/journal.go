package persistence

import (
	"context"
	"fmt"

	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
)

// OpenJournal returns the journal selected by cfg.Backend
func OpenJournal(ctx context.Context, cfg config.JournalConfig) (repositories.Journal, error) {
	switch cfg.Backend {
	case config.JournalNone, "":
		return repositories.NopJournal{}, nil
	case config.JournalPebble:
		return OpenPebbleJournal(cfg.PebbleDir)
	case config.JournalPostgres:
		return OpenPostgresJournal(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
