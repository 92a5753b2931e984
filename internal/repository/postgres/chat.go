package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/domain/repositories"
)

// PostgresChatRepository implements the ChatRepository interface. Chats
// are owned by the conversation service; this side only checks existence
// before recording a weak reference on a version row.
type PostgresChatRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChatRepository creates a new chat repository
func NewChatRepository(config *RepositoryConfig) repositories.ChatRepository {
	return &PostgresChatRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Exists reports whether a chat row with the given ID exists.
func (r *PostgresChatRepository) Exists(ctx context.Context, chatID string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)
	`, r.tables.Chats)

	var exists bool
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, chatID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check chat existence: %w", err)
	}

	return exists, nil
}
