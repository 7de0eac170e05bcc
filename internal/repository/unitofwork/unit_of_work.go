package unitofwork

import (
	"context"

	"knowledge-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RefreshRunRepository() contract.RefreshRunRepository
	ChatEventRepository() contract.ChatEventRepository
}
