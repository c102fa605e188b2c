package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Notifier извещает согласующих о версии, ожидающей решения.
// Ошибки доставки не должны откатывать загрузку: вызывающий логирует и идёт дальше.
type Notifier interface {
	VersionPending(ctx context.Context, versionID uuid.UUID, itemKey string, recipientIDs []int64) error
}

// LogNotifier пишет уведомления в лог. Заглушка до появления
// почтового или push-канала.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) VersionPending(_ context.Context, versionID uuid.UUID, itemKey string, recipientIDs []int64) error {
	log.Printf("[Notify] Version %s of %s is pending approval, notifying %d users", versionID, itemKey, len(recipientIDs))
	return nil
}
