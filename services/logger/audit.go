package logsvc

import (
	"fmt"

	"github.com/eventyay/cfp/core"
)

// ActionLog records audit actions through the application logger. Used
// where no database is around to keep a real trail.
type ActionLog struct {
	logger core.Logger
}

func NewActionLog(logger core.Logger) *ActionLog {
	return &ActionLog{logger: logger}
}

func (al *ActionLog) LogAction(action string, actorID int, data map[string]interface{}) {
	al.logger.Info(fmt.Sprintf("action %s by user %d", action, actorID), data)
}
