package sqlxrepos

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eventyay/cfp/core"
)

// ActionLog keeps the audit trail in the action_log table. Writes are
// best-effort; a failed audit write never fails the audited operation.
type ActionLog struct {
	db     *sqlx.DB
	logger core.Logger
}

func NewActionLog(db *sqlx.DB, logger core.Logger) *ActionLog {
	return &ActionLog{db: db, logger: logger}
}

func (al *ActionLog) LogAction(action string, actorID int, data map[string]interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		al.logger.Warn(fmt.Sprintf("encoding action %s data: %v", action, err))
		raw = []byte("{}")
	}
	_, err = al.db.Exec(
		`INSERT INTO action_log (action, actor_id, data, created_at) VALUES ($1, $2, $3, $4)`,
		action, actorID, raw, time.Now().UTC(),
	)
	if err != nil {
		al.logger.Warn(fmt.Sprintf("recording action %s: %v", action, err))
	}
}
