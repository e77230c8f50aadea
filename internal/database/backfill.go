package database

import (
	"context"
	"time"

	"github.com/toolvault/toolvault/internal/observability"

	"gorm.io/gorm"
)

type BackfillReport struct {
	UserRoleLinks int64 `json:"user_role_links"`
	ToolTypeLinks int64 `json:"tool_type_links"`
}

// BackfillLegacyColumns copies the legacy single-reference columns into the
// many-to-many join tables wherever the link row is missing. Rerunning is a
// noop; once every legacy reference is mirrored, the max tie-break in the
// type counts converges on the join-table count.
func BackfillLegacyColumns(db *gorm.DB) (*BackfillReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "backfill", time.Since(start))
	}()

	report := &BackfillReport{}
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			INSERT INTO user_roles (user_id, role_id)
			SELECT u.id, u.role_id FROM users u
			WHERE u.role_id IS NOT NULL
			  AND NOT EXISTS (
				SELECT 1 FROM user_roles ur
				WHERE ur.user_id = u.id AND ur.role_id = u.role_id
			  )`)
		if res.Error != nil {
			return res.Error
		}
		report.UserRoleLinks = res.RowsAffected

		res = tx.Exec(`
			INSERT INTO ai_tool_type_assignments (ai_tool_id, ai_tool_type_id)
			SELECT t.id, t.ai_tool_type_id FROM ai_tools t
			WHERE t.ai_tool_type_id <> 0
			  AND NOT EXISTS (
				SELECT 1 FROM ai_tool_type_assignments a
				WHERE a.ai_tool_id = t.id AND a.ai_tool_type_id = t.ai_tool_type_id
			  )`)
		if res.Error != nil {
			return res.Error
		}
		report.ToolTypeLinks = res.RowsAffected
		return nil
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "backfill", "error")
		return nil, err
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "backfill", "success")
	return report, nil
}
