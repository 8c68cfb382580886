package observability

import (
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// AuditHooks logs every commit and rejection at info level.
// The editor's own logger only reports them at debug.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(c *domain.Commit) {
			logger.Info("commit",
				"action", c.Action,
				"nodes", c.NodeIDs,
				"duration", c.Duration,
			)
		},
		OnReject: func(r *domain.Rejection) {
			logger.Info("reject",
				"action", r.Action,
				"node_id", r.NodeID,
				"code", r.Code(),
			)
		},
	}
}
