package observability

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/arbor/pkg/domain"
)

func TestMetrics_Hooks(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics("arbor", registry)
	hooks := m.Hooks("landing")

	state := domain.NewState()
	hooks.OnCommit(&domain.Commit{Action: domain.ActionAdd, State: state, Duration: time.Microsecond})
	hooks.OnCommit(&domain.Commit{Action: domain.ActionAdd, State: state})
	hooks.OnReject(&domain.Rejection{Action: domain.ActionMove, Err: domain.ErrMoveToDescendant})
	hooks.OnReject(&domain.Rejection{Action: domain.ActionMove, Err: assert.AnError})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commitsTotal.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("move", "ERROR_MOVE_TO_DESCENDANT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("move", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.treeNodes.WithLabelValues("landing")))

	m.Forget("landing")
	assert.Equal(t, 0, testutil.CollectAndCount(m.treeNodes))
}

func TestMetrics_Exposition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics("builder", registry)
	m.Hooks("doc").OnCommit(&domain.Commit{Action: domain.ActionMove, State: domain.NewState()})

	expected := `
# HELP builder_commits_total Total number of committed editor actions
# TYPE builder_commits_total counter
builder_commits_total{action="move"} 1
`
	err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "builder_commits_total")
	assert.NoError(t, err)
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := AuditHooks(slog.New(slog.NewTextHandler(&buf, nil)))

	hooks.OnReject(&domain.Rejection{Action: domain.ActionAdd, NodeID: "x", Err: domain.ErrMoveOrphan})

	assert.Contains(t, buf.String(), "msg=reject")
	assert.Contains(t, buf.String(), "code=ERROR_MOVE_ORPHAN")
	assert.Contains(t, buf.String(), "node_id=x")
}
