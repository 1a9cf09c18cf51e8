package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zorenko/aircap/internal/core/domain"
)

type memRepo struct {
	entries []domain.AuditLog
	saveErr error
}

func (m *memRepo) SaveAuditLog(ctx context.Context, log domain.AuditLog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = append(m.entries, log)
	return nil
}

func (m *memRepo) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func TestLog_RecordsEntry(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	err := svc.Log(context.Background(), domain.ActionCaptureStart, "AA:11:22:33:44:55", "channel 6")
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, domain.ActionCaptureStart, entry.Action)
	assert.Equal(t, "AA:11:22:33:44:55", entry.Target)
	assert.Equal(t, "operator", entry.Actor)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestLog_ActorFromContext(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	ctx := WithActor(context.Background(), "alice")
	require.NoError(t, svc.Log(ctx, domain.ActionScan, "wlan0mon", ""))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, "alice", repo.entries[0].Actor)
}

func TestLog_InvalidAction(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)

	err := svc.Log(context.Background(), domain.AuditAction("MADE_UP"), "x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
	assert.Empty(t, repo.entries)
}

func TestLog_PersistenceFailureSurfaces(t *testing.T) {
	repo := &memRepo{saveErr: fmt.Errorf("disk full")}
	svc := NewService(repo, nil)

	err := svc.Log(context.Background(), domain.ActionInfo, "x", "")
	assert.Error(t, err)
}

func TestGetLogs(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Log(context.Background(), domain.ActionInfo, "t", ""))
	}

	logs, err := svc.GetLogs(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
