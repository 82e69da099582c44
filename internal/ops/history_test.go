package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/errors"
)

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	withJournal(t, env)
	env.write(t, "course_a.json", courseJSON("", ""))

	first, err := env.syncer.Sync(context.Background(), SyncInput{})
	require.NoError(t, err)
	second, err := env.syncer.Sync(context.Background(), SyncInput{})
	require.NoError(t, err)

	out, err := History(env.syncer.journal, HistoryInput{})
	require.NoError(t, err)
	require.Len(t, out.Runs, 2)
	require.Nil(t, out.Events)
	ids := []string{out.Runs[0].ID, out.Runs[1].ID}
	require.ElementsMatch(t, []string{first.RunID, second.RunID}, ids)

	out, err = History(env.syncer.journal, HistoryInput{RunID: first.RunID})
	require.NoError(t, err)
	require.Len(t, out.Runs, 1)
	require.Equal(t, KindSync, out.Runs[0].Kind)
	require.Equal(t, db.StatusOK, out.Runs[0].Status)
	require.Len(t, out.Events, 1)
	require.Equal(t, "course_a.json", out.Events[0].Course)

	out, err = History(env.syncer.journal, HistoryInput{Limit: 1})
	require.NoError(t, err)
	require.Len(t, out.Runs, 1)
}

func TestHistory_Errors(t *testing.T) {
	env := newTestEnv(t)
	withJournal(t, env)

	_, err := History(env.syncer.journal, HistoryInput{RunID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = History(env.syncer.journal, HistoryInput{Limit: MaxHistoryLimit + 1})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = History(nil, HistoryInput{})
	require.True(t, errors.Is(err, errors.ErrConfig))
}
