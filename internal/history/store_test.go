package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_AppendListClear(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()

	s.Append("sess-1", "user", "hello")
	s.Append("sess-1", "assistant", "hi there")
	s.Append("sess-2", "user", "other session")

	msgs := s.List("sess-1")
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, "assistant", msgs[1].Role)

	s.Clear("sess-1")
	require.Empty(t, s.List("sess-1"))
	require.Len(t, s.List("sess-2"), 1)
}

func TestStore_ListSkipsUnreadableRows(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()
	require.NotNil(t, s.db)

	s.Append("sess", "user", "good row")
	// A created_at value no time.Time can be scanned from.
	_, err := s.db.Exec(`INSERT INTO messages (session_id, role, content, created_at) VALUES ('sess', 'user', 'bad row', 'not-a-timestamp');`)
	require.NoError(t, err)

	msgs := s.List("sess")
	require.Len(t, msgs, 1)
	require.Equal(t, "good row", msgs[0].Content)
}

func TestStore_InMemoryFallback(t *testing.T) {
	// Point the store at an unopenable path: a directory.
	s := NewStore(t.TempDir())
	defer s.Close()

	s.Append("sess", "user", "hello")
	msgs := s.List("sess")
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Content)

	s.Clear("sess")
	require.Empty(t, s.List("sess"))
}
