package store

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/cipherchat/internal/codec"
	"github.com/thereayou/cipherchat/internal/models"
)

const (
	testRoom     = "12345"
	testPassword = "correct-horse"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	c, err := codec.NewRandom()
	require.NoError(t, err)
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.MinCost
	}
	return New(c, opts)
}

func newStoreWithRoom(t *testing.T, opts Options) *Store {
	t.Helper()
	s := newTestStore(t, opts)
	_, err := s.CreateRoom(testRoom, testPassword)
	require.NoError(t, err)
	return s
}

func appendMessage(t *testing.T, s *Store, user, body string) *models.Message {
	t.Helper()
	var m *models.Message
	err := s.Update(testRoom, func(r *Room) error {
		var err error
		m, err = r.AppendMessage(models.NewMessage{UserID: user, Body: body})
		return err
	})
	require.NoError(t, err)
	return m
}

func TestCreateRoomValidation(t *testing.T) {
	s := newTestStore(t, Options{})

	tests := []struct {
		name     string
		id       string
		password string
	}{
		{"short id", "1234", testPassword},
		{"long id", "123456", testPassword},
		{"letters", "12a45", testPassword},
		{"short password", testRoom, "short"},
		{"empty password", testRoom, ""},
		{"seven accented characters", testRoom, "ééééééé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRoom(tt.id, tt.password)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Empty(t, s.RoomIDs())
}

func TestPasswordLengthCountsCharacters(t *testing.T) {
	s := newTestStore(t, Options{})

	_, err := s.CreateRoom(testRoom, "éééééééé")
	require.NoError(t, err)
	require.NoError(t, s.View(testRoom, func(r *Room) error {
		assert.True(t, r.CheckPassword("éééééééé"))
		return nil
	}))
}

func TestLongPasswordsAreFullySignificant(t *testing.T) {
	s := newTestStore(t, Options{})
	long := strings.Repeat("a", 80)

	_, err := s.CreateRoom(testRoom, long)
	require.NoError(t, err)
	require.NoError(t, s.View(testRoom, func(r *Room) error {
		assert.True(t, r.CheckPassword(long))
		assert.False(t, r.CheckPassword(strings.Repeat("a", 72)+"bbbbbbbb"))
		assert.True(t, PasswordMatches(r.PasswordHash(), long))
		return nil
	}))
}

func TestRecreateResetsState(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	appendMessage(t, s, "alice", "hi")
	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		r.AddOrigin("10.0.0.1")
		r.AddOnline("alice")
		r.AppendFile(models.FileRecord{StoredFilename: "1_a.txt"})
		return nil
	}))

	var hooked []models.FileRecord
	var oldNamespace, hookedNamespace string
	require.NoError(t, s.View(testRoom, func(r *Room) error {
		oldNamespace = r.Namespace()
		return nil
	}))
	s.OnDelete(func(roomID, namespace string, files []models.FileRecord) {
		assert.Equal(t, testRoom, roomID)
		hookedNamespace = namespace
		hooked = files
	})

	replaced, err := s.CreateRoom(testRoom, "another-password")
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Len(t, hooked, 1)
	assert.Equal(t, oldNamespace, hookedNamespace)

	require.NoError(t, s.View(testRoom, func(r *Room) error {
		assert.NotEqual(t, oldNamespace, r.Namespace())
		assert.Zero(t, r.MessageCount())
		assert.False(t, r.HasOrigin("10.0.0.1"))
		assert.Zero(t, r.OnlineCount())
		assert.Empty(t, r.Files())
		assert.False(t, r.CheckPassword(testPassword))
		assert.True(t, r.CheckPassword("another-password"))
		return nil
	}))
}

func TestDeleteRoom(t *testing.T) {
	s := newStoreWithRoom(t, Options{})

	var deleted []string
	s.OnDelete(func(roomID, _ string, _ []models.FileRecord) { deleted = append(deleted, roomID) })

	require.NoError(t, s.DeleteRoom(testRoom))
	assert.False(t, s.Exists(testRoom))
	assert.Equal(t, []string{testRoom}, deleted)

	assert.ErrorIs(t, s.DeleteRoom(testRoom), models.ErrNotFound)
	err := s.Update(testRoom, func(*Room) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMessageIDsStrictlyIncrease(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	s := newStoreWithRoom(t, Options{Now: func() time.Time { return fixed }})

	a := appendMessage(t, s, "alice", "one")
	b := appendMessage(t, s, "alice", "two")
	c := appendMessage(t, s, "alice", "three")
	assert.Equal(t, "msg_1700000000000", a.ID)
	assert.Equal(t, "msg_1700000000001", b.ID)
	assert.Equal(t, "msg_1700000000002", c.ID)
}

func TestAppendEvictsOldest(t *testing.T) {
	s := newStoreWithRoom(t, Options{})

	var first, second *models.Message
	for i := 0; i < 101; i++ {
		m := appendMessage(t, s, "alice", fmt.Sprintf("message %d", i))
		switch i {
		case 0:
			first = m
		case 1:
			second = m
		}
	}

	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		assert.Equal(t, 100, r.MessageCount())
		views, _, err := r.ListMessages("alice", false)
		require.NoError(t, err)
		require.Len(t, views, 100)
		assert.Equal(t, second.ID, views[0].ID)
		for _, v := range views {
			assert.NotEqual(t, first.ID, v.ID)
		}
		return nil
	}))
}

func TestAppendSeedsSenderAndStamps(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	assert.Equal(t, []string{"alice"}, m.ReadBy)
	assert.NotZero(t, m.Timestamp)
	assert.NotEmpty(t, m.Date)
	assert.NotEmpty(t, m.Time)

	err := s.Update(testRoom, func(r *Room) error {
		_, err := r.AppendMessage(models.NewMessage{UserID: "alice", Body: "   "})
		return err
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListMessagesReadAnnotations(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	list := func(user string, mark bool) ([]models.MessageView, []string) {
		var views []models.MessageView
		var changed []string
		require.NoError(t, s.Update(testRoom, func(r *Room) error {
			var err error
			views, changed, err = r.ListMessages(user, mark)
			return err
		}))
		return views, changed
	}

	views, _ := list("alice", false)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsSent)
	assert.False(t, views[0].IsRead)
	assert.Equal(t, 1, views[0].ReadCount)

	views, changed := list("bob", true)
	require.Len(t, views, 1)
	assert.False(t, views[0].IsSent)
	assert.False(t, views[0].IsRead, "annotation reflects state before marking")
	assert.Equal(t, []string{m.ID}, changed)

	views, changed = list("bob", true)
	assert.True(t, views[0].IsRead)
	assert.Empty(t, changed)

	views, _ = list("alice", false)
	assert.True(t, views[0].IsRead)
	assert.Equal(t, 2, views[0].ReadCount)
	assert.ElementsMatch(t, []string{"alice", "bob"}, views[0].ReadBy)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	mark := func(ids ...string) []string {
		var changed []string
		require.NoError(t, s.Update(testRoom, func(r *Room) error {
			var err error
			changed, err = r.MarkRead(ids, "bob")
			return err
		}))
		return changed
	}

	assert.Equal(t, []string{m.ID}, mark(m.ID, "msg_unknown"))
	assert.Empty(t, mark(m.ID))
	assert.Empty(t, mark("msg_unknown"))
}

func TestDeleteMessageAuthorization(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	del := func(id, user string, holder bool) error {
		return s.Update(testRoom, func(r *Room) error {
			_, err := r.DeleteMessage(id, user, holder)
			return err
		})
	}

	assert.ErrorIs(t, del(m.ID, "bob", false), models.ErrForbidden)
	assert.ErrorIs(t, del("msg_missing", "alice", false), models.ErrNotFound)
	require.NoError(t, del(m.ID, "bob", true))
	assert.ErrorIs(t, del(m.ID, "alice", false), models.ErrNotFound)

	m2 := appendMessage(t, s, "alice", "again")
	require.NoError(t, del(m2.ID, "alice", false))
}

func TestReactions(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	react := func(id, user, symbol string) (models.ReactionSet, error) {
		var set models.ReactionSet
		err := s.Update(testRoom, func(r *Room) error {
			var err error
			set, err = r.AddReaction(id, user, symbol)
			return err
		})
		return set, err
	}

	set, err := react(m.ID, "bob", "👍")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSet{"👍": {"bob"}}, set)

	set, err = react(m.ID, "bob", "👍")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionSet{"👍": {"bob"}}, set)

	set, err = react(m.ID, "carol", "👍")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, set["👍"])

	_, err = react("msg_missing", "bob", "👍")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		_, err := r.DeleteMessage(m.ID, "alice", false)
		require.NoError(t, err)
		assert.Empty(t, r.Reactions(m.ID))
		return nil
	}))
}

func TestClearKeepsFilesAndPassword(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	m := appendMessage(t, s, "alice", "hello")

	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		_, err := r.AddReaction(m.ID, "bob", "🔥")
		require.NoError(t, err)
		r.AppendFile(models.FileRecord{StoredFilename: "1_a.txt"})
		r.AddOnline("alice")
		r.Clear()
		return nil
	}))

	require.NoError(t, s.View(testRoom, func(r *Room) error {
		assert.Zero(t, r.MessageCount())
		assert.Empty(t, r.Reactions(m.ID))
		assert.Len(t, r.Files(), 1)
		assert.Equal(t, 1, r.OnlineCount())
		assert.True(t, r.CheckPassword(testPassword))
		return nil
	}))
}

func TestSearch(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	appendMessage(t, s, "alice", "Hello World")
	appendMessage(t, s, "bob", "something else")
	appendMessage(t, s, "carol", "helloworld")

	search := func(q string) ([]models.Message, error) {
		var res []models.Message
		err := s.View(testRoom, func(r *Room) error {
			var err error
			res, err = r.Search(q)
			return err
		})
		return res, err
	}

	for _, q := range []string{"lo wo", " WORLD", "Hello "} {
		res, err := search(q)
		require.NoError(t, err)
		require.Len(t, res, 1, q)
		assert.Equal(t, "Hello World", res[0].Body)
	}

	res, err := search("hello")
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = search("xyz")
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = search("")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUndecodableMessageIsSkipped(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	bad := appendMessage(t, s, "alice", "first")
	good := appendMessage(t, s, "alice", "second")

	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		r.messages[0].blob = []byte("garbage")
		return nil
	}))

	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		views, changed, err := r.ListMessages("bob", true)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, good.ID, views[0].ID)
		assert.Equal(t, []string{good.ID}, changed)

		_, err = r.DeleteMessage(bad.ID, "alice", false)
		assert.ErrorIs(t, err, models.ErrCrypto)
		return nil
	}))
}

func TestTypingAndOnlineSets(t *testing.T) {
	s := newStoreWithRoom(t, Options{})
	require.NoError(t, s.Update(testRoom, func(r *Room) error {
		assert.True(t, r.SetTyping("bob", true))
		assert.False(t, r.SetTyping("bob", true))
		assert.True(t, r.SetTyping("alice", true))
		assert.Equal(t, []string{"alice", "bob"}, r.TypingUsers())
		assert.True(t, r.SetTyping("bob", false))
		assert.False(t, r.SetTyping("bob", false))

		assert.True(t, r.AddOnline("alice"))
		assert.False(t, r.AddOnline("alice"))
		assert.True(t, r.RemoveOnline("alice"))
		assert.False(t, r.RemoveOnline("alice"))
		assert.Zero(t, r.OnlineCount())
		return nil
	}))
}

func TestConcurrentAppendsAcrossRooms(t *testing.T) {
	s := newTestStore(t, Options{})
	rooms := []string{"11111", "22222", "33333"}
	for _, id := range rooms {
		_, err := s.CreateRoom(id, testPassword)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, id := range rooms {
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(id string, w int) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					err := s.Update(id, func(r *Room) error {
						_, err := r.AppendMessage(models.NewMessage{UserID: fmt.Sprintf("u%d", w), Body: "x"})
						return err
					})
					assert.NoError(t, err)
				}
			}(id, w)
		}
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range rooms {
		require.NoError(t, s.Update(id, func(r *Room) error {
			views, _, err := r.ListMessages("reader", false)
			require.NoError(t, err)
			assert.Len(t, views, 80)
			for i, v := range views {
				assert.False(t, seen[v.ID], "duplicate id %s", v.ID)
				seen[v.ID] = true
				if i > 0 {
					assert.Less(t, views[i-1].ID, v.ID)
				}
			}
			return nil
		}))
	}
	assert.Equal(t, rooms, s.RoomIDs())
}
