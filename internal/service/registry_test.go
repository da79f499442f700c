package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"messly-backend/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestClient(userID int64, username string) *Client {
	return NewClient(nil, &model.User{ID: userID, Username: username})
}

func TestRegistry_Join_One_Room_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	client := newTestClient(1, "alice")

	// Given no room exists
	req.Empty(registry.PresentUsers(5))

	// When a user joins
	registry.Join(5, client)

	// Then the user is present and counted
	req.Equal(map[int64]struct{}{1: {}}, registry.PresentUsers(5))
	req.Equal(1, registry.ConnectionCount())
}

func TestRegistry_Presence_Is_A_Set_Across_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	tab1 := newTestClient(1, "alice")
	tab2 := newTestClient(1, "alice")

	// Given one user with two live connections to the same room
	registry.Join(5, tab1)
	registry.Join(5, tab2)
	req.Len(registry.PresentUsers(5), 1)

	// When the first connection leaves
	registry.Leave(5, tab1)

	// Then the user is still present through the second one
	req.Equal(map[int64]struct{}{1: {}}, registry.PresentUsers(5))

	// And only disappears with the last connection
	registry.Leave(5, tab2)
	req.Empty(registry.PresentUsers(5))
}

func TestRegistry_Last_Leave_Discards_The_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	client := newTestClient(1, "alice")

	// Given a room with a single connection
	registry.Join(5, client)

	// When it leaves
	registry.Leave(5, client)

	// Then the room entry is gone and queries still answer
	registry.mu.RLock()
	_, exists := registry.rooms[5]
	registry.mu.RUnlock()
	req.False(exists)
	req.Empty(registry.PresentUsers(5))
	req.Zero(registry.ConnectionCount())
}

func TestRegistry_Broadcast_Reaches_Every_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registry.Join(5, alice)
	registry.Join(5, bob)

	// When an envelope is broadcast to the room
	registry.Broadcast(5, model.NewMessageDeleted(42))

	// Then both connections receive the same frame
	for _, c := range []*Client{alice, bob} {
		var ev model.MessageDeletedEvent
		req.NoError(json.Unmarshal(<-c.Send, &ev))
		req.Equal(model.TypeMessageDeleted, ev.Type)
		req.EqualValues(42, ev.MessageID)
	}
}

func TestRegistry_Broadcast_Isolates_A_Full_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	slow := newTestClient(1, "alice")
	slow.Send = make(chan []byte) // no buffer: every send drops
	healthy := newTestClient(2, "bob")
	registry.Join(5, slow)
	registry.Join(5, healthy)

	// When broadcasting with one connection unable to accept frames
	registry.Broadcast(5, model.NewReadReceipts([]int64{7}))

	// Then the healthy connection still gets the frame
	req.NotEmpty(<-healthy.Send)

	// And the slow connection is still registered
	req.Len(registry.PresentUsers(5), 2)
}

func TestRegistry_Rooms_Are_Independent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registry.Join(5, alice)
	registry.Join(6, bob)

	// When one room gets traffic
	registry.Broadcast(5, model.NewMessageDeleted(1))

	// Then the other room sees nothing
	req.Empty(bob.Send)
	req.Len(alice.Send, 1)
	req.Equal(map[int64]struct{}{2: {}}, registry.PresentUsers(6))
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	client := newTestClient(1, "alice")
	registry.Join(5, client)
	registry.Leave(5, client)

	// A second leave for the same connection must not panic or corrupt state
	registry.Leave(5, client)
	req.Empty(registry.PresentUsers(5))
}

func TestRegistry_Concurrent_Churn_Keeps_Presence_Exact(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// One user holds a connection to room 6 for the whole run, so that room
	// never empties; room 5 repeatedly drains, gets discarded, and is
	// recreated by the next joiner.
	stayer := newTestClient(99, "stayer")
	registry.Join(6, stayer)

	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for u := 0; u < workers; u++ {
		userID := int64(u + 1)
		for _, chatID := range []int64{5, 6} {
			wg.Add(1)
			go func(userID, chatID int64) {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					client := newTestClient(userID, fmt.Sprintf("user-%d", userID))
					registry.Join(chatID, client)
					registry.Broadcast(chatID, model.NewMessageDeleted(int64(i)))
					registry.Leave(chatID, client)
				}
			}(userID, chatID)
		}
	}
	wg.Wait()

	// Every churned connection left: the drained room is gone, and presence
	// holds exactly the users with a live connection
	req.Empty(registry.PresentUsers(5))
	req.Equal(map[int64]struct{}{99: {}}, registry.PresentUsers(6))
	req.Equal(1, registry.ConnectionCount())
}

func TestRegistry_Join_Lands_In_A_Room_Being_Discarded(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	leaver := newTestClient(1, "alice")
	registry.Join(5, leaver)

	// Two goroutines race: one drains the room, the other joins it. Whether
	// the joiner hits the live room or a drained one mid-teardown, it must
	// end up registered in a usable room.
	joiner := newTestClient(2, "bob")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		registry.Leave(5, leaver)
	}()
	go func() {
		defer wg.Done()
		registry.Join(5, joiner)
	}()
	wg.Wait()

	req.Equal(map[int64]struct{}{2: {}}, registry.PresentUsers(5))

	registry.Broadcast(5, model.NewMessageDeleted(1))
	req.Len(joiner.Send, 1)
}

func TestRegistry_Shutdown_Closes_All_Clients(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	registry.Join(5, alice)
	registry.Join(6, bob)

	// When the registry shuts down
	registry.Shutdown()

	// Then every send channel is closed and all rooms are gone
	_, open := <-alice.Send
	req.False(open)
	_, open = <-bob.Send
	req.False(open)
	req.Zero(registry.ConnectionCount())
}
