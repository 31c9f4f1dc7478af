package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mskgit8695/chatapp-frontend/internal/api"
	"github.com/mskgit8695/chatapp-frontend/internal/config"
	"github.com/mskgit8695/chatapp-frontend/internal/model"
	"github.com/mskgit8695/chatapp-frontend/internal/push"
	"github.com/mskgit8695/chatapp-frontend/internal/state"
)

// startServer runs a devserver seeded with alice and bob.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := New(config.Config{AllowedOrigins: []string{"http://localhost:3000"}}, zap.NewNop(),
		model.User{ID: "alice", Name: "Alice", Email: "alice@example.com"},
		model.User{ID: "bob", Name: "Bob", Email: "bob@example.com"},
	)
	go h.HandleBroadcast()
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(func() {
		srv.Close()
		close(h.Broadcast)
	})
	return srv
}

func newClient(srv *httptest.Server, userID string) *api.Client {
	return api.New(srv.URL, srv.URL, func() (string, error) { return userID, nil }, nil)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestGetMe(t *testing.T) {
	srv := startServer(t)

	user, err := newClient(srv, "alice").Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.ID != "alice" || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestGetMe_UnknownTokenRejected(t *testing.T) {
	srv := startServer(t)

	_, err := newClient(srv, "mallory").Me(context.Background())
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	var reqErr *api.RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401", err)
	}
}

func TestCreateChat_ReusesExistingPair(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	alice := newClient(srv, "alice")

	first, err := alice.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	// the same pair from the other side resolves to the same chat
	second, err := newClient(srv, "bob").CreateChat(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("CreateChat (bob): %v", err)
	}
	if first != second {
		t.Errorf("chat ids differ: %q vs %q", first, second)
	}
}

func TestSendMessage_MirroredToPushClients(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	alice := newClient(srv, "alice")

	chatID, err := alice.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	sent, err := alice.SendMessage(ctx, chatID, "hello bob", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sent.ID == "" || sent.Sender != "alice" {
		t.Errorf("confirmed message = %+v", sent)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env push.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read push frame: %v", err)
	}
	if env.Event != model.EventNewMessage {
		t.Fatalf("event = %q, want newMessage", env.Event)
	}
}

func TestFetchMessages_MarksSeenAndEmitsReceipt(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	alice := newClient(srv, "alice")
	bob := newClient(srv, "bob")

	chatID, err := alice.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := alice.SendMessage(ctx, chatID, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	// bob reading the history marks alice's message seen
	msgs, peer, err := bob.FetchMessages(ctx, chatID)
	if err != nil {
		t.Fatalf("FetchMessages: %v", err)
	}
	if len(msgs) != 1 || !msgs[0].Seen {
		t.Errorf("messages = %+v, want one seen message", msgs)
	}
	if peer.ID != "alice" {
		t.Errorf("peer = %+v, want alice", peer)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env push.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read push frame: %v", err)
	}
	if env.Event != model.EventMessageSeen {
		t.Fatalf("event = %q, want messageSeen", env.Event)
	}

	// a second fetch has nothing new to mark
	if _, _, err := bob.FetchMessages(ctx, chatID); err != nil {
		t.Fatalf("second FetchMessages: %v", err)
	}
	entries, err := bob.FetchChats(ctx)
	if err != nil {
		t.Fatalf("FetchChats: %v", err)
	}
	if len(entries) != 1 || entries[0].Chat.UnseenCount != 0 {
		t.Errorf("entries = %+v, want one chat with 0 unseen", entries)
	}
}

// TestEngineAgainstDevServer wires the real engine, api client and push
// channel together: alice talks over plain HTTP while bob's engine keeps
// its local view in sync from the push channel.
func TestEngineAgainstDevServer(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	alice := newClient(srv, "alice")
	bobAPI := newClient(srv, "bob")

	chatID, err := alice.CreateChat(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	bobUser, err := bobAPI.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	channel, err := push.Dial(wsURL(srv), "bob", nil)
	if err != nil {
		t.Fatalf("push.Dial: %v", err)
	}
	defer channel.Close()

	engine := state.New(bobUser, bobAPI, channel, nil, nil)
	defer engine.Close()
	go channel.Run(engine)

	if err := engine.RefreshChats(ctx); err != nil {
		t.Fatalf("RefreshChats: %v", err)
	}
	if err := engine.SelectChat(ctx, chatID); err != nil {
		t.Fatalf("SelectChat: %v", err)
	}

	if _, err := alice.SendMessage(ctx, chatID, "hello bob", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	eventually(t, func() bool {
		msgs := engine.Messages()
		return len(msgs) == 1 && msgs[0].Text == "hello bob"
	}, "bob's timeline never received alice's message")

	// alice starts composing on her own push connection
	aliceChannel, err := push.Dial(wsURL(srv), "alice", nil)
	if err != nil {
		t.Fatalf("push.Dial (alice): %v", err)
	}
	defer aliceChannel.Close()
	if err := aliceChannel.Typing(chatID, "alice"); err != nil {
		t.Fatalf("Typing: %v", err)
	}
	eventually(t, func() bool { return engine.PeerTyping() },
		"bob never saw alice typing")

	if err := aliceChannel.StopTyping(chatID, "alice"); err != nil {
		t.Fatalf("StopTyping: %v", err)
	}
	eventually(t, func() bool { return !engine.PeerTyping() },
		"typing indicator never cleared")

	// bob answers through the engine; the mirrored push delivery must not
	// duplicate the confirmed insert
	if err := engine.SendMessage(ctx, "hi alice", nil); err != nil {
		t.Fatalf("engine.SendMessage: %v", err)
	}
	time.Sleep(100 * time.Millisecond) // let the mirrored frame arrive
	if got := len(engine.Messages()); got != 2 {
		t.Errorf("timeline len = %d, want 2", got)
	}
	if front := engine.Chats()[0]; front.Chat.UnseenCount != 0 {
		t.Errorf("unseen = %d, want 0 while selected", front.Chat.UnseenCount)
	}
}
