package duplex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// testHub 最小化的房间服务端
type testHub struct {
	t        *testing.T
	server   *wallet.Wallet
	verifier *auth.Verifier
	reject   bool
	silent   bool

	mu    sync.Mutex
	rooms map[string][]*hubConn
}

type hubConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubConn) send(event string, v any) {
	f, _ := NewFrame(event, v)
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteJSON(f)
}

func newTestHub(t *testing.T) *testHub {
	w, err := wallet.Generate()
	require.NoError(t, err)
	return &testHub{
		t:        t,
		server:   w,
		verifier: auth.NewVerifier(wallet.NewAnyone(), nil, 0),
		rooms:    make(map[string][]*hubConn),
	}
}

func (h *testHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	hc := &hubConn{conn: conn}

	nonce, _ := auth.NewNonce()
	hc.send(EventAuthChallenge, Challenge{Nonce: nonce})

	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		return
	}
	var creds auth.Credentials
	_ = f.Decode(&creds)
	if _, err := h.verifier.Verify(r.Context(), &creds, []byte(nonce)); err != nil || h.reject {
		hc.send(EventAuthFailed, Failure{Description: "rejected"})
		return
	}
	reply, err := auth.NewSigner(h.server, nil).Sign(r.Context(), []byte(creds.Nonce))
	require.NoError(h.t, err)
	hc.send(EventAuthSuccess, reply)

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		switch f.Event {
		case EventJoinRoom:
			var req RoomRequest
			_ = f.Decode(&req)
			h.mu.Lock()
			h.rooms[req.RoomID] = append(h.rooms[req.RoomID], hc)
			h.mu.Unlock()
		case EventSendMessage:
			var req SendRequest
			_ = f.Decode(&req)
			if h.silent {
				continue
			}
			h.mu.Lock()
			members := append([]*hubConn(nil), h.rooms[req.RoomID]...)
			h.mu.Unlock()
			for _, m := range members {
				m.send(MessageEvent(req.RoomID), req.Message)
			}
			status := types.StatusSuccess
			if req.Message.Body == "fail" {
				status = types.StatusError
			}
			hc.send(AckEvent(req.RoomID), types.Ack{Status: status, MessageID: req.Message.MessageID})
		}
	}
}

func dial(t *testing.T, hub *testHub, opts ...Option) (*Channel, *wallet.Wallet, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	w, err := wallet.Generate()
	require.NoError(t, err)
	d := NewDialer(auth.NewSigner(w, nil), auth.NewVerifier(wallet.NewAnyone(), nil, 0), opts...)
	ch, err := d.DialChannel(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch, w, srv
}

func TestDial_MutualAuthentication(t *testing.T) {
	hub := newTestHub(t)
	ch, _, _ := dial(t, hub)
	assert.True(t, ch.Connected())
	assert.Equal(t, hub.server.IdentityKey(), ch.PeerIdentity())
}

func TestDial_Rejected(t *testing.T) {
	hub := newTestHub(t)
	hub.reject = true
	srv := httptest.NewServer(hub)
	defer srv.Close()

	w, err := wallet.Generate()
	require.NoError(t, err)
	d := NewDialer(auth.NewSigner(w, nil), auth.NewVerifier(wallet.NewAnyone(), nil, 0))
	_, err = d.Dial(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestEmit_AckAndRoomDelivery(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(t)
	ch, _, _ := dial(t, hub)

	room := RoomName("02abc", "inbox")
	sub := ch.Subscribe(room)
	require.NoError(t, ch.JoinRoom(ctx, room))
	// joinRoom 与 sendMessage 在同一连接上按序处理

	acks, err := ch.Emit(ctx, room, &types.WireMessage{MessageID: "m1", Body: "hello"})
	require.NoError(t, err)

	select {
	case ack := <-acks:
		require.NotNil(t, ack)
		assert.True(t, ack.OK())
		assert.Equal(t, "m1", ack.MessageID)
	case <-time.After(5 * time.Second):
		t.Fatal("no ack")
	}

	select {
	case msg := <-sub.C():
		assert.Equal(t, "m1", msg.MessageID)
		assert.Equal(t, types.WireBody("hello"), msg.Body)
	case <-time.After(5 * time.Second):
		t.Fatal("no room message")
	}
}

func TestEmit_FailureAck(t *testing.T) {
	ctx := context.Background()
	ch, _, _ := dial(t, newTestHub(t))

	acks, err := ch.Emit(ctx, "r-box", &types.WireMessage{MessageID: "m2", Body: "fail"})
	require.NoError(t, err)
	select {
	case ack := <-acks:
		require.NotNil(t, ack)
		assert.False(t, ack.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("no ack")
	}
}

func TestClose_ReleasesWaitersAndSubscriptions(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(t)
	hub.silent = true
	ch, _, _ := dial(t, hub)

	sub := ch.Subscribe("r-box")
	acks, err := ch.Emit(ctx, "r-box", &types.WireMessage{MessageID: "m3", Body: "x"})
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.False(t, ch.Connected())

	_, ok := <-acks
	assert.False(t, ok)
	_, ok = <-sub.C()
	assert.False(t, ok)

	_, err = ch.Emit(ctx, "r-box", &types.WireMessage{MessageID: "m4"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, ch.JoinRoom(ctx, "r-box"), ErrNotConnected)
}

func TestLeaveRoom_ClosesSubscription(t *testing.T) {
	ctx := context.Background()
	ch, _, _ := dial(t, newTestHub(t))

	sub := ch.Subscribe("r-box")
	require.NoError(t, ch.JoinRoom(ctx, "r-box"))
	require.NoError(t, ch.LeaveRoom(ctx, "r-box"))
	_, ok := <-sub.C()
	assert.False(t, ok)
	sub.Close()
}

func TestSubscription_DropsWhenFull(t *testing.T) {
	s := newSubscription("r", 1, nil)
	assert.True(t, s.push(&types.WireMessage{MessageID: "1"}))
	assert.False(t, s.push(&types.WireMessage{MessageID: "2"}))
	s.Close()
	s.Close()
	assert.False(t, s.push(&types.WireMessage{MessageID: "3"}))
}

func TestEndpoint(t *testing.T) {
	got, err := Endpoint("https://h.example", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://h.example/ws", got)

	got, err = Endpoint("ws://127.0.0.1:9000/base/", "ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9000/base/ws", got)

	_, err = Endpoint("ftp://h.example", "/ws")
	assert.Error(t, err)
}

func TestParseRoomEvent(t *testing.T) {
	room, isAck, ok := parseRoomEvent(AckEvent("k-inbox"))
	assert.True(t, ok)
	assert.True(t, isAck)
	assert.Equal(t, "k-inbox", room)

	room, isAck, ok = parseRoomEvent(MessageEvent("k-inbox"))
	assert.True(t, ok)
	assert.False(t, isAck)
	assert.Equal(t, "k-inbox", room)

	_, _, ok = parseRoomEvent("connect")
	assert.False(t, ok)
}
