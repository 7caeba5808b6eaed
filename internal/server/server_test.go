package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/messaging"
	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/registry"
	"github.com/dep2p/go-msgbox/internal/server/store"
	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/internal/transport/rpc"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/types"
)

type testBed struct {
	srv *Server
	url string
}

func newTestBed(t *testing.T, opts ...Option) *testBed {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	opts = append([]Option{
		WithOverlay(overlay.NewHandler(overlay.NewLedger())),
		WithMetrics(metrics.NewHost(reg), reg),
	}, opts...)
	srv, err := New(w, store.NewMemory(), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testBed{srv: srv, url: ts.URL}
}

type user struct {
	wallet *wallet.Wallet
	signer *auth.Signer
	rpc    *rpc.Client
	client *messaging.Client
}

func (u *user) id() string { return u.wallet.IdentityKey() }

func (b *testBed) user(t *testing.T) *user {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	signer := auth.NewSigner(w, nil)
	transport := rpc.New(signer, rpc.WithMaxRetries(0))
	dialer := duplex.NewDialer(signer, auth.NewVerifier(wallet.NewAnyone(), nil, 0))
	ov := overlay.NewClient(b.url+"/overlay", nil)
	client := messaging.New(w, registry.New(w, ov, ov, registry.WithDefaultHost(b.url)), transport, dialer,
		messaging.WithDefaultHost(b.url), messaging.WithLiveAckTimeout(2*time.Second))
	t.Cleanup(func() { _ = client.Disconnect() })
	return &user{wallet: w, signer: signer, rpc: transport, client: client}
}

func (b *testBed) rawChannel(t *testing.T, u *user) *duplex.Channel {
	t.Helper()
	d := duplex.NewDialer(u.signer, auth.NewVerifier(wallet.NewAnyone(), nil, 0))
	ch, err := d.DialChannel(context.Background(), b.url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

// TestEndToEnd 测试经真实传输的发送、列出与确认
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice, bob := bed.user(t), bed.user(t)
	require.NoError(t, bob.client.Init(ctx, ""))

	res, err := alice.client.Send(ctx, &types.OutboundMessage{
		Recipient: bob.id(), Box: "inbox", Body: types.TextBody("over the wire"),
	})
	require.NoError(t, err)

	msgs, err := bob.client.List(ctx, "inbox")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, res.MessageID, msgs[0].ID)
	assert.Equal(t, "over the wire", msgs[0].Body.Text())
	assert.Equal(t, alice.id(), msgs[0].Sender)
	require.NotNil(t, msgs[0].CreatedAt)

	// 非接收方看不到
	others, err := alice.client.List(ctx, "inbox")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, bob.client.Acknowledge(ctx, []string{res.MessageID}))
	msgs, err = bob.client.List(ctx, "inbox")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	err = bob.client.Acknowledge(ctx, []string{res.MessageID})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// TestSend_SenderFromAuthentication 测试发送方取自认证身份
func TestSend_SenderFromAuthentication(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice := bed.user(t)

	var resp types.SendMessageResponse
	err := alice.rpc.Post(ctx, bed.url, types.PathSendMessage, &types.SendMessageRequest{Message: &types.WireMessage{
		Sender: "forged", Recipient: alice.id(), MessageBox: "b", Body: "x",
	}}, &resp)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.MessageID, "未指定 ID 时由主机分配")

	var list types.ListMessagesResponse
	require.NoError(t, alice.rpc.Post(ctx, bed.url, types.PathListMessages, &types.ListMessagesRequest{MessageBox: "b"}, &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, alice.id(), list.Messages[0].Sender)
	assert.Equal(t, resp.MessageID, list.Messages[0].MessageID)

	// 重复 ID 幂等
	dup := &types.SendMessageRequest{Message: &types.WireMessage{
		MessageID: resp.MessageID, Recipient: alice.id(), MessageBox: "b", Body: "y",
	}}
	require.NoError(t, alice.rpc.Post(ctx, bed.url, types.PathSendMessage, dup, &resp))
	require.NoError(t, alice.rpc.Post(ctx, bed.url, types.PathListMessages, &types.ListMessagesRequest{MessageBox: "b"}, &list))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, types.WireBody("x"), list.Messages[0].Body)
}

// TestValidation 测试请求校验
func TestValidation(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice := bed.user(t)

	var resp types.StatusResponse
	err := alice.rpc.Post(ctx, bed.url, types.PathSendMessage, &types.SendMessageRequest{Message: &types.WireMessage{
		Recipient: alice.id(), MessageBox: "b",
	}}, &resp)
	require.Error(t, err)
	var he *types.HostError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, types.CodeProtocol, he.Code)

	err = alice.rpc.Post(ctx, bed.url, types.PathListMessages, &types.ListMessagesRequest{}, &resp)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	err = alice.rpc.Post(ctx, bed.url, types.PathAcknowledgeMessage, &types.AcknowledgeRequest{}, &resp)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	err = alice.rpc.Post(ctx, bed.url, types.PathAcknowledgeMessage, &types.AcknowledgeRequest{MessageIDs: []string{"unknown-id"}}, &resp)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, types.CodeNotFound, he.Code)
	assert.Contains(t, he.Error(), "not found")
}

// TestUnauthenticated 测试缺少或重放的认证被拒绝
func TestUnauthenticated(t *testing.T) {
	bed := newTestBed(t)
	alice := bed.user(t)
	body := []byte(`{"messageBox":"b"}`)

	resp, err := http.Post(bed.url+types.PathListMessages, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var st types.StatusResponse
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, types.StatusError, st.Status)
	assert.Equal(t, codeUnauthorized, st.Code)

	creds, err := alice.signer.Sign(context.Background(), body)
	require.NoError(t, err)
	do := func(payload []byte) int {
		req, err := http.NewRequest(http.MethodPost, bed.url+types.PathListMessages, bytes.NewReader(payload))
		require.NoError(t, err)
		creds.Apply(req.Header)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	// 篡改请求体
	assert.Equal(t, http.StatusUnauthorized, do([]byte(`{"messageBox":"c"}`)))
	assert.Equal(t, http.StatusOK, do(body))
	// 重放
	assert.Equal(t, http.StatusUnauthorized, do(body))
}

// TestRateLimit 测试每身份限流
func TestRateLimit(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t, WithRateLimit(0.001, 1))
	alice, bob := bed.user(t), bed.user(t)

	req := &types.ListMessagesRequest{MessageBox: "b"}
	var resp types.ListMessagesResponse
	require.NoError(t, alice.rpc.Post(ctx, bed.url, types.PathListMessages, req, &resp))

	err := alice.rpc.Post(ctx, bed.url, types.PathListMessages, req, &resp)
	var he *types.HostError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.Status)

	// 其他身份不受影响
	require.NoError(t, bob.rpc.Post(ctx, bed.url, types.PathListMessages, req, &resp))
}

// TestLive 测试实时发送、推送与房间隔离
func TestLive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bed := newTestBed(t)
	alice, bob, eve := bed.user(t), bed.user(t), bed.user(t)

	received := make(chan *types.Message, 2)
	require.NoError(t, bob.client.Listen(ctx, "chat", func(m *types.Message) { received <- m }))

	// eve 加入 bob 的房间但不应收到推送
	room := duplex.RoomName(bob.id(), "chat")
	spy := bed.rawChannel(t, eve)
	require.NoError(t, spy.JoinRoom(ctx, room))
	spied := spy.Subscribe(room)

	res, err := alice.client.SendLive(ctx, &types.OutboundMessage{
		Recipient: bob.id(), Box: "chat", Body: types.TextBody("hi bob"),
	})
	require.NoError(t, err)

	select {
	case m := <-received:
		assert.Equal(t, "hi bob", m.Body.Text())
		assert.Equal(t, res.MessageID, m.ID)
		assert.Equal(t, alice.id(), m.Sender)
	case <-time.After(3 * time.Second):
		t.Fatal("未收到实时消息")
	}

	select {
	case m := <-spied.C():
		t.Fatalf("非房间所属身份收到消息: %v", m)
	case <-time.After(100 * time.Millisecond):
	}

	// 实时发送的消息同样被保存
	msgs, err := bob.client.List(ctx, "chat")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, res.MessageID, msgs[0].ID)
}

// TestLive_RoomMismatch 测试房间与接收方不一致时否定确认
func TestLive_RoomMismatch(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice, bob := bed.user(t), bed.user(t)

	ch := bed.rawChannel(t, alice)
	room := duplex.RoomName(bob.id(), "inbox")
	require.NoError(t, ch.JoinRoom(ctx, room))
	acks, err := ch.Emit(ctx, room, &types.WireMessage{
		MessageID: "m1", Recipient: alice.id(), MessageBox: "inbox", Body: "x",
	})
	require.NoError(t, err)

	select {
	case ack := <-acks:
		require.NotNil(t, ack)
		assert.False(t, ack.OK())
	case <-time.After(3 * time.Second):
		t.Fatal("未收到确认")
	}
}

// TestOverlayMount 测试挂载的叠加网络可用于广告
func TestOverlayMount(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice := bed.user(t)

	require.NoError(t, alice.client.Init(ctx, ""))
	ov := overlay.NewClient(bed.url+"/overlay", nil)
	w, err := wallet.Generate()
	require.NoError(t, err)
	reg := registry.New(w, ov, ov)
	assert.Equal(t, bed.url, reg.ResolveHost(ctx, alice.id()))
}

// TestMetricsEndpoint 测试 /metrics
func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	alice := bed.user(t)
	var list types.ListMessagesResponse
	require.NoError(t, alice.rpc.Post(ctx, bed.url, types.PathListMessages, &types.ListMessagesRequest{MessageBox: "b"}, &list))

	resp, err := http.Get(bed.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msgbox_host_requests_total")
}

// TestStartStop 测试监听与停止
func TestStartStop(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)
	srv, err := New(w, store.NewMemory(), WithAddr("127.0.0.1:0"))
	require.NoError(t, err)
	assert.Equal(t, w.IdentityKey(), srv.IdentityKey())

	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrAlreadyStarted)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Post("http://"+srv.Addr()+types.PathListMessages, "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, srv.Stop())
	assert.ErrorIs(t, srv.Stop(), ErrNotStarted)
}
