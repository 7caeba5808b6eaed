package rpc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/types"
)

func newClient(t *testing.T, opts ...Option) (*Client, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	return New(auth.NewSigner(w, nil), opts...), w
}

func TestPost_AuthenticatedSuccess(t *testing.T) {
	verifier := auth.NewVerifier(wallet.NewAnyone(), nil, 0)
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listMessages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		creds, err := auth.FromHeader(r.Header)
		require.NoError(t, err)
		seen, err = verifier.Verify(r.Context(), creds, body)
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"status":"success","messages":[{"messageId":"m1","body":"hi"}]}`))
	}))
	defer srv.Close()

	c, w := newClient(t)
	var resp struct {
		Messages []types.WireMessage `json:"messages"`
	}
	err := c.Post(context.Background(), srv.URL, "/listMessages", map[string]string{"messageBox": "inbox"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, w.IdentityKey(), seen)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, types.WireBody("hi"), resp.Messages[0].Body)
}

func TestPost_ErrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   types.ErrorCode
		desc   string
	}{
		{"protocol", http.StatusBadRequest, `{"status":"error","description":"bad box"}`, types.CodeProtocol, "bad box"},
		{"not found", http.StatusBadRequest, `{"status":"error","code":"not_found","description":"message not found"}`, types.CodeNotFound, "message not found"},
		{"unauthorized", http.StatusUnauthorized, `{"status":"error","description":"invalid signature"}`, types.CodeUnauthorized, "invalid signature"},
		{"status error with 200", http.StatusOK, `{"status":"error","description":"nope"}`, types.CodeProtocol, "nope"},
		{"bad json", http.StatusOK, `not json`, types.CodeDecode, ""},
		{"plain 502", http.StatusBadGateway, `upstream down`, types.CodeTransport, "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := newClient(t, WithMaxRetries(0))
			err := c.Post(context.Background(), srv.URL, "/sendMessage", struct{}{}, nil)
			require.Error(t, err)

			var he *types.HostError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.code, he.Code)
			assert.Equal(t, tc.status, he.Status)
			assert.Equal(t, tc.desc, he.Description)
			assert.Equal(t, srv.URL, he.Host)
		})
	}
}

func TestPost_NotFoundIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","description":"no such message"}`))
	}))
	defer srv.Close()

	c, _ := newClient(t)
	err := c.Post(context.Background(), srv.URL, "/acknowledgeMessage", struct{}{}, nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorContains(t, err, "no such message")
}

func TestPost_RetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	require.NoError(t, c.Post(context.Background(), srv.URL, "/sendMessage", struct{}{}, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPost_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newClient(t, WithMaxRetries(0))
	err := c.Post(context.Background(), url, "/listMessages", struct{}{}, nil)
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://h.example":      "https://h.example/sendMessage",
		"https://h.example/":     "https://h.example/sendMessage",
		"wss://h.example/base":   "https://h.example/base/sendMessage",
		"ws://127.0.0.1:8080":    "http://127.0.0.1:8080/sendMessage",
	}
	for host, want := range cases {
		got, err := Endpoint(host, "/sendMessage")
		require.NoError(t, err, host)
		assert.Equal(t, want, got)
	}
	_, err := Endpoint("ftp://h.example", "/x")
	assert.Error(t, err)
}
