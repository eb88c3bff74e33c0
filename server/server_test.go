package server

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"murmur/common"
)

func newTestServer(t *testing.T) (*Server, *MemoryStore, *httptest.Server) {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	s := NewServer(store, store, logrus.New())
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, store, ts
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	assert.NoError(t, err)
	return b
}

func testBundle(t *testing.T, oneTimeKeys int) (string, common.Bundle) {
	t.Helper()
	bundle := common.Bundle{
		PubKey:        randomBytes(t, 32),
		PubSignPreKey: randomBytes(t, 32),
		PreKeySig:     randomBytes(t, 64),
	}
	for i := 0; i < oneTimeKeys; i++ {
		bundle.OneTimeKeys = append(bundle.OneTimeKeys, randomBytes(t, 32))
	}
	return hex.EncodeToString(bundle.PubKey), bundle
}

func putBundle(t *testing.T, ts *httptest.Server, id string, bundle common.Bundle) *http.Response {
	t.Helper()
	body, err := json.Marshal(bundle)
	assert.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/keys/"+id, bytes.NewReader(body))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	return resp
}

func TestPublishAndFetchBundle(t *testing.T) {
	_, _, ts := newTestServer(t)

	id, bundle := testBundle(t, 2)
	resp := putBundle(t, ts, id, bundle)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Republishing with the identical signature is rejected.
	resp = putBundle(t, ts, id, bundle)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Cannot publish bundle with same signature")

	// Each fetch pops one one-time key, in publication order.
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/keys/" + id)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var fetched common.FetchedBundle
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
		resp.Body.Close()
		assert.Equal(t, bundle.PubSignPreKey, fetched.PubSignPreKey)
		assert.Equal(t, bundle.PreKeySig, fetched.PreKeySig)
		assert.Equal(t, bundle.OneTimeKeys[i], fetched.OneTimeKey)
	}

	// Exhausted one-time keys yield the dedicated error.
	resp2, err := http.Get(ts.URL + "/keys/" + id)
	assert.NoError(t, err)
	body, _ = io.ReadAll(resp2.Body)
	resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
	assert.Contains(t, string(body), "No more oneTimeKeys")
}

func TestFetchUnknownBundle(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/keys/deadbeef")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishRejectsMismatchedUserID(t *testing.T) {
	_, _, ts := newTestServer(t)

	_, bundle := testBundle(t, 1)
	resp := putBundle(t, ts, "0000", bundle)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishRejectsInvalidBundle(t *testing.T) {
	_, _, ts := newTestServer(t)

	id, bundle := testBundle(t, 1)
	bundle.PubSignPreKey = bundle.PubSignPreKey[:16]
	resp := putBundle(t, ts, id, bundle)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func testInitialMessage(t *testing.T) common.InitialMessage {
	t.Helper()
	return common.InitialMessage{
		PubKey:        randomBytes(t, 32),
		PeerKey:       randomBytes(t, 32),
		PubSignPreKey: randomBytes(t, 32),
		EphemeralKey:  randomBytes(t, 32),
		OneTimeKey:    randomBytes(t, 32),
		Header:        randomBytes(t, 96),
		Payload:       randomBytes(t, 48),
	}
}

func postMessage(t *testing.T, ts *httptest.Server, msg common.InitialMessage) (*http.Response, string) {
	t.Helper()
	body, err := json.Marshal(msg)
	assert.NoError(t, err)
	resp, err := http.Post(ts.URL+"/messages", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	if resp.StatusCode != http.StatusCreated {
		return resp, ""
	}
	var created common.SessionCreated
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return resp, created.SessionID
}

func TestMessageLifecycle(t *testing.T) {
	_, _, ts := newTestServer(t)

	msg := testInitialMessage(t)
	resp, sid := postMessage(t, ts, msg)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The relay mints a v4 UUID per session.
	parsed, err := uuid.Parse(sid)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	getResp, err := http.Get(ts.URL + "/messages/" + sid)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	var fetched common.InitialMessage
	assert.NoError(t, json.NewDecoder(getResp.Body).Decode(&fetched))
	getResp.Body.Close()
	assert.Equal(t, msg, fetched)

	// The message is removed on successful read.
	getResp, err = http.Get(ts.URL + "/messages/" + sid)
	assert.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestMessageEvictionAfterTTL(t *testing.T) {
	_, store, ts := newTestServer(t)

	now := time.Now()
	store.now = func() time.Time { return now }

	resp, sid := postMessage(t, ts, testInitialMessage(t))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	now = now.Add(61 * time.Second)

	getResp, err := http.Get(ts.URL + "/messages/" + sid)
	assert.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func dialBridge(t *testing.T, ts *httptest.Server, sid string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	return conn
}

func TestBridgePairsAndForwards(t *testing.T) {
	_, _, ts := newTestServer(t)
	sid := uuid.NewString()

	first := dialBridge(t, ts, sid)
	defer first.Close()
	second := dialBridge(t, ts, sid)
	defer second.Close()

	// Both peers get the pairing acknowledgement.
	for _, conn := range []*websocket.Conn{first, second} {
		_, msg, err := conn.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, "OK", string(msg))
	}

	// Frames are copied verbatim in both directions.
	frame := []byte(`{"header":"aGVhZGVy","payload":"cGF5bG9hZA=="}`)
	assert.NoError(t, first.WriteMessage(websocket.TextMessage, frame))
	mt, got, err := second.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, frame, got)

	reply := []byte(`{"header":"eA==","payload":"eQ=="}`)
	assert.NoError(t, second.WriteMessage(websocket.TextMessage, reply))
	_, got, err = first.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, reply, got)
}

func TestBridgeTimeoutWithoutPeer(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	s := NewServer(store, store, logrus.New())
	s.bridge = NewBridge(50 * time.Millisecond)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn := dialBridge(t, ts, uuid.NewString())
	defer conn.Close()

	// The lone peer is disconnected without ever receiving "OK".
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestBridgeRequiresSession(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	assert.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBridgeIndependentSessions(t *testing.T) {
	_, _, ts := newTestServer(t)

	a1 := dialBridge(t, ts, "session-a")
	defer a1.Close()
	b1 := dialBridge(t, ts, "session-b")
	defer b1.Close()
	a2 := dialBridge(t, ts, "session-a")
	defer a2.Close()

	for _, conn := range []*websocket.Conn{a1, a2} {
		_, msg, err := conn.ReadMessage()
		assert.NoError(t, err)
		assert.Equal(t, "OK", string(msg))
	}

	assert.NoError(t, a1.WriteMessage(websocket.TextMessage, []byte("x")))
	_, got, err := a2.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	// The session-b peer is still waiting, unpaired.
	b1.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = b1.ReadMessage()
	assert.Error(t, err)
}
