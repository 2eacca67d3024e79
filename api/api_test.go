package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jetsharklambo/pu2-toolkit/app"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/txmgr"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var (
	playerA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	playerB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type fakeService struct {
	snap    *app.Snapshot
	snapErr error
	action  *txmgr.Action
	err     error

	createParams *txmgr.CreateParams
	joinCode     string
	winners      []common.Address
	splits       core.PrizeSplits
	judge        common.Address
	judges       []common.Address
}

func (f *fakeService) Snapshot(_ context.Context, _ string) (*app.Snapshot, error) {
	return f.snap, f.snapErr
}

func (f *fakeService) Create(_ context.Context, params txmgr.CreateParams) (*txmgr.Action, error) {
	f.createParams = &params
	return f.action, f.err
}

func (f *fakeService) Join(_ context.Context, code string) (*txmgr.Action, error) {
	f.joinCode = code
	return f.action, f.err
}

func (f *fakeService) Lock(_ context.Context, _ string) (*txmgr.Action, error) {
	return f.action, f.err
}

func (f *fakeService) ReportWinners(_ context.Context, _ string, winners []common.Address) (*txmgr.Action, error) {
	f.winners = winners
	return f.action, f.err
}

func (f *fakeService) Claim(_ context.Context, _ string) (*txmgr.Action, error) {
	return f.action, f.err
}

func (f *fakeService) SetSplits(_ context.Context, _ string, splits core.PrizeSplits) (*txmgr.Action, error) {
	f.splits = splits
	return f.action, f.err
}

func (f *fakeService) AddJudge(_ context.Context, _ string, judge common.Address) (*txmgr.Action, error) {
	f.judge = judge
	return f.action, f.err
}

func (f *fakeService) SetJudges(_ context.Context, _ string, judges []common.Address) (*txmgr.Action, error) {
	f.judges = judges
	return f.action, f.err
}

func testSnapshot() *app.Snapshot {
	return &app.Snapshot{
		Game: &core.Game{
			Code:        "ABC123",
			Host:        playerA,
			BuyIn:       big.NewInt(1000),
			MaxPlayers:  4,
			PlayerCount: 2,
			Players:     []common.Address{playerA, playerB},
		},
		Winners: core.WinnerStatus{playerA: true, playerB: false},
		Claimed: core.ClaimedSet{playerA: true},
	}
}

func testAction() *txmgr.Action {
	return &txmgr.Action{
		ID:      uuid.New(),
		Kind:    "join",
		Game:    "ABC123",
		Status:  txmgr.StatusIdle,
		Message: "confirmed",
		TxHash:  common.HexToHash("0xdead"),
	}
}

func doRequest(t *testing.T, svc Service, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewServer(svc).Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doRequest(t, &fakeService{}, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSnapshotEndpoint(t *testing.T) {
	svc := &fakeService{snap: testSnapshot()}
	w := doRequest(t, svc, http.MethodGet, "/games/ABC123", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ABC123", resp.Game.Code)
	require.Equal(t, "1000", resp.Game.BuyIn)
	require.Empty(t, resp.Game.Token)
	require.Len(t, resp.Winners, 1)
	require.Equal(t, playerA.Hex(), resp.Winners[0].Address)
	require.True(t, resp.Winners[0].Claimed)
}

func TestSnapshotRejectsMalformedCode(t *testing.T) {
	w := doRequest(t, &fakeService{}, http.MethodGet, "/games/ab", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshotUpstreamFailure(t *testing.T) {
	svc := &fakeService{snapErr: errors.New("connection refused")}
	w := doRequest(t, svc, http.MethodGet, "/games/ABC123", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestActionErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind   txmgr.Kind
		status int
	}{
		{txmgr.KindValidation, http.StatusBadRequest},
		{txmgr.KindRejected, http.StatusBadRequest},
		{txmgr.KindReverted, http.StatusConflict},
		{txmgr.KindTimeout, http.StatusGatewayTimeout},
		{txmgr.KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			svc := &fakeService{err: &txmgr.ActionError{Kind: tc.kind, Message: "nope"}}
			w := doRequest(t, svc, http.MethodPost, "/games/ABC123/join", nil)
			require.Equal(t, tc.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, "nope", body["error"])
			require.Equal(t, string(tc.kind), body["kind"])
		})
	}
}

func TestCreateEndpoint(t *testing.T) {
	action := testAction()
	action.Kind = "create"
	action.GameCode = "NEW777"
	svc := &fakeService{action: action}

	w := doRequest(t, svc, http.MethodPost, "/games", createRequest{
		BuyIn:      "500",
		MaxPlayers: 4,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.createParams)
	require.Equal(t, 0, svc.createParams.BuyIn.Cmp(big.NewInt(500)))
	require.Equal(t, uint64(4), svc.createParams.MaxPlayers)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "NEW777", resp.GameCode)
}

func TestCreateRejectsBadAmount(t *testing.T) {
	svc := &fakeService{action: testAction()}
	w := doRequest(t, svc, http.MethodPost, "/games", createRequest{
		BuyIn:      "12x",
		MaxPlayers: 4,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Nil(t, svc.createParams)
}

func TestWinnersEndpointParsesAddresses(t *testing.T) {
	svc := &fakeService{action: testAction()}
	w := doRequest(t, svc, http.MethodPost, "/games/ABC123/winners", winnersRequest{
		Winners: []string{playerA.Hex(), playerB.Hex()},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []common.Address{playerA, playerB}, svc.winners)

	w = doRequest(t, svc, http.MethodPost, "/games/ABC123/winners", winnersRequest{
		Winners: []string{"not-an-address"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitsEndpoint(t *testing.T) {
	svc := &fakeService{action: testAction()}
	w := doRequest(t, svc, http.MethodPost, "/games/ABC123/splits", splitsRequest{
		Splits: []uint64{5000, 3000, 2000},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, core.PrizeSplits{5000, 3000, 2000}, svc.splits)
}

func TestJudgeEndpoints(t *testing.T) {
	svc := &fakeService{action: testAction()}
	w := doRequest(t, svc, http.MethodPost, "/games/ABC123/judges/add", judgeRequest{Judge: playerB.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, playerB, svc.judge)

	w = doRequest(t, svc, http.MethodPost, "/games/ABC123/judges", judgesRequest{
		Judges: []string{playerA.Hex(), playerB.Hex()},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []common.Address{playerA, playerB}, svc.judges)
}

func TestLiveStreamsSnapshots(t *testing.T) {
	svc := &fakeService{snap: testSnapshot()}
	server := NewServer(svc)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/ABC123/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first snapshotResponse
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "ABC123", first.Game.Code)

	server.NotifySettled("ABC123")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var second snapshotResponse
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, "ABC123", second.Game.Code)
	require.Len(t, second.Winners, 1)
}

func TestLiveStreamsActionUpdates(t *testing.T) {
	svc := &fakeService{snap: testSnapshot()}
	server := NewServer(svc)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/games/ABC123/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var seed snapshotResponse
	require.NoError(t, conn.ReadJSON(&seed))

	server.NotifyAction(txmgr.Action{
		ID:      uuid.New(),
		Kind:    "lock",
		Game:    "ABC123",
		Status:  txmgr.StatusSubmitting,
		Message: "submitting transaction",
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update actionResponse
	require.NoError(t, conn.ReadJSON(&update))
	require.Equal(t, "lock", update.Kind)
	require.Equal(t, string(txmgr.StatusSubmitting), update.Status)
	require.Equal(t, "submitting transaction", update.Message)
}
