package moneroclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubRPCServer(t *testing.T, handle func(method string, params json.RawMessage) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		paramsRaw, err := json.Marshal(req.Params)
		require.NoError(t, err)

		result, rpcErr := handle(req.Method, paramsRaw)
		resp := rpcResponse{Error: rpcErr}
		if rpcErr == nil {
			raw, err := json.Marshal(result)
			require.NoError(t, err)
			resp.Result = raw
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestTransferReturnsTxHashAndKey(t *testing.T) {
	srv := stubRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "transfer", method)
		var p transferParams
		require.NoError(t, json.Unmarshal(params, &p))
		require.Len(t, p.Destinations, 1)
		require.Equal(t, uint64(123), p.Destinations[0].Amount)
		require.Equal(t, "4Addr", p.Destinations[0].Address)
		return transferResult{TxHash: "txhash1", TxKey: "txkey1"}, nil
	})
	defer srv.Close()

	c := New(srv.URL)
	txHash, txKey, err := c.Transfer(context.Background(), "4Addr", 123, 0)
	require.NoError(t, err)
	require.Equal(t, "txhash1", txHash)
	require.Equal(t, "txkey1", txKey)
}

func TestTransferPropagatesRPCError(t *testing.T) {
	srv := stubRPCServer(t, func(string, json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -1, Message: "not enough money"}
	})
	defer srv.Close()

	c := New(srv.URL)
	_, _, err := c.Transfer(context.Background(), "4Addr", 123, 0)
	require.ErrorContains(t, err, "not enough money")
}

func TestCheckTxRequiresConfirmationsAndAmount(t *testing.T) {
	srv := stubRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "check_tx_key", method)
		return checkTxResult{Received: 100, Confirmations: 5, InPool: false}, nil
	})
	defer srv.Close()

	c := New(srv.URL)

	ok, err := c.CheckTx(context.Background(), "tx", "key", "4Addr", 100, 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.CheckTx(context.Background(), "tx", "key", "4Addr", 100, 10)
	require.NoError(t, err)
	require.False(t, ok, "expect insufficient confirmations to fail the check")

	ok, err = c.CheckTx(context.Background(), "tx", "key", "4Addr", 200, 5)
	require.NoError(t, err)
	require.False(t, ok, "expect insufficient received amount to fail the check")
}

func TestCheckTxRejectsUnconfirmedPoolTx(t *testing.T) {
	srv := stubRPCServer(t, func(string, json.RawMessage) (interface{}, *rpcError) {
		return checkTxResult{Received: 100, Confirmations: 0, InPool: true}, nil
	})
	defer srv.Close()

	c := New(srv.URL)
	ok, err := c.CheckTx(context.Background(), "tx", "key", "4Addr", 100, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateFromKeysSendsHexEncodedKeys(t *testing.T) {
	var spendKey, viewKey [32]byte
	spendKey[0] = 0xaa
	viewKey[0] = 0xbb

	srv := stubRPCServer(t, func(method string, params json.RawMessage) (interface{}, *rpcError) {
		require.Equal(t, "generate_from_keys", method)
		var p createFromKeysParams
		require.NoError(t, json.Unmarshal(params, &p))
		require.Equal(t, "aa00000000000000000000000000000000000000000000000000000000000000", p.SpendKey)
		require.Equal(t, "bb00000000000000000000000000000000000000000000000000000000000000", p.ViewKey)
		require.Equal(t, uint64(42), p.RestoreHeight)
		return nil, nil
	})
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.CreateFromKeys(context.Background(), spendKey, viewKey, 42))
}
