package escrow

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDeposit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/deposits/0xaaa", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]float64{"amount": 250.5})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	amount, err := client.GetDeposit("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 250.5, amount)
}

func TestCreateEscrow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/escrows", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in struct {
			Address string  `json:"address"`
			BuyIn   float64 `json:"buy_in"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "0xaaa", in.Address)
		assert.Equal(t, 100.0, in.BuyIn)

		json.NewEncoder(w).Encode(map[string]string{"ref": "esc-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ref, err := client.CreateEscrow("0xaaa", 100)
	require.NoError(t, err)
	assert.Equal(t, "esc-42", ref)
}

func TestJoinEscrow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/escrows/esc-42/join", r.URL.Path)
		var in struct {
			Address string `json:"address"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "0xbbb", in.Address)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.JoinEscrow("esc-42", "0xbbb"))
}

func TestSettle(t *testing.T) {
	t.Run("returns payout and settlement ref", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/escrows/esc-42/settle", r.URL.Path)
			var in struct {
				Winner string `json:"winner"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "0xaaa", in.Winner)
			json.NewEncoder(w).Encode(Settlement{Amount: 198, Ref: "tx-7"})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		settlement, err := client.Settle("esc-42", "0xaaa")
		require.NoError(t, err)
		assert.Equal(t, 198.0, settlement.Amount)
		assert.Equal(t, "tx-7", settlement.Ref)
	})

	t.Run("surfaces non-OK status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "ledger rejected settlement", http.StatusConflict)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Settle("esc-42", "0xaaa")
		assert.Error(t, err)
	})
}

func TestPayLotteryAndPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/lottery/pay":
			json.NewEncoder(w).Encode(Settlement{Amount: 55.5, Ref: "tx-9"})
		case "/v1/lottery/pool":
			json.NewEncoder(w).Encode(map[string]float64{"amount": 55.5})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	pool, err := client.GetLotteryPool()
	require.NoError(t, err)
	assert.Equal(t, 55.5, pool)

	settlement, err := client.PayLottery("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 55.5, settlement.Amount)
	assert.Equal(t, "tx-9", settlement.Ref)
}
