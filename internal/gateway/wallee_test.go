package gateway_test

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flexy-hms/payments-api/internal/common"
	"github.com/flexy-hms/payments-api/internal/config"
	"github.com/flexy-hms/payments-api/internal/gateway"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("super-secret"))

func testCreds() config.GatewayCredentials {
	return config.GatewayCredentials{SpaceID: 316, UserID: 42, Secret: testSecret, TerminalID: "till-1"}
}

func newClient(baseURL string) gateway.Wallee {
	return gateway.Wallee{Creds: testCreds(), BaseURL: baseURL}
}

// verifyMAC recomputes the request signature from the headers the client sent.
func verifyMAC(t *testing.T, r *http.Request) {
	t.Helper()
	require.Equal(t, "1", r.Header.Get("x-mac-version"))
	require.Equal(t, "42", r.Header.Get("x-mac-userid"))
	ts := r.Header.Get("x-mac-timestamp")
	require.NotEmpty(t, ts)

	pathWithQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathWithQuery += "?" + r.URL.RawQuery
	}
	message := strings.Join([]string{"1", "42", ts, r.Method, pathWithQuery}, "|")
	mac := hmac.New(sha512.New, []byte("super-secret"))
	mac.Write([]byte(message))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	require.Equal(t, want, r.Header.Get("x-mac-value"))
}

func TestCreateTransactionSignsAndDecodes(t *testing.T) {
	var gotBody gateway.TransactionCreate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transaction/create", r.URL.Path)
		require.Equal(t, "316", r.URL.Query().Get("spaceId"))
		verifyMAC(t, r)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 9001, "state": "PENDING"})
	}))
	defer srv.Close()

	cl := newClient(srv.URL)
	tx, err := cl.CreateTransaction(t.Context(), gateway.TransactionCreate{
		Currency:                "CHF",
		AutoConfirmationEnabled: true,
		LineItems: []gateway.LineItem{{
			UniqueID: "u1", Name: "Room 204", Quantity: 1, AmountIncludingTax: "120.50", Type: "PRODUCT",
		}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(9001), tx.ID)
	require.Equal(t, gateway.StatePending, tx.State)
	require.True(t, gotBody.AutoConfirmationEnabled)
	require.Equal(t, "120.50", gotBody.LineItems[0].AmountIncludingTax)
}

func TestPaymentPageURLHandlesBareString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transaction-payment-page/payment-page-url", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "9001", r.URL.Query().Get("id"))
		verifyMAC(t, r)
		_, _ = w.Write([]byte(`"https://checkout.example/p/9001"`))
	}))
	defer srv.Close()

	url, err := newClient(srv.URL).PaymentPageURL(t.Context(), 9001)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.example/p/9001", url)
}

func TestTriggerOnTerminalSendsIdentifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/payment-terminal-till/perform-transaction-by-identifier", r.URL.Path)
		require.Equal(t, "till-1", r.URL.Query().Get("terminalIdentifier"))
		require.Equal(t, "77", r.URL.Query().Get("transactionId"))
		verifyMAC(t, r)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 77, "state": "COMPLETED"})
	}))
	defer srv.Close()

	tx, err := newClient(srv.URL).TriggerOnTerminal(t.Context(), 77, "till-1")
	require.NoError(t, err)
	require.Equal(t, gateway.StateCompleted, tx.State)
}

func TestCreateTokenReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/token/create-token", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 555})
	}))
	defer srv.Close()

	id, err := newClient(srv.URL).CreateToken(t.Context(), 77)
	require.NoError(t, err)
	require.Equal(t, "555", id)
}

func TestActiveTokenVersionExtractsDisplayDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/token-version/active-version", r.URL.Path)
		require.Equal(t, "555", r.URL.Query().Get("id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "VISA 4242",
			"paymentConnectorConfiguration": map[string]any{
				"imagePath": "/img/visa.svg",
			},
		})
	}))
	defer srv.Close()

	version, err := newClient(srv.URL).ActiveTokenVersion(t.Context(), "555")
	require.NoError(t, err)
	require.Equal(t, "VISA 4242", version.Name)
	require.Equal(t, "/img/visa.svg", version.ImagePath)
}

func TestDeleteTokenHitsDeleteEndpoint(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, "/api/token/delete", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL).DeleteToken(t.Context(), "555"))
	require.True(t, called)
}

func TestNon2xxBecomesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"space not found"}`, 442)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CreateTransaction(t.Context(), gateway.TransactionCreate{Currency: "CHF"})
	require.Error(t, err)
	require.True(t, common.IsKind(err, common.KindGateway))
	require.Equal(t, "GATEWAY_REJECTED", common.CodeOf(err))
	require.Contains(t, err.Error(), "space not found")
}

func TestUnreachableGatewayBecomesGatewayError(t *testing.T) {
	cl := newClient("http://127.0.0.1:1")
	_, err := cl.CreateTransaction(t.Context(), gateway.TransactionCreate{Currency: "CHF"})
	require.True(t, common.IsKind(err, common.KindGateway))
	require.Equal(t, "GATEWAY_UNREACHABLE", common.CodeOf(err))
}

func TestIsSuccessState(t *testing.T) {
	for _, state := range []string{"COMPLETED", "FULFILL", "AUTHORIZED"} {
		require.True(t, gateway.IsSuccessState(state), state)
	}
	for _, state := range []string{"PENDING", "FAILED", "DECLINED", "", "completed"} {
		require.False(t, gateway.IsSuccessState(state), state)
	}
}
