package pay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_key" || pass != "rzp_secret" {
			t.Fatalf("missing basic auth")
		}
		var body CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Amount != 150000 || body.Currency != "INR" || body.Receipt != "booking_7_1700000000000" {
			t.Fatalf("unexpected body %+v", body)
		}
		if body.Notes["booking_id"] != "7" {
			t.Fatalf("expected booking_id note, got %v", body.Notes)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":150000,"currency":"INR","receipt":"booking_7_1700000000000","status":"created"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "rzp_key", "rzp_secret", time.Second)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   150000,
		Currency: "INR",
		Receipt:  "booking_7_1700000000000",
		Notes:    map[string]string{"booking_id": "7"},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "order_abc" || order.Status != "created" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestClientCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds maximum"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "rzp_key", "rzp_secret", time.Second)
	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR", Receipt: "r"})
	if err == nil || !strings.Contains(err.Error(), "amount exceeds maximum") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestClientCreateOrderWithoutCredentials(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "", time.Second)
	if _, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100}); err == nil {
		t.Fatal("expected error without credentials")
	}
}
