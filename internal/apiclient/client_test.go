package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:         srv.URL + "/api/",
		Timeout:         time.Second,
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	})
	return client, &hits
}

func TestGetCart_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"_id":"c1","user":"u1","items":[{"_id":"l1","product":{"_id":"p1","name":"Pine","price":12.5,"stock":5,"category":"Fragnance"},"quantity":2}]}`))
	})

	cart, err := client.GetCart(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].Product.ID)
	assert.Equal(t, domain.CategoryFragrance, cart.Items[0].Product.Category)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.Items[0].Product.Stock)
}

func TestGetCart_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Cart not found"}`))
	})

	_, err := client.GetCart(context.Background(), "token")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.IsNotFound())
	assert.Equal(t, "Cart not found", statusErr.Message)
}

func TestGetCart_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	})

	_, err := client.GetCart(context.Background(), "token")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.IsAuth())
	assert.Equal(t, "token expired", statusErr.Message)
}

func TestGetCart_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	})

	_, err := client.GetCart(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET /cart response")
}

func TestSetItem_SendsTargetQuantity(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart/items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body itemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, itemRequest{ProductID: "p1", Quantity: 3, Category: domain.CategoryGadget}, body)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.SetItem(context.Background(), "token", "p1", 3, domain.CategoryGadget)
	require.NoError(t, err)
}

func TestRemoveItem_EscapesProductID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart/items/a%2Fb", r.URL.EscapedPath())
	})

	require.NoError(t, client.RemoveItem(context.Background(), "token", "a/b"))
}

func TestClearCart_IsAuthenticated(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/carts", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
	})

	require.NoError(t, client.ClearCart(context.Background(), "token"))
}

func TestConfirmOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/confirm", r.URL.Path)
		var body domain.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, domain.PaymentCashOnDelivery, body.PaymentMethod)
		assert.Equal(t, "Ada", body.ShippingInfo.FirstName)
		w.Write([]byte(`{"order":{"_id":"o-1","status":"pending"}}`))
	})

	order, err := client.ConfirmOrder(context.Background(), "token", domain.OrderRequest{
		ShippingInfo:  domain.ShippingInfo{FirstName: "Ada"},
		PaymentMethod: domain.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)
}

func TestBreaker_OpensOnServerErrors(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.GetCart(ctx, "token")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.Status)
	}

	_, err := client.GetCart(ctx, "token")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Insufficient stock"}`))
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := client.SetItem(ctx, "token", "p1", 9, domain.CategoryProduct)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, "Insufficient stock", statusErr.Message)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(hits))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.GetCart(context.Background(), "token")
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestBreaker_IgnoresAbandonedRequests(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"_id":"c1","items":[]}`))
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := client.GetCart(ctx, "token")
		cancel()
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	cart, err := client.GetCart(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "c1", cart.ID)
}

func TestBreaker_CancelledCallerDoesNotTrip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)
		_, err := client.GetCart(ctx, "token")
		cancel()
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", client.breaker.State().String())
}
