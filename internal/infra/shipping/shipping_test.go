package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const costOK = `{
  "rajaongkir": {
    "status": {"code": 200, "description": "OK"},
    "results": [{
      "code": "jne",
      "costs": [
        {"service": "OKE", "description": "Ongkos Kirim Ekonomis", "cost": [{"value": 18000, "etd": "4-5"}]},
        {"service": "REG", "description": "Layanan Reguler", "cost": [{"value": 20000, "etd": "2-3"}]}
      ]
    }]
  }
}`

func TestRajaOngkirClient_Cost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cost", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "501", r.PostForm.Get("origin"))
		assert.Equal(t, "114", r.PostForm.Get("destination"))
		assert.Equal(t, "1700", r.PostForm.Get("weight"))
		assert.Equal(t, "jne", r.PostForm.Get("courier"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(costOK))
	}))
	defer srv.Close()

	c := NewRajaOngkirClient(srv.URL+"/", "secret", srv.Client())
	opts, err := c.Cost(context.Background(), "501", "114", 1700, "jne")
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "jne", opts[0].CourierCode)
	assert.Equal(t, "OKE", opts[0].Service)
	assert.True(t, opts[0].Cost.Equal(decimal.NewFromInt(18000)))
	assert.Equal(t, "2-3", opts[1].ETD)
}

func TestRajaOngkirClient_Cost_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusBadRequest, `{"rajaongkir":{"status":{"code":400,"description":"Invalid key"}}}`, "Invalid key"},
		{"status in body", http.StatusOK, `{"rajaongkir":{"status":{"code":400,"description":"Weight too heavy"}}}`, "Weight too heavy"},
		{"broken json", http.StatusOK, `<html>`, "decode pos response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRajaOngkirClient(srv.URL, "k", nil).Cost(context.Background(), "1", "2", 1000, "pos")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	opts := []model.ShippingOption{{CourierCode: "jne", Service: "REG", Cost: decimal.NewFromInt(9000)}}
	require.NoError(t, c.Set(ctx, "k", opts, time.Minute))

	// 呼び出し側が書き換えてもキャッシュは変わらない
	opts[0].Service = "changed"

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "REG", got[0].Service)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.entries)

	// TTL 0 は保存しない
	require.NoError(t, c.Set(ctx, "zero", opts, 0))
	_, ok, _ = c.Get(ctx, "zero")
	assert.False(t, ok)
}

func TestRedisCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	c := NewRedisCache(client, "")
	assert.Equal(t, defaultKeyPrefix, c.keyPrefix)

	_, _, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")

	err = c.Set(context.Background(), "k", nil, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")

	_, err = DialRedis(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
