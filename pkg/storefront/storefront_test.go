package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/joseaugf/cop320-cw/pkg/chaos/failure"
	"github.com/joseaugf/cop320-cw/pkg/chaos/infra"
	"github.com/joseaugf/cop320-cw/pkg/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	flags map[string]*flags.FeatureFlag
}

func (f fakeSource) GetFlag(_ context.Context, name string) *flags.FeatureFlag {
	return f.flags[name]
}

func (f fakeSource) IsFlagEnabled(ctx context.Context, name string) bool {
	flag := f.GetFlag(ctx, name)
	return flag != nil && flag.Enabled
}

func (f fakeSource) GetFlagConfig(ctx context.Context, name string) flags.FlagConfig {
	flag := f.GetFlag(ctx, name)
	if flag == nil || flag.Config == nil {
		return flags.FlagConfig{}
	}
	return flag.Config
}

type nopTerminator struct{}

func (nopTerminator) Terminate(int) {}

func newTestRouter(src fakeSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler("storefront", src,
		infra.NewSimulator(nopTerminator{}),
		failure.NewSimulator(src))
	r := gin.New()
	h.Register(r)
	return r
}

func TestBusinessEndpointsWithoutChaos(t *testing.T) {
	r := newTestRouter(fakeSource{flags: map[string]*flags.FeatureFlag{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var products []Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.NotEmpty(t, products)

	item, _ := json.Marshal(CartItem{ProductID: products[0].ID, Quantity: 2})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cart/c1/items", bytes.NewReader(item)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/checkout/c1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var order Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.NotEmpty(t, order.OrderID)
	assert.Len(t, order.Items, 1)
}

func TestSimulatedErrorMapsToDistinguishedResponse(t *testing.T) {
	src := fakeSource{flags: map[string]*flags.FeatureFlag{
		"cart_error_rate": {
			Name:    "cart_error_rate",
			Enabled: true,
			Config:  flags.FlagConfig{flags.KeyErrorRate: 100.0},
		},
	}}
	r := newTestRouter(src)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart/c1", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			TraceID   string `json:"trace_id"`
			Timestamp string `json:"timestamp"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SIMULATED_ERROR", body.Error.Code)
	assert.NotEmpty(t, body.Error.TraceID)
	assert.NotEmpty(t, body.Error.Timestamp)
}

func TestUnknownProductIsPlainNotFound(t *testing.T) {
	r := newTestRouter(fakeSource{flags: map[string]*flags.FeatureFlag{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
