package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	custapp "github.com/dmehra2102/myshop/internal/customer/application"
	custdomain "github.com/dmehra2102/myshop/internal/customer/domain"
	"github.com/dmehra2102/myshop/internal/customer/infrastructure/shipping"
	invdomain "github.com/dmehra2102/myshop/internal/inventory/domain"
	"github.com/dmehra2102/myshop/internal/inventory/infrastructure/memory"
	"github.com/dmehra2102/myshop/internal/order/application"
	"github.com/dmehra2102/myshop/internal/order/domain"
	payapp "github.com/dmehra2102/myshop/internal/payment/application"
	paydomain "github.com/dmehra2102/myshop/internal/payment/domain"
	"github.com/dmehra2102/myshop/pkg/httpjson"
	"github.com/dmehra2102/myshop/pkg/idempotency"
	"github.com/dmehra2102/myshop/pkg/logging"
	"github.com/dmehra2102/myshop/pkg/repository"
	"github.com/dmehra2102/myshop/pkg/worksim"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ledger   *memory.Ledger
	products *repository.Memory[invdomain.Product]
	routes   http.Handler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		ledger:   memory.NewLedger(),
		products: repository.NewMemory[invdomain.Product](),
	}
	for _, p := range invdomain.DemoProducts() {
		_, err := f.products.Add(ctx, p)
		require.NoError(t, err)
		require.NoError(t, f.ledger.SetStock(ctx, p.ID, p.Stock))
	}
	ship := shipping.NewService(logging.Discard(), shipping.Options{Block: worksim.None, Suspend: worksim.None})
	proc := application.NewProcessor(logging.Discard(), application.Deps{
		Validator: custapp.NewValidator(ship),
		Products:  f.products,
		Customers: repository.NewMemory[custdomain.Customer](),
		Orders:    repository.NewMemory[domain.Order](),
		Ledger:    f.ledger,
		Payments:  payapp.NewService(logging.Discard(), repository.NewMemory[paydomain.Payment]()),
	})
	f.routes = NewHandler(logging.Discard(), proc, opts...).Routes()
	return f
}

func (f *fixture) addProduct(t *testing.T, name string, stock int) invdomain.Product {
	t.Helper()
	p := invdomain.NewProduct(name, decimal.NewFromInt(10), stock)
	_, err := f.products.Add(context.Background(), p)
	require.NoError(t, err)
	require.NoError(t, f.ledger.SetStock(context.Background(), p.ID, stock))
	return p
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.routes.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) domain.Order {
	t.Helper()
	var o domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	return o
}

func TestReserveStaticReturnsRemaining(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reserve-static/"+invdomain.DemoCameraID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11", strings.TrimSpace(rec.Body.String()))
}

func TestReserveStaticFailuresAreBadRequests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reserve-static/unknown", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/reserve-static/"+invdomain.DemoCameraID, `{"name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httpjson.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{domain.ReasonInvalidCustomer}, body.Reasons)

	rec = f.do(http.MethodPost, "/reserve-static/"+invdomain.DemoCameraID, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmissionBound(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Limited", 139)

	const requests = 10000
	var ok, rejected, negative atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := f.do(http.MethodPost, "/reserve-static/"+p.ID, "")
			switch rec.Code {
			case http.StatusOK:
				ok.Add(1)
				if n, err := strconv.Atoi(strings.TrimSpace(rec.Body.String())); err != nil || n < 0 {
					negative.Add(1)
				}
			case http.StatusBadRequest:
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(139), ok.Load())
	assert.Equal(t, int32(requests-139), rejected.Load())
	assert.Zero(t, negative.Load())

	stock, _, err := f.ledger.GetStock(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func TestMicrophoneScenario(t *testing.T) {
	f := newFixture(t)
	mic := invdomain.DemoProducts()[1]
	var micID string
	all, _ := f.products.All(context.Background())
	for _, p := range all {
		if p.Name == mic.Name {
			micID = p.ID
		}
	}

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch f.do(http.MethodPost, "/reserve-static/"+micID, "").Code {
			case http.StatusOK:
				ok.Add(1)
			case http.StatusBadRequest:
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, int32(47), rejected.Load())
	stock, _, _ := f.ledger.GetStock(context.Background(), micID)
	assert.Equal(t, 0, stock)
}

func TestReserveDeferred(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reserve/"+invdomain.DemoCameraID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	o := decodeOrder(t, rec)
	assert.Equal(t, domain.StatusWaitingForPayment, o.Status)

	rec = f.do(http.MethodPost, "/reserve/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/reserve/"+invdomain.DemoCameraID, `{"name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	body := `{"customer":{"name":"Ada","email":"ada@example.com","shipping_address":"Main St 1","city":"Stockholm","postal_code":"12345","country":"Sweden"},
		"items":[{"product_id":"` + invdomain.DemoCameraID + `","quantity":2}]}`

	rec := f.do(http.MethodPost, "/create", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o := decodeOrder(t, rec)
	assert.Equal(t, domain.StatusWaitingForPayment, o.Status)

	rec = f.do(http.MethodGet, "/"+o.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, o.ID, decodeOrder(t, rec).ID)

	rec = f.do(http.MethodPost, "/finalize/"+o.ID+"?paymentReference=bad%20ref", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/finalize/"+o.ID+"?paymentReference=PAY-42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusShipped, decodeOrder(t, rec).Status)

	rec = f.do(http.MethodPost, "/cancel/"+o.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/finalize/missing?paymentReference=PAY-42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelReleasesStock(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reserve/"+invdomain.DemoCameraID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	o := decodeOrder(t, rec)

	rec = f.do(http.MethodPost, "/cancel/"+o.ID, `{"reason":"changed my mind"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusCancelled, decodeOrder(t, rec).Status)

	stock, _, _ := f.ledger.GetStock(context.Background(), invdomain.DemoCameraID)
	assert.Equal(t, 12, stock)
}

func TestCreateIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := newFixture(t, WithIdempotency(idempotency.NewStore(rdb, time.Hour)))

	body := `{"customer":{"name":"Ada","email":"ada@example.com","shipping_address":"Main St 1","city":"Stockholm","postal_code":"12345","country":"Sweden"},
		"items":[{"product_id":"` + invdomain.DemoCameraID + `","quantity":1}]}`

	first := f.do(http.MethodPost, "/create", body, idempotency.HeaderKey, "k-1")
	require.Equal(t, http.StatusOK, first.Code)

	replay := f.do(http.MethodPost, "/create", body, idempotency.HeaderKey, "k-1")
	assert.Equal(t, http.StatusConflict, replay.Code)

	stock, _, _ := f.ledger.GetStock(context.Background(), invdomain.DemoCameraID)
	assert.Equal(t, 11, stock)
}
