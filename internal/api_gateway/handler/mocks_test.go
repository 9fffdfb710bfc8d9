package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/todaysales-settlement/internal/api_gateway/middleware"
	"github.com/todaysales-settlement/internal/domain/deadletter"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/domain/shared"
	engine "github.com/todaysales-settlement/internal/settlement_engine/service"
)

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) RunSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) ReprocessSettlement(ctx context.Context, id int64) (*settlement.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) GetUnsettledSales(ctx context.Context, date time.Time) ([]*sale.Sale, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sale.Sale), args.Error(1)
}

func (m *MockSettlementService) CheckSettlementExists(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementService) GetSettlement(ctx context.Context, id int64) (*settlement.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) GetSettlementByDate(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) ListSettlements(ctx context.Context, from, to time.Time) ([]*settlement.Settlement, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) GetFailedSettlement(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Settlement), args.Error(1)
}

func (m *MockSettlementService) CanReprocess(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) RequestSettlement(ctx context.Context, date time.Time, requestedBy string) (*shared.SettlementRequestEvent, error) {
	args := m.Called(ctx, date, requestedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.SettlementRequestEvent), args.Error(1)
}

type MockSaleService struct {
	mock.Mock
}

func (m *MockSaleService) RecordSale(ctx context.Context, cmd engine.RecordSaleCommand) (*sale.Sale, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

type MockDeadLetterService struct {
	mock.Mock
}

func (m *MockDeadLetterService) Counts(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockDeadLetterService) Latest(ctx context.Context, queue string, limit int) ([]*deadletter.Message, error) {
	args := m.Called(ctx, queue, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deadletter.Message), args.Error(1)
}

func (m *MockDeadLetterService) Purge(ctx context.Context, queue string) (int64, error) {
	args := m.Called(ctx, queue)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decode reads a Response whose data is T
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) (T, *ErrorInfo) {
	t.Helper()
	var body struct {
		Data  T          `json:"data"`
		Error *ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Data, body.Error
}
