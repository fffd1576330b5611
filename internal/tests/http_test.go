package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridetrack/internal/app"
	"ridetrack/internal/domain"
	"ridetrack/internal/fare"
	"ridetrack/internal/handler"
	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
	"ridetrack/internal/session"
)

// ──────────────────────────────────────────────
// 9. HTTP API
// ──────────────────────────────────────────────

func init() {
	gin.SetMode(gin.TestMode)
}

// memResponses is an in-memory idempotency store.
type memResponses struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memResponses) GetResponse(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memResponses) SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

var _ redis.ResponseStoreInterface = (*memResponses)(nil)

type apiFixture struct {
	*Fixture
	router   *gin.Engine
	registry *session.Registry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := NewFixture()
	ctx, cancel := context.WithCancel(context.Background())
	registry := session.NewRegistry(ctx, f.Backend, session.Options{Logger: logging.Discard()})
	t.Cleanup(func() {
		registry.Shutdown()
		cancel()
	})

	router := app.NewRouter(app.RouterDeps{
		TrackingHandler: handler.NewTrackingHandler(registry),
		StreamHandler:   handler.NewStreamHandler(registry, logging.Discard()),
		GatewayHandler:  handler.NewGatewayHandler(f.Backend),
		DriverHandler:   handler.NewDriverHandler(f.Drivers),
		Responses:       &memResponses{data: make(map[string][]byte)},
		Logger:          logging.Discard(),
	})
	return &apiFixture{Fixture: f, router: router, registry: registry}
}

type caller struct {
	id   string
	role domain.Role
}

var (
	customer = caller{id: "cust-1", role: domain.RoleCustomer}
	driver   = caller{id: "drv-1", role: domain.RoleDriver}
)

func (a *apiFixture) do(t *testing.T, who caller, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set("X-User-ID", who.id)
		req.Header.Set("X-User-Role", string(who.role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHTTP_HealthAndIdentity(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)

	if w := a.do(t, caller{}, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", w.Code)
	}
	if w := a.do(t, caller{}, http.MethodGet, "/v1/tracking/snapshot", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", w.Code)
	}
	if w := a.do(t, caller{id: "x", role: "pilot"}, http.MethodGet, "/v1/tracking/snapshot", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown role, got %d", w.Code)
	}
	if w := a.do(t, customer, http.MethodGet, "/v1/tracking/snapshot", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a session, got %d", w.Code)
	}
}

func TestHTTP_SessionLifecycle(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.AddRide("ride-1", customer.id, "", domain.RideStatusPending)

	if w := a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first start, got %d", w.Code)
	}
	if w := a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 when the session is reused, got %d", w.Code)
	}

	eventually(t, func() bool {
		snap := decode[session.Snapshot](t, a.do(t, customer, http.MethodGet, "/v1/tracking/snapshot", nil))
		return snap.Ride != nil && snap.Ride.Status == domain.PresentationSearching
	}, "snapshot never showed the searching ride")

	if w := a.do(t, customer, http.MethodDelete, "/v1/tracking/session", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 on stop, got %d", w.Code)
	}
	if w := a.do(t, customer, http.MethodDelete, "/v1/tracking/session", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when no session is running, got %d", w.Code)
	}
}

func TestHTTP_CancelRequiresConfirmation(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.AddRide("ride-1", customer.id, "", domain.RideStatusPending)
	a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil)

	eventually(t, func() bool {
		s, ok := a.registry.Get(customer.id, customer.role)
		return ok && s.Controller().Status() == domain.PresentationSearching
	}, "session never loaded the ride")

	w := a.do(t, customer, http.MethodPost, "/v1/tracking/actions/cancel/confirm", map[string]string{"token": "guess"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a confirmation without a request, got %d", w.Code)
	}

	w = a.do(t, customer, http.MethodPost, "/v1/tracking/actions/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from cancel request, got %d: %s", w.Code, w.Body.String())
	}
	token := decode[handler.CancelTokenResponse](t, w).Token
	if token == "" {
		t.Fatal("expected a cancel token")
	}
	if got := a.Rides.GetRide("ride-1").Status; got != domain.RideStatusPending {
		t.Fatalf("requesting cancel must not mutate, ride is %s", got)
	}

	w = a.do(t, customer, http.MethodPost, "/v1/tracking/actions/cancel/confirm", map[string]string{"token": token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from confirm, got %d: %s", w.Code, w.Body.String())
	}
	if got := a.Rides.GetRide("ride-1").Status; got != domain.RideStatusCancelled {
		t.Errorf("expected cancelled ride, got %s", got)
	}
}

func TestHTTP_UnknownAction(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil)

	if w := a.do(t, customer, http.MethodPost, "/v1/tracking/actions/teleport", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown action, got %d", w.Code)
	}
	if w := a.do(t, customer, http.MethodPost, "/v1/tracking/location", map[string]float64{"lat": 1, "lng": 1}); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 when a customer pushes a fix, got %d", w.Code)
	}
}

func TestHTTP_FareEstimateThenDispatch(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil)

	q := domain.FareQuery{DistanceKm: 5.2, VehicleType: domain.VehicleBoda}
	if w := a.do(t, customer, http.MethodPut, "/v1/tracking/fare", q); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 from fare update, got %d: %s", w.Code, w.Body.String())
	}

	eventually(t, func() bool {
		e := decode[fare.Estimate](t, a.do(t, customer, http.MethodGet, "/v1/tracking/fare", nil))
		return e.Status == fare.StatusReady && e.Quote != nil && e.Quote.Fare == 3600
	}, "fare estimate never became ready")

	w := a.do(t, customer, http.MethodPost, "/v1/tracking/fare/dispatch", handler.DispatchRequest{
		Query: q,
		Order: fare.Order{Pickup: kariakoo, Dropoff: mlimaniCity, ContactPhone: "+255700000001"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 from dispatch, got %d: %s", w.Code, w.Body.String())
	}
	ride := decode[domain.Ride](t, w)
	if ride.Status != domain.RideStatusPending || ride.FareEstimate != 3600 {
		t.Errorf("expected pending ride at 3600, got %s %v", ride.Status, ride.FareEstimate)
	}

	stale := domain.FareQuery{DistanceKm: 9, VehicleType: domain.VehicleBoda}
	w = a.do(t, customer, http.MethodPost, "/v1/tracking/fare/dispatch", handler.DispatchRequest{Query: stale})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a query that was never estimated, got %d", w.Code)
	}
}

func TestHTTP_FareEstimateEndpoint(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)

	w := a.do(t, customer, http.MethodGet, "/v1/fares/estimate?distance_km=5.2&vehicle_type=boda", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if quote := decode[domain.FareQuote](t, w); quote.Fare != 3600 || quote.Currency != "TZS" {
		t.Errorf("expected 3600 TZS, got %v %s", quote.Fare, quote.Currency)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing distance", "vehicle_type=boda"},
		{"unknown vehicle", "distance_km=3&vehicle_type=rocket"},
		{"bad area", "distance_km=3&vehicle_type=boda&pickup_area=!!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := a.do(t, customer, http.MethodGet, "/v1/fares/estimate?"+tt.query, nil); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestHTTP_GatewayStatusCodes(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.AddDriver(driver.id)
	a.AddRide("ride-1", customer.id, "", domain.RideStatusPending)

	if w := a.do(t, customer, http.MethodPost, "/v1/rides/ride-1/accept", nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 when a customer accepts, got %d", w.Code)
	}
	if w := a.do(t, driver, http.MethodPost, "/v1/rides/missing/accept", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown ride, got %d", w.Code)
	}
	if w := a.do(t, driver, http.MethodPost, "/v1/rides/ride-1/accept", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on accept, got %d: %s", w.Code, w.Body.String())
	}

	w := a.do(t, driver, http.MethodPost, "/v1/rides/ride-1/status", map[string]string{"status": "delivered"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a skipped stage, got %d", w.Code)
	}
	w = a.do(t, driver, http.MethodPost, "/v1/rides/ride-1/status", map[string]string{"status": "loading"})
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for the next stage, got %d: %s", w.Code, w.Body.String())
	}

	w = a.do(t, customer, http.MethodPost, "/v1/rides/ride-1/messages", map[string]string{"body": "I'm at the gate"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on send, got %d: %s", w.Code, w.Body.String())
	}
	w = a.do(t, driver, http.MethodGet, "/v1/rides/ride-1/messages", nil)
	if msgs := decode[[]domain.Message](t, w); len(msgs) != 1 || msgs[0].Body != "I'm at the gate" {
		t.Errorf("expected the message to be listed, got %+v", msgs)
	}
	if w := a.do(t, caller{id: "stranger", role: domain.RoleCustomer}, http.MethodGet, "/v1/rides/ride-1/messages", nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a non-participant, got %d", w.Code)
	}
}

func TestHTTP_DriverRegistrationAndLocation(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)

	w := a.do(t, driver, http.MethodPost, "/v1/drivers/register", handler.RegisterDriverRequest{
		Name: "Juma", Phone: "+255711000001", VehicleType: domain.VehicleBajaji, VehiclePlate: "MC 456 DEF",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[handler.DriverResponse](t, w); resp.ID != driver.id {
		t.Errorf("expected the caller id as driver id, got %q", resp.ID)
	}

	w = a.do(t, driver, http.MethodPost, "/v1/drivers/location", map[string]float64{"lat": kariakoo.Lat, "lng": kariakoo.Lng})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if !a.Locations.HasLocation(driver.id) {
		t.Error("expected the location to be stored")
	}

	w = a.do(t, driver, http.MethodPost, "/v1/drivers/location", map[string]float64{"lat": 91, "lng": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid coordinate, got %d", w.Code)
	}

	if w := a.do(t, driver, http.MethodPost, "/v1/drivers/offline", nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 on offline, got %d", w.Code)
	}
	if a.Locations.HasLocation(driver.id) {
		t.Error("expected the location to be removed")
	}
}

func TestHTTP_IdempotentReplay(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	body := map[string]any{"location": map[string]float64{"lat": kariakoo.Lat, "lng": kariakoo.Lng}}

	for i := 0; i < 2; i++ {
		w := a.do(t, customer, http.MethodPost, "/v1/sos", body, "Idempotency-Key", "sos-1")
		if w.Code != http.StatusAccepted {
			t.Fatalf("attempt %d: expected 202, got %d", i, w.Code)
		}
		if i == 1 && w.Header().Get("Idempotent-Replay") != "true" {
			t.Error("expected the retry to be replayed")
		}
	}
	if n := len(a.SOS.Alerts()); n != 1 {
		t.Errorf("expected one alert for a retried request, got %d", n)
	}

	a.do(t, customer, http.MethodPost, "/v1/sos", body, "Idempotency-Key", "sos-2")
	if n := len(a.SOS.Alerts()); n != 2 {
		t.Errorf("expected a new key to raise a new alert, got %d", n)
	}
}

func TestHTTP_StreamSendsSnapshotFirst(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	a.AddRide("ride-1", customer.id, "", domain.RideStatusPending)
	a.do(t, customer, http.MethodPost, "/v1/tracking/session", nil)
	eventually(t, func() bool {
		s, ok := a.registry.Get(customer.id, customer.role)
		return ok && s.Controller().Status() == domain.PresentationSearching
	}, "session never loaded the ride")

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	header := http.Header{}
	header.Set("X-User-ID", customer.id)
	header.Set("X-User-Role", string(customer.role))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/tracking/stream"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev session.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != session.EventSnapshot || ev.Snapshot == nil {
		t.Errorf("expected a snapshot first, got %+v", ev)
	}

	if err := a.Backend.CancelRide(context.Background(), customer.id, "ride-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	for {
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type == session.EventSnapshot && ev.Snapshot.Ride != nil &&
			ev.Snapshot.Ride.Status == domain.PresentationCancelled {
			return
		}
	}
}

func TestHTTP_StreamWithoutSession(t *testing.T) {
	t.Parallel()

	a := newAPIFixture(t)
	if w := a.do(t, customer, http.MethodGet, "/v1/tracking/stream", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a session, got %d", w.Code)
	}
}
