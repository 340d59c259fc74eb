package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		input   string
		want    loadMode
		wantErr bool
	}{
		{input: "orders", want: modeOrders},
		{input: " orders-cancel ", want: modeOrdersCancel},
		{input: "movements", want: modeMovements},
		{input: "create-pay", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseMode(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMode(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseMode(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseConfig(t *testing.T) {
	withCLIArgs(t, []string{
		"-addr=http://localhost:9999",
		"-total=10",
		"-concurrency=2",
		"-connections=3",
		"-timeout=2s",
		"-mode=movements",
		"-quantity=5",
	}, func() {
		cfg, err := parseConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.baseURL != "http://localhost:9999" {
			t.Errorf("unexpected addr: %s", cfg.baseURL)
		}
		if cfg.total != 10 || !cfg.totalSet {
			t.Errorf("unexpected total: %d (set=%v)", cfg.total, cfg.totalSet)
		}
		if cfg.mode != modeMovements {
			t.Errorf("unexpected mode: %s", cfg.mode)
		}
		if cfg.quantity != 5 {
			t.Errorf("unexpected quantity: %d", cfg.quantity)
		}
	})

	invalidCases := [][]string{
		{"-total=0"},
		{"-concurrency=0"},
		{"-connections=0"},
		{"-timeout=0s"},
		{"-mode=unknown"},
		{"-quantity=0"},
		{"-cancel-rate=101"},
		{"-duration=-1s"},
		{"-price="},
	}
	for _, args := range invalidCases {
		withCLIArgs(t, args, func() {
			if _, err := parseConfig(); err == nil {
				t.Errorf("expected error for args %v", args)
			}
		})
	}
}

func TestDispatchJobs_CountMode(t *testing.T) {
	jobs := make(chan int, 16)
	dispatchJobs(jobs, config{total: 5})

	var got []int
	for id := range jobs {
		got = append(got, id)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(got))
	}
}

func TestDispatchJobs_DurationMode(t *testing.T) {
	jobs := make(chan int, 1024)
	done := make(chan struct{})

	var count int
	go func() {
		defer close(done)
		for range jobs {
			count++
		}
	}()

	dispatchJobs(jobs, config{duration: 50 * time.Millisecond})
	<-done

	if count == 0 {
		t.Fatal("expected at least one job in duration mode")
	}
}

func TestDispatchJobs_DurationWithTotalCap(t *testing.T) {
	jobs := make(chan int, 16)
	dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})

	var count int
	for range jobs {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 jobs with explicit total cap, got %d", count)
	}
}

func TestCollectorAndReport(t *testing.T) {
	col := newCollector()

	col.record("CreateOrder", 10*time.Millisecond, http.StatusCreated, true)
	col.record("CreateOrder", 30*time.Millisecond, http.StatusConflict, false)
	col.record("scenario", 40*time.Millisecond, http.StatusOK, true)
	col.record("scenario", 50*time.Millisecond, http.StatusInternalServerError, false)

	result := col.buildReport(time.Now(), 100*time.Millisecond)

	if result.TotalScenarios != 2 {
		t.Errorf("expected 2 scenarios, got %d", result.TotalScenarios)
	}
	if result.SuccessScenarios != 1 || result.FailedScenarios != 1 {
		t.Errorf("unexpected scenario counters: %+v", result)
	}
	if result.ErrorRate != 0.5 {
		t.Errorf("expected error rate 0.5, got %f", result.ErrorRate)
	}
	if result.RPS <= 0 {
		t.Error("expected positive RPS")
	}

	created, ok := result.Endpoints["CreateOrder"]
	if !ok {
		t.Fatal("expected CreateOrder endpoint in report")
	}
	if created.Calls != 2 || created.Success != 1 || created.Failed != 1 {
		t.Errorf("unexpected CreateOrder counters: %+v", created)
	}
	if created.Statuses["201"] != 1 || created.Statuses["409"] != 1 {
		t.Errorf("unexpected status breakdown: %v", created.Statuses)
	}
	if created.LatencyMs.Min != 10 || created.LatencyMs.Max != 30 {
		t.Errorf("unexpected latency bounds: %+v", created.LatencyMs)
	}
}

func TestUtilityFunctions(t *testing.T) {
	if statusLabel(0) != "transport_error" {
		t.Error("expected transport_error label for status 0")
	}
	if statusLabel(404) != "404" {
		t.Error("expected 404 label")
	}

	if shouldCancelScenario(5, 0) {
		t.Error("cancel rate 0 must never cancel")
	}
	if !shouldCancelScenario(5, 100) {
		t.Error("cancel rate 100 must always cancel")
	}
	if !shouldCancelScenario(10, 50) || shouldCancelScenario(60, 50) {
		t.Error("cancel rate 50 must cancel the first half of each hundred")
	}

	if ratio(1, 0) != 0 {
		t.Error("ratio with zero total must be 0")
	}
	if ratio(1, 4) != 0.25 {
		t.Error("expected ratio 0.25")
	}

	summary := buildLatencySummary([]float64{1, 2, 3, 4})
	if summary.Min != 1 || summary.Max != 4 {
		t.Errorf("unexpected summary bounds: %+v", summary)
	}
	if summary.Avg != 2.5 {
		t.Errorf("unexpected avg: %f", summary.Avg)
	}
	if summary.P50 != 2.5 {
		t.Errorf("unexpected p50: %f", summary.P50)
	}

	if buildLatencySummary(nil) != (latencySummary{}) {
		t.Error("empty summary must be zero value")
	}

	if percentile([]float64{7}, 95) != 7 {
		t.Error("single-value percentile must return the value")
	}
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	result := report{TotalScenarios: 3}
	if err := writeJSONReport(path, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 3 {
		t.Errorf("unexpected scenarios: %d", decoded.TotalScenarios)
	}

	if err := writeJSONReport(".", result); err == nil {
		t.Error("expected error for directory path")
	}
	if err := writeJSONReport("../escape.json", result); err == nil {
		t.Error("expected error for path outside current directory")
	}
}

type fakeAPIState struct {
	mu              sync.Mutex
	ordersCreated   int
	ordersCancelled int
	movements       int
	idempotencyKeys map[string]int
}

func (s *fakeAPIState) inc(counter *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return *counter
}

func (s *fakeAPIState) get(counter *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *counter
}

func (s *fakeAPIState) recordKey(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotencyKeys[key]++
}

// newFakeAPIServer поднимает httptest-сервер, имитирующий REST API сервиса.
func newFakeAPIServer(t *testing.T) (*httptest.Server, *fakeAPIState) {
	t.Helper()

	state := &fakeAPIState{idempotencyKeys: make(map[string]int)}

	mux := http.NewServeMux()
	respondCreated := func(w http.ResponseWriter, id string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	}

	mux.HandleFunc("POST /api/categories", func(w http.ResponseWriter, _ *http.Request) {
		respondCreated(w, "cat-1")
	})
	mux.HandleFunc("POST /api/products", func(w http.ResponseWriter, _ *http.Request) {
		respondCreated(w, "prod-1")
	})
	mux.HandleFunc("POST /api/customers", func(w http.ResponseWriter, _ *http.Request) {
		respondCreated(w, "cust-1")
	})
	mux.HandleFunc("POST /api/users", func(w http.ResponseWriter, _ *http.Request) {
		respondCreated(w, "user-1")
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		state.recordKey(r.Header.Get(idempotencyHeader))
		n := state.inc(&state.ordersCreated)
		respondCreated(w, fmt.Sprintf("order-%d", n))
	})
	mux.HandleFunc("PUT /api/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		state.recordKey(r.Header.Get(idempotencyHeader))
		state.inc(&state.ordersCancelled)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": r.PathValue("id"), "status": "cancelled"})
	})
	mux.HandleFunc("POST /api/movements", func(w http.ResponseWriter, r *http.Request) {
		state.recordKey(r.Header.Get(idempotencyHeader))
		n := state.inc(&state.movements)
		respondCreated(w, fmt.Sprintf("mov-%d", n))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, state
}

func TestRunScenario_Orders(t *testing.T) {
	server, state := newFakeAPIServer(t)

	cfg := config{
		baseURL:     server.URL,
		mode:        modeOrdersCancel,
		quantity:    1,
		timeout:     2 * time.Second,
		connections: 2,
	}
	col := newCollector()
	client := newAPIClient(cfg, col)

	fx := fixtures{productID: "prod-1", customerID: "cust-1", userID: "user-1"}
	if err := runScenario(client, cfg, fx, 0, "run", col); err != nil {
		t.Fatalf("unexpected scenario error: %v", err)
	}

	if state.get(&state.ordersCreated) != 1 {
		t.Error("expected one created order")
	}
	if state.get(&state.ordersCancelled) != 1 {
		t.Error("expected one cancelled order in orders-cancel mode")
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.idempotencyKeys["lt-create-run-0"] != 1 {
		t.Errorf("expected create idempotency key, got %v", state.idempotencyKeys)
	}
	if state.idempotencyKeys["lt-cancel-run-0"] != 1 {
		t.Errorf("expected cancel idempotency key, got %v", state.idempotencyKeys)
	}
}

func TestRunScenario_Movements(t *testing.T) {
	server, state := newFakeAPIServer(t)

	cfg := config{
		baseURL:     server.URL,
		mode:        modeMovements,
		quantity:    2,
		timeout:     2 * time.Second,
		connections: 2,
	}
	col := newCollector()
	client := newAPIClient(cfg, col)

	fx := fixtures{productID: "prod-1", customerID: "cust-1", userID: "user-1"}
	for i := 0; i < 2; i++ {
		if err := runScenario(client, cfg, fx, i, "run", col); err != nil {
			t.Fatalf("unexpected scenario error: %v", err)
		}
	}

	if state.get(&state.movements) != 2 {
		t.Errorf("expected 2 movements, got %d", state.get(&state.movements))
	}
}

func TestSeedFixtures(t *testing.T) {
	server, _ := newFakeAPIServer(t)

	cfg := config{
		baseURL:     server.URL,
		total:       4,
		quantity:    1,
		timeout:     2 * time.Second,
		connections: 2,
	}
	col := newCollector()
	client := newAPIClient(cfg, col)

	fx, err := seedFixtures(client, cfg, "run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.productID != "prod-1" || fx.customerID != "cust-1" || fx.userID != "user-1" {
		t.Errorf("unexpected fixtures: %+v", fx)
	}
}

func TestAPIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"kind":"insufficient_stock"}}`))
	}))
	t.Cleanup(server.Close)

	col := newCollector()
	client := newAPIClient(config{baseURL: server.URL, timeout: time.Second, connections: 1}, col)

	status, err := client.call("CreateOrder", http.MethodPost, "/api/orders", "", map[string]any{}, nil)
	if err == nil {
		t.Fatal("expected error for conflict response")
	}
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}

	result := col.buildReport(time.Now(), time.Second)
	endpoint := result.Endpoints["CreateOrder"]
	if endpoint.Failed != 1 {
		t.Errorf("expected one failed call, got %+v", endpoint)
	}
	if endpoint.Statuses["409"] != 1 {
		t.Errorf("expected 409 in status breakdown, got %v", endpoint.Statuses)
	}
}

func TestPrintReport(t *testing.T) {
	result := report{
		TotalScenarios:   10,
		SuccessScenarios: 9,
		FailedScenarios:  1,
		ErrorRate:        0.1,
		RPS:              100,
		DurationSeconds:  0.1,
		Endpoints: map[string]endpointReport{
			"scenario":    {Calls: 10},
			"CreateOrder": {Calls: 10, Success: 9, Failed: 1, ErrorRate: 0.1},
		},
	}

	output := captureStdout(t, func() {
		printReport(result, config{mode: modeOrders, total: 10})
	})

	if !strings.Contains(output, "Load test summary") {
		t.Error("expected summary header")
	}
	if !strings.Contains(output, "CreateOrder") {
		t.Error("expected per-endpoint line")
	}
	if strings.Contains(output, "scenario:") {
		t.Error("scenario pseudo-endpoint must not be printed as endpoint")
	}
}

func TestRunTarget(t *testing.T) {
	if got := runTarget(config{total: 5}); got != "count:5" {
		t.Errorf("unexpected target: %s", got)
	}
	if got := runTarget(config{duration: time.Minute}); got != "duration:1m0s" {
		t.Errorf("unexpected target: %s", got)
	}
	if got := runTarget(config{duration: time.Minute, total: 7, totalSet: true}); got != "duration:1m0s,max-total:7" {
		t.Errorf("unexpected target: %s", got)
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stdout: %v", err)
	}
	return string(data)
}
