package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/rms/internal/health"
	"github.com/vladislavdragonenkov/rms/internal/storage/memory"
	"github.com/vladislavdragonenkov/rms/internal/version"
)

// brokenDishes отдаёт ошибку курсора при перечислении блюд.
type brokenDishes struct {
	*memory.Repository[domain.Dish]
}

func (brokenDishes) FindAll(context.Context) iter.Seq2[domain.Dish, error] {
	return func(yield func(domain.Dish, error) bool) {
		yield(domain.Dish{}, errors.New("cursor killed"))
	}
}

// serveDiagnostics поднимает сервер метрик для deps и ждёт, пока он начнёт отвечать.
func serveDiagnostics(t *testing.T, deps *runtimeDependencies) string {
	t.Helper()

	logger := log.WithField("test", t.Name())
	services := newServices(deps, nil, DefaultConfig(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	startMetricsServer(ctx, addr, logger, newHealthHandler(deps, services))

	base := "http://" + addr
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(base + "/livez")
		if err == nil {
			resp.Body.Close()
			return base
		}
		if time.Now().After(deadline) {
			t.Fatalf("diagnostics server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func getHealth(t *testing.T, base string) (int, healthcheck.Response) {
	t.Helper()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("get /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body healthcheck.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /healthz: %v", err)
	}
	return resp.StatusCode, body
}

func getStatus(t *testing.T, url string) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestDiagnostics_SQLiteStorageAndCatalog(t *testing.T) {
	ctx := context.Background()
	deps, err := initRuntimeDependencies(ctx, Config{
		StorageDriver: StorageDriverSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "rms.db"),
	}, log.WithField("test", "diagnostics"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { deps.close(log.WithField("test", "diagnostics")) })

	if _, err := deps.clients.Save(ctx, domain.Client{FirstName: "Ana", LastName: "Ruiz"}); err != nil {
		t.Fatalf("save client: %v", err)
	}
	if _, err := deps.dishes.Save(ctx, domain.Dish{Name: "Ceviche", Price: decimal.RequireFromString("12.50"), Active: true}); err != nil {
		t.Fatalf("save dish: %v", err)
	}

	base := serveDiagnostics(t, deps)

	code, body := getHealth(t, base)
	if code != http.StatusOK || body.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy 200, got %d %s", code, body.Status)
	}
	if body.Version != version.GetVersion() {
		t.Errorf("unexpected version %q", body.Version)
	}
	if storage := body.Checks["storage"]; storage.Name != "sqlite" || storage.Status != healthcheck.StatusHealthy {
		t.Errorf("unexpected storage check: %+v", storage)
	}
	if catalog := body.Checks["catalog"]; catalog.Message != "clients=1 dishes=1 invoices=0 menus=0" {
		t.Errorf("unexpected catalog summary: %q", catalog.Message)
	}

	if code := getStatus(t, base+"/readyz"); code != http.StatusOK {
		t.Errorf("/readyz returned %d", code)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("get /metrics: %v", err)
	}
	defer resp.Body.Close()
	metrics, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(metrics), "go_goroutines") {
		t.Error("/metrics should expose the default prometheus registry")
	}
}

func TestDiagnostics_ClosedSQLiteIsNotReady(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "rms.db"),
	}, log.WithField("test", "diagnostics"))
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	base := serveDiagnostics(t, deps)

	if err := deps.closeFn(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	code, body := getHealth(t, base)
	if code != http.StatusServiceUnavailable || body.Checks["storage"].Status != healthcheck.StatusUnhealthy {
		t.Fatalf("expected unhealthy sqlite, got %d %+v", code, body.Checks["storage"])
	}
	if code := getStatus(t, base+"/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("/readyz returned %d, expected 503", code)
	}
	if code := getStatus(t, base+"/livez"); code != http.StatusOK {
		t.Errorf("/livez returned %d, expected 200", code)
	}
}

func TestDiagnostics_CatalogFailureOnlyDegrades(t *testing.T) {
	deps := &runtimeDependencies{
		clients:  memory.NewRepository[domain.Client](),
		dishes:   brokenDishes{memory.NewRepository[domain.Dish]()},
		menus:    memory.NewRepository[domain.Menu](),
		invoices: memory.NewRepository[domain.Invoice](),
	}
	base := serveDiagnostics(t, deps)

	code, body := getHealth(t, base)
	if code != http.StatusOK || body.Status != healthcheck.StatusDegraded {
		t.Fatalf("expected degraded 200, got %d %s", code, body.Status)
	}
	if msg := body.Checks["catalog"].Message; !strings.HasPrefix(msg, "dishes: ") || !strings.Contains(msg, "cursor killed") {
		t.Errorf("unexpected catalog message %q", msg)
	}
	if code := getStatus(t, base+"/readyz"); code != http.StatusOK {
		t.Errorf("degraded catalog must keep /readyz at 200, got %d", code)
	}
}

func TestStartMetricsServer_StopsOnCancel(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")
	addr := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	srv := startMetricsServer(ctx, addr, logger, healthcheck.NewHandler(version.GetVersion()))
	if srv == nil {
		t.Fatal("startMetricsServer returned nil")
	}

	url := "http://" + addr + "/livez"
	deadline := time.Now().Add(2 * time.Second)
	for getErr(url) != nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	deadline = time.Now().Add(2 * time.Second)
	for getErr(url) == nil {
		if time.Now().After(deadline) {
			t.Fatal("server should stop after context cancellation")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// повторная остановка и nil безопасны
	shutdownHTTP(srv, logger)
	shutdownHTTP(nil, logger)
}

func getErr(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
