// Package integration exercita o servidor completo: HTTP, websocket e
// persistência das quotes em arquivo e, quando disponível, PostgreSQL.
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/cleberrangel/brickrate-api/internal/cache"
	"github.com/cleberrangel/brickrate-api/internal/database"
	"github.com/cleberrangel/brickrate-api/internal/handler"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/migration"
	"github.com/cleberrangel/brickrate-api/internal/repository"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

type store interface {
	repository.KeyValueStore
	repository.Pinger
}

// TestContext holds all dependencies for integration tests
type TestContext struct {
	Server    *httptest.Server
	Hub       *websocket.Hub
	Store     store
	Estimates *service.EstimateService
}

type backend struct {
	name string
	open func(t *testing.T) store
}

// backends retorna o file store sempre e o postgres quando houver banco acessível
func backends() []backend {
	return []backend{
		{name: "file", open: openFileStore},
		{name: "postgres", open: openPostgresStore},
	}
}

func openFileStore(t *testing.T) store {
	fs, err := repository.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}
	return fs
}

func openPostgresStore(t *testing.T) store {
	dbConfig := database.Config{
		Host:     getEnvOrDefault("TEST_DB_HOST", "127.0.0.1"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "postgres"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "postgres"),
		DBName:   fmt.Sprintf("test_integration_%d", time.Now().UnixNano()),
		SSLMode:  "disable",

		// sem banco local o teste é pulado sem esperar retentativas
		ConnectAttempts: 1,
	}

	adminConfig := dbConfig
	adminConfig.DBName = "postgres"

	adminDB, err := database.Connect(context.Background(), adminConfig)
	if err != nil {
		t.Skipf("Skipping test: could not connect to PostgreSQL: %v", err)
	}
	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbConfig.DBName))
	adminDB.Close()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	testDB, err := database.Connect(context.Background(), dbConfig)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migration.NewMigrator(testDB).Run(context.Background()); err != nil {
		testDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		dropDatabase(testDB, adminConfig, dbConfig.DBName)
	})

	return repository.NewPostgresStore(testDB)
}

func dropDatabase(db *sql.DB, adminConfig database.Config, name string) {
	db.Close()
	adminDB, _ := database.Connect(context.Background(), adminConfig)
	if adminDB != nil {
		adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
		adminDB.Close()
	}
}

// setupTestContext monta o servidor completo sobre o store informado
func setupTestContext(t *testing.T, kv store) *TestContext {
	t.Helper()
	gin.SetMode(gin.TestMode)

	state := cache.NewCache(service.DefaultStateTTL)
	auth := service.NewAuthService(repository.NewUserRepository(kv), repository.NewSessionRepository(kv), time.Hour)
	estimates := service.NewEstimateService(repository.NewQuoteStore(kv), state, 0)
	sessions := middleware.NewSessionMiddleware(auth, middleware.SessionConfig{CookieHTTPOnly: true})
	limiter := middleware.NewRateLimiter(600)

	hub := websocket.NewHub(handler.NewCommandHandler(estimates, auth, limiter))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	deliveries := service.NewDeliveryQueue(service.NewWebhookService(true), handler.NewDeliveryNotifier(hub), service.QueueConfig{
		Workers:    1,
		RetryDelay: 10 * time.Millisecond,
	})
	deliveries.Start(ctx)

	router := handler.NewRouter(handler.RouterDeps{
		Version:    "integration",
		Store:      kv,
		Auth:       auth,
		Estimates:  estimates,
		Deliveries: deliveries,
		Sessions:   sessions,
		Limiter:    limiter,
		Hub:        hub,
	})
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		deliveries.Wait()
		state.Stop()
	})

	return &TestContext{Server: srv, Hub: hub, Store: kv, Estimates: estimates}
}

func (tc *TestContext) post(t *testing.T, path, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, tc.Server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.send(t, req)
}

func (tc *TestContext) get(t *testing.T, path string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, tc.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.send(t, req)
}

func (tc *TestContext) send(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s: %v", req.URL.Path, err)
		}
	}
	return resp, body
}

func (tc *TestContext) signup(t *testing.T, email string) string {
	t.Helper()
	resp, body := tc.post(t, "/api/auth/signup", `{"email":"`+email+`","password":"secret1"}`, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d: %v", resp.StatusCode, body)
	}
	sessionID, _ := body["session_id"].(string)
	return sessionID
}

func (tc *TestContext) dial(t *testing.T, sessionID, clientID string) *gorilla.Conn {
	t.Helper()
	header := http.Header{}
	if clientID != "" {
		header.Set(middleware.HeaderClientID, clientID)
	}
	url := websocket.BuildWebSocketURL(tc.Server.URL+"/ws/voice", sessionID)
	conn, _, err := gorilla.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := readWS(t, conn); msg.Type != websocket.TypeConnection {
		t.Fatalf("first message = %q, want connection", msg.Type)
	}
	return conn
}

func readWS(t *testing.T, conn *gorilla.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return msg
}

// say envia um comando e devolve a mensagem de resultado, ignorando broadcasts
func say(t *testing.T, conn *gorilla.Conn, text string) map[string]interface{} {
	t.Helper()
	err := conn.WriteJSON(map[string]interface{}{
		"type": websocket.TypeCommand,
		"data": websocket.CommandPayload{Text: text},
	})
	if err != nil {
		t.Fatalf("write websocket: %v", err)
	}

	for {
		msg := readWS(t, conn)
		switch msg.Type {
		case websocket.TypeResult:
			data, _ := msg.Data.(map[string]interface{})
			return data
		case websocket.TypeError:
			t.Fatalf("command %q failed: %v", text, msg.Data)
		}
	}
}

// TestVoiceWorkflow: estimativa, save e download por voz com usuário logado
func TestVoiceWorkflow(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			tc := setupTestContext(t, b.open(t))

			anon := tc.dial(t, "", "tab-anon")
			say(t, anon, "estimate two bhk in mumbai 10 by 8")
			if got := say(t, anon, "save"); got["message"] != service.MsgLoginToSave {
				t.Errorf("anonymous save message = %v", got["message"])
			}

			sessionID := tc.signup(t, "ana@example.com")
			conn := tc.dial(t, sessionID, "")

			result := say(t, conn, "estimate two bhk in mumbai 10 by 8")
			avg := result["result"].(map[string]interface{})["estimate"].(map[string]interface{})["avg_total"]
			if avg != float64(1602700) {
				t.Errorf("avg_total = %v, want 1602700", avg)
			}

			// só as dimensões mudam; cidade e tipo vêm do último request
			if got := say(t, conn, "calculate 12 by 10"); got["intent"].(map[string]interface{})["kind"] != "estimate" {
				t.Errorf("follow-up intent = %v", got["intent"])
			}

			if got := say(t, conn, "save"); got["message"] != service.MsgQuoteSaved {
				t.Errorf("save message = %v", got["message"])
			}
			if got := say(t, conn, "download pdf"); got["download_url"] != handler.LatestReportPath {
				t.Errorf("download_url = %v", got["download_url"])
			}

			resp, _ := tc.get(t, handler.LatestReportPath, map[string]string{middleware.HeaderSessionID: sessionID})
			if resp.StatusCode != http.StatusOK {
				t.Errorf("latest report status = %d", resp.StatusCode)
			}

			_, body := tc.get(t, "/api/quotes", nil)
			if count := body["data"].(map[string]interface{})["count"]; count != float64(1) {
				t.Errorf("quotes count = %v, want 1", count)
			}
		})
	}
}

// TestQuotesPersistAcrossRestart: quotes sobrevivem a um novo servidor sobre o mesmo store
func TestQuotesPersistAcrossRestart(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			kv := b.open(t)
			first := setupTestContext(t, kv)

			sessionID := first.signup(t, "raj@example.com")
			hdr := map[string]string{middleware.HeaderSessionID: sessionID}
			first.post(t, "/api/commands", `{"text":"estimate kothi in pune 12 by 10 2 floors"}`, hdr)
			if resp, body := first.post(t, "/api/quotes", "", hdr); resp.StatusCode != http.StatusCreated {
				t.Fatalf("save status = %d: %v", resp.StatusCode, body)
			}

			second := setupTestContext(t, kv)
			_, body := second.get(t, "/api/quotes", nil)
			if count := body["data"].(map[string]interface{})["count"]; count != float64(1) {
				t.Fatalf("quotes after restart = %v, want 1", count)
			}

			// a sessão também está no store compartilhado
			resp, _ := second.get(t, "/api/auth/me", hdr)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("me after restart status = %d", resp.StatusCode)
			}
		})
	}
}

// TestQuoteBroadcast: salvar pelo HTTP avisa as conexões websocket abertas
func TestQuoteBroadcast(t *testing.T) {
	tc := setupTestContext(t, openFileStore(t))

	listener := tc.dial(t, "", "watcher")

	_, stats := tc.get(t, "/ws/stats", map[string]string{middleware.HeaderClientID: "watcher"})
	data, _ := stats["data"].(map[string]interface{})
	if conns, _ := data["connections"].([]interface{}); len(conns) != 1 || data["client_connections"] != float64(1) {
		t.Errorf("ws stats = %v", stats)
	}

	sessionID := tc.signup(t, "ana@example.com")
	hdr := map[string]string{middleware.HeaderSessionID: sessionID}

	tc.post(t, "/api/commands", `{"text":"estimate in delhi 10 by 10"}`, hdr)
	if resp, _ := tc.post(t, "/api/quotes", "", hdr); resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	msg := readWS(t, listener)
	if msg.Type != "quotes_changed" {
		t.Fatalf("type = %q, want quotes_changed", msg.Type)
	}
	if data, _ := msg.Data.(map[string]interface{}); data["count"] != float64(1) {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

// TestDeliveryNotifications: o status da entrega chega pelo websocket do mesmo cliente
func TestDeliveryNotifications(t *testing.T) {
	tc := setupTestContext(t, openFileStore(t))

	received := make(chan string, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err == nil {
			received <- r.FormValue("city")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	sessionID := tc.signup(t, "ana@example.com")
	conn := tc.dial(t, sessionID, "")
	hdr := map[string]string{middleware.HeaderSessionID: sessionID}

	say(t, conn, "estimate two bhk in pune 10 by 8")
	resp, body := tc.post(t, "/api/reports/latest/webhook", `{"webhook_url":"`+hook.URL+`"}`, hdr)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("webhook status = %d: %v", resp.StatusCode, body)
	}

	select {
	case city := <-received:
		if !strings.EqualFold(city, "pune") {
			t.Errorf("city = %q, want Pune", city)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not called")
	}

	for {
		msg := readWS(t, conn)
		if msg.Type != websocket.TypeDelivery {
			continue
		}
		data, _ := msg.Data.(map[string]interface{})
		if data["status"] == service.JobStatusCompleted {
			break
		}
		if data["status"] == service.JobStatusFailed {
			t.Fatalf("delivery failed: %v", data["error"])
		}
	}
}

// TestConcurrentClients: estimativas simultâneas não vazam entre clientes
func TestConcurrentClients(t *testing.T) {
	tc := setupTestContext(t, openFileStore(t))

	cities := []string{"mumbai", "pune", "bhopal", "delhi", "indore", "nagpur", "surat", "jaipur"}
	var wg sync.WaitGroup
	errs := make(chan error, len(cities))

	for i, city := range cities {
		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()
			hdr := map[string]string{middleware.HeaderClientID: fmt.Sprintf("tab-%d", i)}
			body := fmt.Sprintf(`{"text":"estimate two bhk in %s 10 by 8"}`, city)

			req, _ := http.NewRequest(http.MethodPost, tc.Server.URL+"/api/commands", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range hdr {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("%s: status %d", city, resp.StatusCode)
			}
		}(i, city)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	for i, city := range cities {
		est, ok := tc.Estimates.LastEstimate(fmt.Sprintf("client:tab-%d", i))
		if !ok {
			t.Errorf("no estimate for tab-%d", i)
			continue
		}
		if !strings.EqualFold(est.CityName, city) {
			t.Errorf("tab-%d city = %q, want %q", i, est.CityName, city)
		}
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
