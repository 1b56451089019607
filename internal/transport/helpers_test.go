package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventory-ledger/internal/middleware"
	"inventory-ledger/internal/repository/memory"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/stock"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "transport-test-secret"

type testAPI struct {
	router http.Handler
	store  *memory.Store
	users  service.UserService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.New()
	engine := stock.NewEngine()
	logger := zap.NewNop()
	repos := store.Repositories()
	users := service.NewUserService(repos.Users, repos.RefreshTokens, testSecret,
		service.WithAdminEmails("admin@example.com"))
	ledger := service.NewLedgerService(store, engine, logger)

	auth := middleware.AuthMiddleware(testSecret, logger)
	r := chi.NewRouter()
	NewUserHandler(users, logger).RegisterRoutes(r, auth)
	NewCatalogHandler(service.NewCatalogService(store, engine), logger).RegisterRoutes(r, auth)
	NewLedgerHandler(ledger, logger).RegisterRoutes(r, auth)
	NewAdminHandler(ledger, logger).RegisterRoutes(r, auth)

	return &testAPI{router: r, store: store, users: users}
}

func (a *testAPI) token(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testAPI) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// fieldErrors flattens the validation_errors envelope into field -> message
func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error struct {
			Details struct {
				ValidationErrors []middleware.ValidationError `json:"validation_errors"`
			} `json:"details"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	out := map[string]string{}
	for _, fe := range body.Error.Details.ValidationErrors {
		out[fe.Field] = fe.Message
	}
	return out
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
