package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"modular-shop-backend/pkg/config"
	"modular-shop-backend/pkg/database"
	"modular-shop-backend/pkg/logging"
	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "/api/v1"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

type testApp struct {
	t      *testing.T
	cfg    *config.Config
	db     database.DatabaseInterface
	server http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		Port:                 "0",
		APIPrefix:            prefix,
		DBDriver:             "sqlite",
		DBPath:               ":memory:",
		SeedData:             true,
		JWTSecret:            "router-test-secret-0123456789abcdef0123",
		JWTIssuer:            "modular-shop-api",
		JWTAudience:          "modular-shop-clients",
		JWTExpirationMinutes: 60,
		DefaultGroup:         models.GroupGeneralUsers,
		AllowedOrigins:       []string{"*"},
		LogLevel:             "error",
	}
}

// newTestApp 每个测试使用独立的内存数据库（含种子数据）
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()
	log := logging.Discard()

	db, err := database.NewDatabase(database.ConfigFromApp(cfg, log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testApp{t: t, cfg: cfg, db: db, server: New(cfg, db, log)}
}

func (a *testApp) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

// decode 解析响应信封，data 写入 out（可为 nil）
func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (a *testApp) login(username, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, prefix+"/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.UserLoginResponse
	decode(a.t, rec, &resp)
	return resp.Token
}

func (a *testApp) userID(username string) int64 {
	a.t.Helper()
	u, err := a.db.GetUserByUsername(context.Background(), username)
	require.NoError(a.t, err)
	return u.ID
}

func (a *testApp) groupID(name string) int64 {
	a.t.Helper()
	g, err := a.db.GetGroupByName(context.Background(), name)
	require.NoError(a.t, err)
	return g.ID
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	env := decode(t, rec, &body)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", body["db_status"])
}

func TestProducts_SeededCatalog(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, prefix+"/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []models.Product
	decode(t, rec, &products)
	require.Len(t, products, 5)

	var mouse *models.Product
	for i := range products {
		if products[i].Name == "Wireless Mouse" {
			mouse = &products[i]
		}
	}
	require.NotNil(t, mouse)
	assert.True(t, mouse.Price.Equal(decimal.RequireFromString("29.99")), mouse.Price.String())
	assert.Contains(t, rec.Body.String(), `"price":29.99`)
}

func TestProducts_CRUD(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, prefix+"/products", map[string]interface{}{
		"name":     "USB Hub",
		"price":    19.95,
		"category": "Electronics",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Product
	decode(t, rec, &created)
	require.NotZero(t, created.ID)

	path := fmt.Sprintf("%s/products/%d", prefix, created.ID)

	rec = app.do(http.MethodPut, path, map[string]interface{}{"price": 17.5}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Product
	decode(t, rec, &updated)
	assert.Equal(t, "USB Hub", updated.Name)
	assert.Equal(t, "Electronics", updated.Category)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("17.5")))

	rec = app.do(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = app.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, utils.CodeNotFound, decode(t, rec, nil).Error.Code)
}

func TestProducts_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"missing name", http.MethodPost, "/products", map[string]interface{}{"price": 1}, http.StatusBadRequest, utils.CodeValidation},
		{"missing price", http.MethodPost, "/products", map[string]interface{}{"name": "x"}, http.StatusBadRequest, utils.CodeValidation},
		{"negative price", http.MethodPost, "/products", map[string]interface{}{"name": "x", "price": -1}, http.StatusBadRequest, utils.CodeValidation},
		{"wrong type", http.MethodPost, "/products", map[string]interface{}{"name": 5, "price": 1}, http.StatusBadRequest, utils.CodeValidation},
		{"non-numeric id", http.MethodGet, "/products/abc", nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"zero id", http.MethodGet, "/products/0", nil, http.StatusBadRequest, utils.CodeBadRequest},
		{"unknown id", http.MethodGet, "/products/999", nil, http.StatusNotFound, utils.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, prefix+tt.path, tt.body, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRequestBody_ContentTypeAndMalformed(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, prefix+"/products", strings.NewReader(`{"name":"x","price":1}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, prefix+"/products", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.CodeBadRequest, decode(t, rec, nil).Error.Code)
}

func TestCustomers_CreateAndDeleteInUse(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, prefix+"/customers", map[string]interface{}{"name": "Dan Evans", "email": "dan@example.com"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer models.Customer
	decode(t, rec, &customer)
	assert.False(t, customer.RegisteredDate.IsZero())

	rec = app.do(http.MethodPost, prefix+"/customers", map[string]interface{}{"name": "No Email", "email": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Alice (1) has a seeded order
	rec = app.do(http.MethodDelete, prefix+"/customers/1", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, utils.CodeConflict, decode(t, rec, nil).Error.Code)

	rec = app.do(http.MethodDelete, fmt.Sprintf("%s/customers/%d", prefix, customer.ID), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrders_CreateComputesTotal(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, prefix+"/orders", map[string]interface{}{
		"customer_id":  3,
		"product_id":   1,
		"quantity":     2,
		"total_amount": 1,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order models.OrderView
	decode(t, rec, &order)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("59.98")), order.TotalAmount.String())
	assert.Equal(t, "Carol Diaz", order.CustomerName)
	assert.Equal(t, "Wireless Mouse", order.ProductName)

	rec = app.do(http.MethodPut, fmt.Sprintf("%s/orders/%d", prefix, order.ID), map[string]interface{}{"quantity": 3}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &order)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("89.97")), order.TotalAmount.String())

	rec = app.do(http.MethodGet, prefix+"/orders", nil, "")
	var orders []models.OrderView
	decode(t, rec, &orders)
	assert.Len(t, orders, 3)
}

func TestOrders_Rejected(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"missing customer", map[string]interface{}{"customer_id": 999, "product_id": 1, "quantity": 1}, http.StatusUnprocessableEntity, utils.CodeReference},
		{"missing product", map[string]interface{}{"customer_id": 1, "product_id": 999, "quantity": 1}, http.StatusUnprocessableEntity, utils.CodeReference},
		{"zero quantity", map[string]interface{}{"customer_id": 1, "product_id": 1, "quantity": 0}, http.StatusBadRequest, utils.CodeValidation},
		{"missing fields", map[string]interface{}{"customer_id": 1}, http.StatusBadRequest, utils.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, prefix+"/orders", tt.body, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode(t, rec, nil).Error.Code)
		})
	}

	count, err := app.db.CountOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	body := map[string]string{
		"username":   "dana",
		"email":      "dana@example.com",
		"password":   "secret1",
		"first_name": "Dana",
	}
	rec := app.do(http.MethodPost, prefix+"/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	var profile models.UserProfile
	decode(t, rec, &profile)
	assert.Equal(t, "dana", profile.Username)
	assert.True(t, profile.IsActive)
	assert.Equal(t, []string{models.GroupGeneralUsers}, profile.Groups)

	before, err := app.db.CountUsers(context.Background())
	require.NoError(t, err)

	body["email"] = "other@example.com"
	rec = app.do(http.MethodPost, prefix+"/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.CodeValidation, decode(t, rec, nil).Error.Code)

	after, err := app.db.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// 注册后可以直接登录
	assert.NotEmpty(t, app.login("dana", "secret1"))
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short password", map[string]string{"username": "a1", "email": "a1@example.com", "password": "12345"}},
		{"bad email", map[string]string{"username": "a2", "email": "a2.example.com", "password": "123456"}},
		{"missing username", map[string]string{"email": "a3@example.com", "password": "123456"}},
		{"duplicate email", map[string]string{"username": "a4", "email": "admin@example.com", "password": "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, prefix+"/auth/register", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, utils.CodeValidation, decode(t, rec, nil).Error.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	t.Run("success", func(t *testing.T) {
		rec := app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "admin", "password": "Admin123!"}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp models.UserLoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Contains(t, resp.Groups, models.GroupAdministrators)
		assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

		user, err := app.db.GetUserByUsername(context.Background(), "admin")
		require.NoError(t, err)
		assert.NotNil(t, user.LastLoginAt)
	})

	t.Run("unknown user and wrong password look the same", func(t *testing.T) {
		unknown := app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "ghost", "password": "whatever"}, "")
		wrong := app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "admin", "password": "whatever"}, "")

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
		assert.Equal(t, "invalid credentials", decode(t, wrong, nil).Error.Message)
	})

	t.Run("inactive account", func(t *testing.T) {
		admin := app.login("admin", "Admin123!")
		rec := app.do(http.MethodPost, prefix+"/users", map[string]interface{}{
			"username":  "frozen",
			"email":     "frozen@example.com",
			"password":  "frozen1",
			"is_active": false,
		}, admin)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "frozen", "password": "frozen1"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "account inactive", decode(t, rec, nil).Error.Message)

		rec = app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "frozen", "password": "nope-nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", decode(t, rec, nil).Error.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "admin"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUsers_AccessControl(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "Admin123!")
	manager := app.login("manager", "Manager123!")
	user := app.login("user", "User123!")

	target := fmt.Sprintf("%s/users/%d", prefix, app.userID("user"))
	newUser := map[string]interface{}{"username": "eve", "email": "eve@example.com", "password": "evepass"}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		token  string
		status int
	}{
		{"list anonymous", http.MethodGet, prefix + "/users", nil, "", http.StatusUnauthorized},
		{"list garbage token", http.MethodGet, prefix + "/users", nil, "not-a-jwt", http.StatusUnauthorized},
		{"list as user", http.MethodGet, prefix + "/users", nil, user, http.StatusOK},
		{"update as user", http.MethodPut, target, map[string]string{"first_name": "X"}, user, http.StatusForbidden},
		{"update as manager", http.MethodPut, target, map[string]string{"first_name": "Regular"}, manager, http.StatusOK},
		{"create as manager", http.MethodPost, prefix + "/users", newUser, manager, http.StatusForbidden},
		{"create as admin", http.MethodPost, prefix + "/users", newUser, admin, http.StatusCreated},
		{"delete as manager", http.MethodDelete, target, nil, manager, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := app.do(http.MethodGet, target, nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.UserProfile
	decode(t, rec, &profile)
	assert.Equal(t, "Regular", profile.FirstName)
	assert.Equal(t, []string{models.GroupGeneralUsers}, profile.Groups)
}

func TestUsers_TokenFromOtherSecretRejected(t *testing.T) {
	app := newTestApp(t)

	other := testConfig()
	other.JWTSecret = "a-completely-different-secret-value-xyz"
	token, _, err := NewTokenService(other).IssueToken(&models.User{ID: 1, Username: "admin"}, []string{models.GroupAdministrators})
	require.NoError(t, err)

	rec := app.do(http.MethodGet, prefix+"/users", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsers_AdminManagement(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "Admin123!")

	rec := app.do(http.MethodPost, prefix+"/users", map[string]interface{}{
		"username": "sam",
		"email":    "sam@example.com",
		"password": "sampass",
		"groups":   []string{models.GroupManagers},
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sam models.UserProfile
	decode(t, rec, &sam)
	assert.Equal(t, []string{models.GroupManagers}, sam.Groups)

	rec = app.do(http.MethodPost, prefix+"/users", map[string]interface{}{
		"username": "tina",
		"email":    "tina@example.com",
		"password": "tinapass",
		"groups":   []string{"Nobody"},
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("%s/users/%d", prefix, sam.ID)
	rec = app.do(http.MethodPut, path, map[string]string{"email": "admin@example.com"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPut, path, map[string]string{"password": "newsampass"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, app.login("sam", "newsampass"))

	rec = app.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, path, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroups_Membership(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "Admin123!")

	managers := app.groupID(models.GroupManagers)
	userID := app.userID("user")
	path := fmt.Sprintf("%s/usergroups/%d/users/%d", prefix, managers, userID)

	rec := app.do(http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(http.MethodPost, path, nil, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var membership models.Membership
	decode(t, rec, &membership)
	assert.Equal(t, userID, membership.UserID)
	assert.Equal(t, managers, membership.GroupID)

	rec = app.do(http.MethodPost, path, nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.CodeValidation, decode(t, rec, nil).Error.Code)

	rec = app.do(http.MethodGet, fmt.Sprintf("%s/usergroups/%d/users", prefix, managers), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var members []models.GroupMember
	decode(t, rec, &members)
	usernames := make([]string, 0, len(members))
	for _, m := range members {
		usernames = append(usernames, m.Username)
	}
	assert.ElementsMatch(t, []string{"manager", "user"}, usernames)

	// a fresh login carries the new membership
	rec = app.do(http.MethodPost, prefix+"/auth/login", map[string]string{"username": "user", "password": "User123!"}, "")
	var resp models.UserLoginResponse
	decode(t, rec, &resp)
	assert.ElementsMatch(t, []string{models.GroupGeneralUsers, models.GroupManagers}, resp.Groups)

	rec = app.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, fmt.Sprintf("%s/usergroups/%d/users/999", prefix, managers), nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, fmt.Sprintf("%s/usergroups/%d/users/abc", prefix, managers), nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroups_CRUD(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "Admin123!")
	user := app.login("user", "User123!")

	rec := app.do(http.MethodGet, prefix+"/usergroups", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []models.Group
	decode(t, rec, &groups)
	assert.Len(t, groups, 3)

	body := map[string]string{"name": "Auditors", "description": "Read-only reviewers"}
	rec = app.do(http.MethodPost, prefix+"/usergroups", body, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, prefix+"/usergroups", body, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var group models.Group
	decode(t, rec, &group)

	rec = app.do(http.MethodPost, prefix+"/usergroups", body, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("%s/usergroups/%d", prefix, group.ID)
	rec = app.do(http.MethodPut, path, map[string]string{"description": "Reviewers"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &group)
	assert.Equal(t, "Auditors", group.Name)
	assert.Equal(t, "Reviewers", group.Description)

	rec = app.do(http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, prefix+"/nothing-here", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, utils.CodeNotFound, decode(t, rec, nil).Error.Code)

	rec = app.do(http.MethodPatch, prefix+"/products/1", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, utils.CodeMethodNotAllow, decode(t, rec, nil).Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	app.do(http.MethodGet, prefix+"/products", nil, "")

	rec := app.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/products`)
}

func TestProducts_PriceScale(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, prefix+"/products", map[string]interface{}{"name": "Odd Cable", "price": 29.999}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, utils.CodeValidation, decode(t, rec, nil).Error.Code)

	rec = app.do(http.MethodPut, prefix+"/products/1", map[string]interface{}{"price": 0.001}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = app.do(http.MethodGet, prefix+"/products", nil, "")
	var products []models.Product
	decode(t, rec, &products)
	assert.Len(t, products, 5)

	rec = app.do(http.MethodGet, prefix+"/products/1", nil, "")
	var mouse models.Product
	decode(t, rec, &mouse)
	assert.True(t, mouse.Price.Equal(decimal.RequireFromString("29.99")), mouse.Price.String())

	// trailing zeros are still two decimal places
	rec = app.do(http.MethodPost, prefix+"/products", map[string]interface{}{"name": "Even Cable", "price": json.Number("12.500")}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cable models.Product
	decode(t, rec, &cable)

	rec = app.do(http.MethodPost, prefix+"/orders", map[string]interface{}{"customer_id": 1, "product_id": cable.ID, "quantity": 3}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.OrderView
	decode(t, rec, &order)
	assert.True(t, order.TotalAmount.Equal(cable.Price.Mul(decimal.NewFromInt(3))), order.TotalAmount.String())
}

func TestOrders_PartialUpdateKeepsOtherFields(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, prefix+"/orders/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var before models.OrderView
	decode(t, rec, &before)

	newDate := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec = app.do(http.MethodPut, prefix+"/orders/1", map[string]interface{}{"order_date": newDate}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after models.OrderView
	decode(t, rec, &after)

	assert.True(t, after.OrderDate.Equal(newDate))
	assert.Equal(t, before.CustomerID, after.CustomerID)
	assert.Equal(t, before.ProductID, after.ProductID)
	assert.Equal(t, before.Quantity, after.Quantity)
	assert.Equal(t, before.CustomerName, after.CustomerName)
	assert.True(t, before.TotalAmount.Equal(after.TotalAmount), after.TotalAmount.String())
}

func TestUsers_PartialUpdateKeepsOtherFields(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "Admin123!")
	path := fmt.Sprintf("%s/users/%d", prefix, app.userID("user"))

	rec := app.do(http.MethodGet, path, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var before models.UserProfile
	decode(t, rec, &before)

	rec = app.do(http.MethodPut, path, map[string]string{"first_name": "Renamed"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after models.UserProfile
	decode(t, rec, &after)

	assert.Equal(t, "Renamed", after.FirstName)
	assert.Equal(t, before.Username, after.Username)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.LastName, after.LastName)
	assert.Equal(t, before.IsActive, after.IsActive)
	assert.Equal(t, before.Groups, after.Groups)

	// password untouched
	assert.NotEmpty(t, app.login("user", "User123!"))
}

func TestUsers_ManagerCannotChangeAdministratorCredentials(t *testing.T) {
	app := newTestApp(t)
	manager := app.login("manager", "Manager123!")
	adminPath := fmt.Sprintf("%s/users/%d", prefix, app.userID("admin"))
	userPath := fmt.Sprintf("%s/users/%d", prefix, app.userID("user"))

	tests := []struct {
		name   string
		path   string
		body   map[string]interface{}
		status int
	}{
		{"admin password", adminPath, map[string]interface{}{"password": "taken-over"}, http.StatusForbidden},
		{"admin is_active", adminPath, map[string]interface{}{"is_active": false}, http.StatusForbidden},
		{"admin name", adminPath, map[string]interface{}{"last_name": "Still Admin"}, http.StatusOK},
		{"regular user password", userPath, map[string]interface{}{"password": "UserReset1"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPut, tt.path, tt.body, manager)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	// the administrator account is unchanged and still usable
	assert.NotEmpty(t, app.login("admin", "Admin123!"))
	assert.NotEmpty(t, app.login("user", "UserReset1"))
}
