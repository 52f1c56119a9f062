package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"familycart/internal/metrics"
	"familycart/internal/repository"
	"familycart/internal/security"
	"familycart/internal/service"
	"familycart/internal/testutil"
	"familycart/pkg/logger"
)

type testAPI struct {
	t       *testing.T
	router  http.Handler
	clock   *testutil.Clock
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLimiter(t, nil)
}

func newTestAPIWithLimiter(t *testing.T, limiter *security.RateLimiter) *testAPI {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping API integration test in short mode")
	}

	db := testutil.NewTestDB(t)
	clk := testutil.NewClock(time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC))
	log := logger.Discard()
	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)

	authService := service.NewAuthService(userRepo, security.NewTokenIssuer("test-secret").WithClock(clk.Now), log)
	authService.SetClock(clk.Now)
	familyService := service.NewFamilyService(familyRepo, userRepo, authService, log)
	familyService.SetClock(clk.Now)
	invitationService := service.NewInvitationService(repository.NewInvitationRepository(db), userRepo, familyRepo, authService, m, log, "http://localhost:5173")
	invitationService.SetClock(clk.Now)
	listService := service.NewListService(repository.NewListRepository(db), log)
	listService.SetClock(clk.Now)

	router := NewRouter(RouterConfig{
		AuthService:       authService,
		FamilyService:     familyService,
		InvitationService: invitationService,
		ListService:       listService,
		AuthLimiter:       limiter,
		Metrics:           m,
		Logger:            log,
		ClientOrigin:      "http://localhost:5173",
		MetricsEnabled:    true,
	})

	return &testAPI{t: t, router: router, clock: clk, metrics: m}
}

// do sends a request and decodes the JSON response into a generic map
func (a *testAPI) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("encoding request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	a.router.ServeHTTP(recorder, request)

	var decoded map[string]interface{}
	if strings.HasPrefix(recorder.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
			a.t.Fatalf("%s %s: decoding response %q: %v", method, path, recorder.Body.String(), err)
		}
	}
	return recorder.Code, decoded
}

// must sends a request that is expected to succeed with 200
func (a *testAPI) must(method, path, token string, body interface{}) map[string]interface{} {
	a.t.Helper()
	status, resp := a.do(method, path, token, body)
	if status != http.StatusOK {
		a.t.Fatalf("%s %s: status %d, body %v", method, path, status, resp)
	}
	return resp
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	resp := a.must(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret1", "fullName": strings.Split(email, "@")[0],
	})
	return resp["token"].(string)
}

func (a *testAPI) login(email string) string {
	a.t.Helper()
	resp := a.must(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	return resp["token"].(string)
}

func (a *testAPI) createFamily(token, name string) (string, map[string]interface{}) {
	a.t.Helper()
	resp := a.must(http.MethodPost, "/api/families", token, map[string]string{"name": name})
	return resp["token"].(string), resp
}

func items(resp map[string]interface{}) []interface{} {
	list, _ := resp["items"].([]interface{})
	return list
}

func TestHouseholdScenario(t *testing.T) {
	api := newTestAPI(t)

	tokenA := api.register("a@example.com")
	tokenA, created := api.createFamily(tokenA, "Smiths")
	family := created["family"].(map[string]interface{})
	if family["name"] != "Smiths" {
		t.Errorf("family name = %v", family["name"])
	}
	members := created["members"].([]interface{})
	if len(members) != 1 || members[0].(map[string]interface{})["role"] != "admin" {
		t.Fatalf("members = %v, want A as admin", members)
	}
	familyID := family["id"].(float64)

	issued := api.must(http.MethodPost, "/api/invites", tokenA, nil)
	invite := issued["invite"].(map[string]interface{})
	inviteToken := invite["token"].(string)
	expiresAt, err := time.Parse(time.RFC3339, invite["expiresAt"].(string))
	if err != nil {
		t.Fatalf("parsing expiresAt: %v", err)
	}
	if want := api.clock.Now().Add(7 * 24 * time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
	if _, ok := invite["email"]; ok {
		t.Error("bearer invite should omit email")
	}
	if issued["link"] != "http://localhost:5173/invite/"+inviteToken {
		t.Errorf("link = %v", issued["link"])
	}

	tokenB := api.register("b@example.com")
	joined := api.must(http.MethodPost, "/api/invites/accept", tokenB, map[string]string{"token": inviteToken})
	if joined["user"].(map[string]interface{})["familyId"] != familyID {
		t.Errorf("B familyId = %v, want %v", joined["user"], familyID)
	}
	if n := len(joined["members"].([]interface{})); n != 2 {
		t.Errorf("members after accept = %d, want 2", n)
	}

	item := api.must(http.MethodPost, "/api/items", tokenA, map[string]string{
		"title": "Milk", "quantity": "1L", "category": "Dairy",
	})
	itemID := item["id"].(float64)

	active := api.must(http.MethodGet, "/api/lists/active", tokenB, nil)
	got := items(active)
	if len(got) != 1 {
		t.Fatalf("B active items = %v", got)
	}
	milk := got[0].(map[string]interface{})
	for key, want := range map[string]string{"title": "Milk", "quantity": "1L", "category": "Dairy", "notes": "", "status": "pending"} {
		if milk[key] != want {
			t.Errorf("item %s = %v, want %q", key, milk[key], want)
		}
	}

	toggled := api.must(http.MethodPatch, fmt.Sprintf("/api/items/%d/toggle", int64(itemID)), tokenB, nil)
	if toggled["status"] != "done" || toggled["id"] != itemID {
		t.Errorf("toggle = %v", toggled)
	}
	for _, token := range []string{tokenA, tokenB} {
		if status := items(api.must(http.MethodGet, "/api/lists/active", token, nil))[0].(map[string]interface{})["status"]; status != "done" {
			t.Errorf("status after toggle = %v, want done", status)
		}
	}

	api.must(http.MethodPost, "/api/lists/weekly-reset", tokenA, nil)

	if got := items(api.must(http.MethodGet, "/api/lists/active", tokenA, nil)); len(got) != 0 {
		t.Errorf("active items after reset = %v, want none", got)
	}

	archives := api.must(http.MethodGet, "/api/lists/archives", tokenB, nil)["archives"].([]interface{})
	if len(archives) != 1 {
		t.Fatalf("archives = %v", archives)
	}
	archive := archives[0].(map[string]interface{})
	if archive["weekStart"] != "2026-10-19" {
		t.Errorf("weekStart = %v, want 2026-10-19", archive["weekStart"])
	}
	archived := items(archive)
	if len(archived) != 1 || archived[0].(map[string]interface{})["title"] != "Milk" ||
		archived[0].(map[string]interface{})["status"] != "done" {
		t.Errorf("archived items = %v, want Milk done", archived)
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := api.do(http.MethodGet, "/api/auth/me", tt.token, nil)
			if status != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
			if resp["error"] != tt.message {
				t.Errorf("error = %v, want %q", resp["error"], tt.message)
			}
		})
	}

	token := api.register("a@example.com")
	api.clock.Advance(security.SessionDuration)
	if status, _ := api.do(http.MethodGet, "/api/auth/me", token, nil); status != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", status)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	token := api.register("a@example.com")
	me := api.must(http.MethodGet, "/api/auth/me", token, nil)["user"].(map[string]interface{})
	if me["email"] != "a@example.com" || me["familyId"] != nil {
		t.Errorf("me = %v", me)
	}

	status, resp := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "A@example.com", "password": "secret1"})
	if status != http.StatusConflict || resp["error"] != ErrEmailTaken {
		t.Errorf("duplicate register = %d %v", status, resp)
	}

	status, resp = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "c@example.com", "password": "123"})
	if status != http.StatusBadRequest || resp["error"] == "" {
		t.Errorf("short password = %d %v", status, resp)
	}

	status, _ = api.do(http.MethodPost, "/api/auth/register", "", "{not json")
	if status != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", status)
	}

	login := api.must(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@example.com", "password": "secret1"})
	if login["token"] == "" {
		t.Error("login returned no token")
	}

	status, resp = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@example.com", "password": "nope"})
	if status != http.StatusUnauthorized || resp["error"] != ErrInvalidCredentials {
		t.Errorf("bad login = %d %v", status, resp)
	}
}

func TestFamilyEndpoints(t *testing.T) {
	api := newTestAPI(t)

	tokenA := api.register("a@example.com")
	empty := api.must(http.MethodGet, "/api/families/me", tokenA, nil)
	if empty["family"] != nil || len(empty["members"].([]interface{})) != 0 {
		t.Errorf("families/me without family = %v", empty)
	}

	if status, resp := api.do(http.MethodDelete, "/api/families", tokenA, nil); status != http.StatusBadRequest || resp["error"] != ErrNoFamily {
		t.Errorf("delete without family = %d %v", status, resp)
	}
	if status, resp := api.do(http.MethodPost, "/api/invites", tokenA, nil); status != http.StatusBadRequest || resp["error"] != ErrCreateFamilyFirst {
		t.Errorf("invite without family = %d %v", status, resp)
	}
	if status, resp := api.do(http.MethodPost, "/api/items", tokenA, map[string]string{"title": "Milk"}); status != http.StatusBadRequest || resp["error"] != ErrNoFamilySelected {
		t.Errorf("item without family = %d %v", status, resp)
	}
	if status, resp := api.do(http.MethodGet, "/api/lists/active", tokenA, nil); status != http.StatusBadRequest || resp["error"] != ErrNoFamily {
		t.Errorf("active without family = %d %v", status, resp)
	}

	if status, _ := api.do(http.MethodPost, "/api/families", tokenA, map[string]string{"name": "  "}); status != http.StatusBadRequest {
		t.Errorf("blank family name status = %d, want 400", status)
	}

	// the original token still carries no family; membership is read from the store
	api.createFamily(tokenA, "Smiths")
	mine := api.must(http.MethodGet, "/api/families/me", tokenA, nil)
	if mine["family"].(map[string]interface{})["name"] != "Smiths" {
		t.Errorf("families/me = %v", mine)
	}
	if status, resp := api.do(http.MethodPost, "/api/families", tokenA, map[string]string{"name": "Again"}); status != http.StatusConflict || resp["error"] != ErrAlreadyInFamily {
		t.Errorf("second family = %d %v", status, resp)
	}

	tokenB := api.register("b@example.com")
	invite := api.must(http.MethodPost, "/api/invites", tokenA, map[string]string{"email": "b@example.com"})["invite"].(map[string]interface{})
	mineB := api.must(http.MethodGet, "/api/invites/my", tokenB, nil)["invites"].([]interface{})
	if len(mineB) != 1 {
		t.Fatalf("invites/my = %v", mineB)
	}
	api.must(http.MethodPost, "/api/invites/accept", tokenB, map[string]string{"token": invite["token"].(string)})

	if status, resp := api.do(http.MethodDelete, "/api/families", tokenB, nil); status != http.StatusForbidden || resp["error"] != ErrAdminOnly {
		t.Errorf("member delete = %d %v", status, resp)
	}

	api.must(http.MethodPost, "/api/families/leave", tokenB, nil)
	left := api.must(http.MethodGet, "/api/families/me", tokenB, nil)
	if left["family"] != nil || len(left["members"].([]interface{})) != 0 {
		t.Errorf("families/me after leave = %v", left)
	}
	if status, _ := api.do(http.MethodGet, "/api/lists/active", tokenB, nil); status != http.StatusBadRequest {
		t.Errorf("active after leave status = %d, want 400", status)
	}

	api.must(http.MethodDelete, "/api/families", tokenA, nil)
	if me := api.must(http.MethodGet, "/api/auth/me", tokenA, nil)["user"].(map[string]interface{}); me["familyId"] != nil {
		t.Errorf("familyId after delete = %v", me["familyId"])
	}
}

func TestInviteEndpoints(t *testing.T) {
	api := newTestAPI(t)

	tokenA, _ := api.createFamily(api.register("a@example.com"), "Smiths")
	tokenB := api.register("b@example.com")

	for _, body := range []interface{}{map[string]string{"token": "deadbeef"}, map[string]string{"token": ""}, nil} {
		status, resp := api.do(http.MethodPost, "/api/invites/accept", tokenB, body)
		if status != http.StatusBadRequest || resp["error"] != ErrInvalidInviteToken {
			t.Errorf("accept %v = %d %v", body, status, resp)
		}
	}

	issued := api.must(http.MethodPost, "/api/invites", tokenA, map[string]string{})
	inviteToken := issued["invite"].(map[string]interface{})["token"].(string)
	targeted := api.must(http.MethodPost, "/api/invites", tokenA, map[string]string{"email": "b@example.com"})
	targetedToken := targeted["invite"].(map[string]interface{})["token"].(string)
	if sent := api.must(http.MethodGet, "/api/invites/sent", tokenA, nil)["invites"].([]interface{}); len(sent) != 2 {
		t.Errorf("invites/sent = %v", sent)
	}

	// sessions last as long as invites, so sign in again after moving the clock
	api.clock.Advance(7*24*time.Hour - time.Microsecond)
	tokenA, tokenB = api.login("a@example.com"), api.login("b@example.com")
	if mine := api.must(http.MethodGet, "/api/invites/my", tokenB, nil)["invites"].([]interface{}); len(mine) != 1 {
		t.Errorf("invites/my just before expiry = %v", mine)
	}

	api.clock.Advance(time.Microsecond)

	if sent := api.must(http.MethodGet, "/api/invites/sent", tokenA, nil)["invites"].([]interface{}); len(sent) != 0 {
		t.Errorf("invites/sent after expiry = %v", sent)
	}
	if mine := api.must(http.MethodGet, "/api/invites/my", tokenB, nil)["invites"].([]interface{}); len(mine) != 0 {
		t.Errorf("invites/my after expiry = %v", mine)
	}
	for _, token := range []string{inviteToken, targetedToken} {
		if status, resp := api.do(http.MethodPost, "/api/invites/accept", tokenB, map[string]string{"token": token}); status != http.StatusBadRequest || resp["error"] != ErrInvalidInviteToken {
			t.Errorf("accept expired = %d %v", status, resp)
		}
	}
}

func TestItemEndpoints(t *testing.T) {
	api := newTestAPI(t)

	tokenA, _ := api.createFamily(api.register("a@example.com"), "Smiths")
	tokenX, _ := api.createFamily(api.register("x@example.com"), "Others")

	item := api.must(http.MethodPost, "/api/items", tokenA, map[string]string{"title": "Eggs", "notes": "large"})
	path := fmt.Sprintf("/api/items/%d", int64(item["id"].(float64)))

	if status, _ := api.do(http.MethodPost, "/api/items", tokenA, map[string]string{"title": ""}); status != http.StatusBadRequest {
		t.Errorf("blank title status = %d, want 400", status)
	}

	tests := []struct {
		name    string
		body    interface{}
		status  int
		message string
	}{
		{"empty", map[string]string{}, http.StatusBadRequest, ErrNoFieldsToUpdate},
		{"unknown field only", map[string]string{"status": "done"}, http.StatusBadRequest, ErrNoFieldsToUpdate},
		{"non-string", `{"quantity": 12}`, http.StatusBadRequest, "quantity must be a string"},
		{"blank title", map[string]string{"title": " "}, http.StatusBadRequest, "Title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := api.do(http.MethodPatch, path, tokenA, tt.body)
			if status != tt.status || resp["error"] != tt.message {
				t.Errorf("PATCH = %d %v, want %d %q", status, resp, tt.status, tt.message)
			}
		})
	}

	updated := api.must(http.MethodPatch, path, tokenA, `{"quantity": "12", "notes": null}`)
	if updated["quantity"] != "12" || updated["notes"] != "" || updated["title"] != "Eggs" {
		t.Errorf("updated = %v", updated)
	}

	for _, req := range []struct{ method, path string }{
		{http.MethodPatch, path},
		{http.MethodPatch, path + "/toggle"},
		{http.MethodDelete, path},
	} {
		status, resp := api.do(req.method, req.path, tokenX, map[string]string{"title": "Stolen"})
		if status != http.StatusNotFound || resp["error"] != ErrItemNotFound {
			t.Errorf("cross-family %s %s = %d %v", req.method, req.path, status, resp)
		}
	}

	if status, _ := api.do(http.MethodPatch, "/api/items/abc/toggle", tokenA, nil); status != http.StatusNotFound {
		t.Errorf("malformed id status = %d, want 404", status)
	}

	first := api.must(http.MethodPatch, path+"/toggle", tokenA, nil)["status"]
	second := api.must(http.MethodPatch, path+"/toggle", tokenA, nil)["status"]
	if first != "done" || second != "pending" {
		t.Errorf("toggle sequence = %v, %v", first, second)
	}

	api.must(http.MethodDelete, path, tokenA, nil)
	if status, _ := api.do(http.MethodDelete, path, tokenA, nil); status != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", status)
	}
}

func TestPublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	if resp := api.must(http.MethodGet, "/", "", nil); resp["ok"] != true {
		t.Errorf("GET / = %v", resp)
	}

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK || recorder.Body.String() != "ok" {
		t.Errorf("health = %d %q", recorder.Code, recorder.Body.String())
	}

	api.register("a@example.com")

	request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder = httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	if !strings.Contains(recorder.Body.String(), `familycart_http_requests_total{method="POST",route="/api/auth/register",status="200"} 1`) {
		t.Errorf("metrics missing register request:\n%s", recorder.Body.String())
	}

	request = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	request.Header.Set("Origin", "http://localhost:5173")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder = httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("CORS allow origin = %q", got)
	}

	if status, resp := api.do(http.MethodGet, "/api/nope", "", nil); status != http.StatusNotFound || resp["error"] != ErrNotFound {
		t.Errorf("unknown route = %d %v", status, resp)
	}
}

func TestAuthRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	api := newTestAPIWithLimiter(t, limiter)
	limiter.WithClock(api.clock.Now)

	login := map[string]string{"email": "nobody@example.com", "password": "secret1"}
	for i := 0; i < 2; i++ {
		if status, _ := api.do(http.MethodPost, "/api/auth/login", "", login); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, status)
		}
	}

	request := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", recorder.Header().Get("Retry-After"))
	}

	// authenticated routes are not limited
	if status, _ := api.do(http.MethodGet, "/api/auth/me", "", nil); status != http.StatusUnauthorized {
		t.Errorf("me status = %d, want 401", status)
	}

	api.clock.Advance(time.Minute)
	if status, _ := api.do(http.MethodPost, "/api/auth/login", "", login); status != http.StatusUnauthorized {
		t.Errorf("attempt after window status = %d, want 401", status)
	}
}
