package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"

	"stagehub/internal/blob"
	"stagehub/internal/config"
	"stagehub/internal/db"
	"stagehub/internal/domain"
	"stagehub/internal/engine"
	"stagehub/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()

	AdminID      int64
	DirectionID  int64
	SupervisorID int64
	InternID     int64
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	store, err := blob.New(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	e.Blobs = store

	ctx := context.Background()
	bootstrap := domain.Actor{ID: 1, Role: domain.RoleAdmin}
	admin, err := e.CreatePerson(ctx, bootstrap, "Ana Admin", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	adminActor := domain.Actor{ID: admin.ID, Role: admin.Role}
	direction, err := e.CreatePerson(ctx, adminActor, "Dana Direction", domain.RoleDirectionMember)
	if err != nil {
		t.Fatalf("seed direction member: %v", err)
	}
	supervisor, err := e.CreatePerson(ctx, adminActor, "Sofia Supervisor", domain.RoleSupervisor)
	if err != nil {
		t.Fatalf("seed supervisor: %v", err)
	}
	intern, err := e.CreatePerson(ctx, adminActor, "Iris Intern", domain.RoleIntern)
	if err != nil {
		t.Fatalf("seed intern: %v", err)
	}

	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{
		JWTSecret:              "test-secret",
		TokenTTLMinutes:        5,
		AllowLegacyActorHeader: true,
		EnableDevLogin:         true,
	}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:          "http://" + ln.Addr().String(),
		Engine:       e,
		client:       &http.Client{},
		AdminID:      admin.ID,
		DirectionID:  direction.ID,
		SupervisorID: supervisor.ID,
		InternID:     intern.ID,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func actorHeader(id int64) map[string]string {
	return map[string]string{"X-Actor-Id": strconv.FormatInt(id, 10)}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope %q: %v", string(data), err)
	}
	return envelope.Error.Code
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/requests", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/requests", nil, map[string]string{"Authorization": "Bearer garbage"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
	// health stays open
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", res.StatusCode)
	}
}

func TestRequestDecisionFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests", map[string]any{
		"intern_ids": []int64{srv.InternID},
	}, actorHeader(srv.DirectionID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create request: %d %s", res.StatusCode, string(data))
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	// a non-admin cannot decide
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+strconv.FormatInt(created.ID, 10)+"/decision", map[string]any{
		"accept": true,
	}, actorHeader(srv.DirectionID))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", res.StatusCode, string(data))
	}
	if errorCode(t, data) != "forbidden" {
		t.Fatalf("expected forbidden code, got %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+strconv.FormatInt(created.ID, 10)+"/decision", map[string]any{
		"accept": true,
	}, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("decide: %d %s", res.StatusCode, string(data))
	}

	// deciding again reports an invalid transition
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/requests/"+strconv.FormatInt(created.ID, 10)+"/decision", map[string]any{
		"accept": true,
	}, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", res.StatusCode, string(data))
	}
	if errorCode(t, data) != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %s", string(data))
	}

	// the agreement opened atomically with the acceptance
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/agreements?status=in_progress", nil, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list agreements: %d %s", res.StatusCode, string(data))
	}
	var agreements []struct {
		RequestID int64 `json:"request_id"`
	}
	if err := json.Unmarshal(data, &agreements); err != nil {
		t.Fatalf("unmarshal agreements: %v", err)
	}
	if len(agreements) != 1 || agreements[0].RequestID != created.ID {
		t.Fatalf("expected one agreement for request %d, got %v", created.ID, agreements)
	}
}

func TestUnknownResourceEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/requests/999", nil, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	if errorCode(t, data) != "not_found" {
		t.Fatalf("expected not_found, got %s", string(data))
	}
}

func TestDocumentUploadDownload(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\ntrailer\n<< >>\n%%EOF\n")
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/documents", bytes.NewReader(pdf))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Actor-Id", strconv.FormatInt(srv.DirectionID, 10))
	res, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("upload: %d %s", res.StatusCode, string(data))
	}
	var uploaded struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &uploaded); err != nil {
		t.Fatalf("unmarshal upload: %v", err)
	}
	if uploaded.Path == "" {
		t.Fatalf("expected stored path")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/documents/"+uploaded.Path, nil, actorHeader(srv.DirectionID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("download: %d %s", res.StatusCode, string(data))
	}
	if !bytes.Equal(data, pdf) {
		t.Fatalf("downloaded bytes differ")
	}

	// an unsupported content type is refused
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/v1/documents", bytes.NewReader([]byte{0x7f, 'E', 'L', 'F', 0, 0, 0, 0}))
	req.Header.Set("X-Actor-Id", strconv.FormatInt(srv.DirectionID, 10))
	res, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d %s", res.StatusCode, string(data))
	}
}

func TestDevLoginIssuesUsableToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"person_id": srv.AdminID,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, string(data))
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil || login.Token == "" {
		t.Fatalf("expected token, got %s", string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bearer request: %d %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/keys", map[string]any{
		"person_id": srv.SupervisorID,
		"name":      "ci",
	}, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, string(data))
	}
	var issued struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &issued); err != nil || issued.Key == "" {
		t.Fatalf("expected plaintext key, got %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/stages", nil, map[string]string{"X-Api-Key": issued.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key request: %d %s", res.StatusCode, string(data))
	}

	// revoked keys stop working
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/keys/"+issued.ID, nil, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke key: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/stages", nil, map[string]string{"X-Api-Key": issued.Key})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revocation, got %d", res.StatusCode)
	}
}

func TestDeactivatedActorIsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	inactive := false
	admin := domain.Actor{ID: srv.AdminID, Role: domain.RoleAdmin}
	if _, err := srv.Engine.SetPersonFlags(context.Background(), admin, srv.DirectionID, &inactive, nil); err != nil {
		t.Fatal(err)
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/requests", nil, actorHeader(srv.DirectionID))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for deactivated actor, got %d %s", res.StatusCode, string(data))
	}
}

func TestSupervisorCandidateListFiltersServerSide(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	ctx := context.Background()
	admin := domain.Actor{ID: srv.AdminID, Role: domain.RoleAdmin}

	busy, err := srv.Engine.CreatePerson(ctx, admin, "Boris Busy", domain.RoleSupervisor)
	if err != nil {
		t.Fatal(err)
	}
	gone, err := srv.Engine.CreatePerson(ctx, admin, "Greta Gone", domain.RoleSupervisor)
	if err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := srv.Engine.SetPersonFlags(ctx, admin, busy.ID, nil, &off); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.Engine.SetPersonFlags(ctx, admin, gone.ID, &off, nil); err != nil {
		t.Fatal(err)
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/people?role=supervisor", nil, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list supervisors: %d %s", res.StatusCode, string(data))
	}
	var people []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &people); err != nil {
		t.Fatalf("decode people: %v", err)
	}
	if len(people) != 1 || people[0].ID != srv.SupervisorID {
		t.Fatalf("candidate list should hold only the active available supervisor, got %s", string(data))
	}

	// asking for the busy ones still never surfaces inactive people
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/people?role=supervisor&available=false", nil, actorHeader(srv.AdminID))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list busy supervisors: %d %s", res.StatusCode, string(data))
	}
	people = nil
	if err := json.Unmarshal(data, &people); err != nil {
		t.Fatalf("decode people: %v", err)
	}
	if len(people) != 1 || people[0].ID != busy.ID {
		t.Fatalf("expected only the busy supervisor, got %s", string(data))
	}
}
