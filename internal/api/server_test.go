package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"editorial/internal/api"
	"editorial/internal/audit"
	"editorial/internal/logging"
	"editorial/internal/testsupport"
	"editorial/internal/workflow"
)

type apiHarness struct {
	server   *httptest.Server
	notifier *testsupport.Notifier
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry := prometheus.NewRegistry()
	notifier := &testsupport.Notifier{}
	svc, err := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithClock(testsupport.NewClock(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))),
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(audit.NewMetrics(registry)),
	)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	srv := api.NewServer(cfg.Paths.APIBind, svc, store, logging.NewNop(), registry)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &apiHarness{server: ts, notifier: notifier}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (h *apiHarness) do(t *testing.T, method, path string, actor int64, body any, out any) int {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if actor != 0 {
		req.Header.Set(api.ActorHeader, fmt.Sprint(actor))
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (h *apiHarness) createUser(t *testing.T, req api.CreateUserRequest) api.User {
	t.Helper()
	var user api.User
	if status := h.do(t, http.MethodPost, "/users", 0, req, &user); status != http.StatusCreated {
		t.Fatalf("create user %s: status %d", req.Username, status)
	}
	return user
}

func TestManuscriptFlowOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	lead := h.createUser(t, api.CreateUserRequest{Username: "lead", Email: "lead@journal.test", IsAuthor: true})
	reviewer := h.createUser(t, api.CreateUserRequest{Username: "rev", Email: "rev@journal.test", IsReviewer: true})
	editor := h.createUser(t, api.CreateUserRequest{Username: "ed", Email: "ed@journal.test", IsEditor: true})

	var created api.Result
	status := h.do(t, http.MethodPost, "/manuscripts", lead.ID, api.CreateManuscriptRequest{Title: "Plain Routing", Text: "Body"}, &created)
	if status != http.StatusCreated || created.State != "UNSUBMITTED" {
		t.Fatalf("create manuscript: status %d result %+v", status, created)
	}

	var manuscript api.Manuscript
	if status := h.do(t, http.MethodGet, fmt.Sprintf("/manuscripts/%d", created.EntityID), 0, nil, &manuscript); status != http.StatusOK {
		t.Fatalf("get manuscript: status %d", status)
	}
	if manuscript.Title != "Plain Routing" || len(manuscript.Revisions) != 1 || len(manuscript.Authors) != 1 {
		t.Fatalf("unexpected manuscript %+v", manuscript)
	}
	revisionPath := fmt.Sprintf("/revisions/%d", manuscript.Revisions[0].ID)

	var allowed api.AllowedResponse
	h.do(t, http.MethodGet, revisionPath+"/transitions", 0, nil, &allowed)
	if allowed.From != "UNSUBMITTED" || !contains(allowed.Allowed, "PENDING") {
		t.Fatalf("unexpected allowed transitions %+v", allowed)
	}

	var failure map[string]string
	status = h.do(t, http.MethodPost, revisionPath+"/transitions", editor.ID, api.RevisionTransitionRequest{To: "ACCEPT"}, &failure)
	if status != http.StatusConflict || failure["error"] == "" {
		t.Fatalf("decision on unsubmitted revision: status %d body %v", status, failure)
	}

	var submitted api.Result
	if status := h.do(t, http.MethodPost, revisionPath+"/transitions", lead.ID, api.RevisionTransitionRequest{To: "pending"}, &submitted); status != http.StatusOK {
		t.Fatalf("submit: status %d", status)
	}
	if submitted.State != "PENDING" || submitted.Notified == 0 {
		t.Fatalf("unexpected submit result %+v", submitted)
	}
	status = h.do(t, http.MethodPost, revisionPath+"/transitions", lead.ID, api.RevisionTransitionRequest{To: "PENDING"}, &failure)
	if status != http.StatusConflict {
		t.Fatalf("resubmit pending revision: status %d body %v", status, failure)
	}

	var ranked []api.RankedReviewer
	h.do(t, http.MethodGet, fmt.Sprintf("/reviewers/ranked?manuscript=%d", created.EntityID), 0, nil, &ranked)
	if len(ranked) != 1 || ranked[0].ReviewerID != reviewer.ID {
		t.Fatalf("unexpected ranking %+v", ranked)
	}

	status = h.do(t, http.MethodPost, fmt.Sprintf("/manuscripts/%d/reviewers", created.EntityID), editor.ID, api.AssignReviewerRequest{ReviewerID: lead.ID}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("assign an author as reviewer: status %d", status)
	}

	var assigned api.Result
	status = h.do(t, http.MethodPost, fmt.Sprintf("/manuscripts/%d/reviewers", created.EntityID), editor.ID, api.AssignReviewerRequest{ReviewerID: reviewer.ID}, &assigned)
	if status != http.StatusOK || assigned.State != "ASSIGNED" {
		t.Fatalf("assign reviewer: status %d result %+v", status, assigned)
	}
	reviewPath := fmt.Sprintf("/reviews/%d", assigned.EntityID)

	status = h.do(t, http.MethodPost, reviewPath+"/submit", reviewer.ID, api.SubmitReviewRequest{Text: "Solid.", Recommendation: "accept"}, nil)
	if status != http.StatusOK {
		t.Fatalf("submit review: status %d", status)
	}

	var decided api.Result
	status = h.do(t, http.MethodPost, revisionPath+"/transitions", editor.ID, api.RevisionTransitionRequest{To: "ACCEPT", EditorialReview: "Well argued."}, &decided)
	if status != http.StatusOK || decided.State != "ACCEPT" {
		t.Fatalf("decide: status %d result %+v", status, decided)
	}

	var review api.Review
	h.do(t, http.MethodGet, reviewPath, 0, nil, &review)
	if review.Status != "COMPLETE" || review.Recommendation != "ACCEPT" {
		t.Fatalf("unexpected review %+v", review)
	}

	var revision api.Revision
	h.do(t, http.MethodGet, revisionPath, 0, nil, &revision)
	if revision.EditorialReview != "Well argued." || revision.Column != "DECIDED" {
		t.Fatalf("unexpected revision %+v", revision)
	}

	var history []api.HistoryEntry
	h.do(t, http.MethodGet, revisionPath+"/history", 0, nil, &history)
	if len(history) != 2 || history[0].To != "PENDING" || history[1].To != "ACCEPT" {
		t.Fatalf("unexpected revision history %+v", history)
	}
	if history[1].ActorID == nil || *history[1].ActorID != editor.ID {
		t.Fatalf("decision history should record the editor: %+v", history[1])
	}

	var recent []api.HistoryEntry
	h.do(t, http.MethodGet, "/history?limit=2", 0, nil, &recent)
	if len(recent) != 2 {
		t.Fatalf("recent history length = %d", len(recent))
	}
}

func TestAcknowledgeOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	lead := h.createUser(t, api.CreateUserRequest{Username: "lead", Email: "lead@journal.test", IsAuthor: true})
	co := h.createUser(t, api.CreateUserRequest{Username: "co", Email: "co@journal.test", IsAuthor: true})

	var created api.Result
	h.do(t, http.MethodPost, "/manuscripts", lead.ID, api.CreateManuscriptRequest{Title: "Joint", CoauthorIDs: []int64{co.ID}}, &created)
	if created.State != "WAITING_FOR_AUTHORS" {
		t.Fatalf("state = %s", created.State)
	}
	if len(h.notifier.To("co@journal.test")) != 1 {
		t.Fatal("co-author should be asked to acknowledge")
	}

	var ack api.Result
	status := h.do(t, http.MethodPost, fmt.Sprintf("/manuscripts/%d/authors/%d/acknowledge", created.EntityID, co.ID), 0, nil, &ack)
	if status != http.StatusOK || ack.State != "UNSUBMITTED" || len(ack.Messages) == 0 {
		t.Fatalf("acknowledge: status %d result %+v", status, ack)
	}
}

func TestErrorStatuses(t *testing.T) {
	h := newAPIHarness(t)
	lead := h.createUser(t, api.CreateUserRequest{Username: "lead", IsAuthor: true})

	cases := []struct {
		name   string
		method string
		path   string
		actor  int64
		body   any
		want   int
	}{
		{"unknown revision", http.MethodGet, "/revisions/999", 0, nil, http.StatusNotFound},
		{"malformed id", http.MethodGet, "/reviews/abc", 0, nil, http.StatusBadRequest},
		{"unknown actor", http.MethodPost, "/manuscripts", 4242, api.CreateManuscriptRequest{Title: "T"}, http.StatusNotFound},
		{"missing title", http.MethodPost, "/manuscripts", lead.ID, api.CreateManuscriptRequest{}, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/manuscripts", lead.ID, `{"title":"T","colour":"red"}`, http.StatusBadRequest},
		{"unknown status", http.MethodPost, "/revisions/1/transitions", 0, api.RevisionTransitionRequest{To: "ARCHIVED"}, http.StatusBadRequest},
		{"duplicate username", http.MethodPost, "/users", 0, api.CreateUserRequest{Username: "lead"}, http.StatusConflict},
		{"blank username", http.MethodPost, "/users", 0, api.CreateUserRequest{}, http.StatusBadRequest},
		{"bad ranking query", http.MethodGet, "/reviewers/ranked?manuscript=x", 0, nil, http.StatusBadRequest},
		{"bad history limit", http.MethodGet, "/history?limit=-1", 0, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			if status := h.do(t, tc.method, tc.path, tc.actor, tc.body, &body); status != tc.want {
				t.Fatalf("status = %d, want %d (body %v)", status, tc.want, body)
			}
			if body["error"] == "" {
				t.Fatalf("expected an error message, got %v", body)
			}
		})
	}
}

func TestMalformedActorHeader(t *testing.T) {
	h := newAPIHarness(t)
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/manuscripts", strings.NewReader(`{"title":"T"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(api.ActorHeader, "someone")
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newAPIHarness(t)
	var health map[string]string
	if status := h.do(t, http.MethodGet, "/healthz", 0, nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz: status %d body %v", status, health)
	}

	lead := h.createUser(t, api.CreateUserRequest{Username: "lead", IsAuthor: true})
	h.do(t, http.MethodPost, "/manuscripts", lead.ID, api.CreateManuscriptRequest{Title: "Counted"}, nil)

	resp, err := h.server.Client().Get(h.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(body), `editorial_unit_duration_seconds_count{action="create_manuscript",status="ok"} 1`) {
		t.Fatalf("metrics missing unit duration:\n%s", body)
	}
}

func TestExpireEndpointWithNothingDue(t *testing.T) {
	h := newAPIHarness(t)
	var resp api.ExpireResponse
	if status := h.do(t, http.MethodPost, "/reviews/expire", 0, nil, &resp); status != http.StatusOK {
		t.Fatalf("expire: status %d", status)
	}
	if len(resp.Expired) != 0 || len(resp.Errors) != 0 {
		t.Fatalf("unexpected expire response %+v", resp)
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
