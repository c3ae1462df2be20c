package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tallyup/tallyup/internal/auth"
	"github.com/tallyup/tallyup/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newTestServer builds a router over a temp SQLite store and registers
// one user, returning the router and a session token.
func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tallyup-service-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	router := NewRouter(
		NewAuthService(authenticator, jwtManager),
		NewBillService(store),
		NewContactService(store),
		jwtManager,
	)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":        "owner@example.com",
		"display_name": "Owner",
		"password":     "correct horse",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", resp.Code, resp.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &session)

	return router, session.Token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", resp.Body.String(), err)
	}
}

func manualBillPayload() map[string]any {
	return map[string]any{
		"mode":     "manual",
		"title":    "Team Dinner",
		"total":    "85.50",
		"currency": "USD",
		"location": "Luigi's",
		"participants": []map[string]any{
			{"name": "John", "amount": "28.50", "email": "john@example.com"},
			{"name": "Jane", "amount": "28.50"},
			{"name": "Mike", "amount": "28.50"},
		},
	}
}

type billBody struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
	IsSettled    bool   `json:"is_settled"`
	Participants []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Amount  string `json:"amount"`
		HasPaid bool   `json:"has_paid"`
	} `json:"participants"`
}

func createBill(t *testing.T, router *gin.Engine, token string, payload map[string]any) billBody {
	t.Helper()
	resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create bill returned %d: %s", resp.Code, resp.Body.String())
	}
	var bill billBody
	decodeBody(t, resp, &bill)
	return bill
}

func TestCreateManualBill(t *testing.T) {
	router, token := newTestServer(t)

	bill := createBill(t, router, token, manualBillPayload())

	if bill.ID == "" {
		t.Error("expected bill ID")
	}
	if bill.Total != "85.50" {
		t.Errorf("total = %s, want 85.50", bill.Total)
	}
	if bill.IsSettled {
		t.Error("new bill must be unsettled")
	}
	if len(bill.Participants) != 3 {
		t.Fatalf("got %d participants, want 3", len(bill.Participants))
	}
	if bill.Participants[0].Amount != "28.50" {
		t.Errorf("first amount = %s, want 28.50", bill.Participants[0].Amount)
	}

	t.Run("participant with email lands in contacts", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/contacts", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("list contacts returned %d", resp.Code)
		}
		var body struct {
			Contacts []struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"contacts"`
		}
		decodeBody(t, resp, &body)
		if len(body.Contacts) != 1 || body.Contacts[0].Email != "john@example.com" {
			t.Errorf("contacts = %+v, want John only", body.Contacts)
		}
	})
}

func TestCreateManualBillValidation(t *testing.T) {
	router, token := newTestServer(t)

	t.Run("unbalanced bill rejected", func(t *testing.T) {
		payload := manualBillPayload()
		payload["total"] = "100.00"
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("got %d, want 422", resp.Code)
		}
	})

	t.Run("garbage amount rejected not crashed", func(t *testing.T) {
		payload := manualBillPayload()
		payload["participants"] = []map[string]any{
			{"name": "John", "amount": "oops"},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("got %d, want 422", resp.Code)
		}
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		payload := manualBillPayload()
		payload["mode"] = "psychic"
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("got %d, want 400", resp.Code)
		}
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", "", manualBillPayload())
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want 401", resp.Code)
		}
	})
}

func TestCreateItemizedBill(t *testing.T) {
	router, token := newTestServer(t)

	payload := map[string]any{
		"mode":     "itemized",
		"title":    "Dinner",
		"currency": "USD",
		"pool": []map[string]any{
			{"id": "a", "name": "Alice"},
			{"id": "b", "name": "Bob"},
		},
		"items": []map[string]any{
			{"title": "Pasta", "price": "30.00", "shares": map[string]int{"a": 2, "b": 1}},
			{"title": "Wine", "price": "18.00", "shares": map[string]int{"a": 1, "b": 1}},
		},
	}

	bill := createBill(t, router, token, payload)

	if bill.Total != "48.00" {
		t.Errorf("total = %s, want 48.00", bill.Total)
	}
	if bill.Participants[0].Amount != "29.00" || bill.Participants[1].Amount != "19.00" {
		t.Errorf("amounts = %s/%s, want 29.00/19.00",
			bill.Participants[0].Amount, bill.Participants[1].Amount)
	}

	t.Run("item without shares blocks save", func(t *testing.T) {
		payload["items"] = []map[string]any{
			{"title": "Bread", "price": "15.00", "shares": map[string]int{}},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("got %d, want 422", resp.Code)
		}
	})

	t.Run("shares naming someone outside the pool block save", func(t *testing.T) {
		payload["items"] = []map[string]any{
			{"title": "Pasta", "price": "30.00", "shares": map[string]int{"ghost": 1}},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills", token, payload)
		if resp.Code != http.StatusUnprocessableEntity {
			t.Errorf("got %d, want 422: %s", resp.Code, resp.Body.String())
		}
	})
}

func TestPreview(t *testing.T) {
	router, token := newTestServer(t)

	t.Run("manual preview reports balance", func(t *testing.T) {
		payload := manualBillPayload()
		resp := doJSON(t, router, http.MethodPost, "/api/v1/split/preview", token, payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("preview returned %d: %s", resp.Code, resp.Body.String())
		}
		var body struct {
			Distributed string `json:"distributed"`
			IsBalanced  bool   `json:"is_balanced"`
			CanSave     bool   `json:"can_save"`
		}
		decodeBody(t, resp, &body)
		if body.Distributed != "85.50" || !body.IsBalanced || !body.CanSave {
			t.Errorf("preview = %+v", body)
		}
	})

	t.Run("itemized preview surfaces unassigned amount", func(t *testing.T) {
		payload := map[string]any{
			"mode":  "itemized",
			"title": "Dinner",
			"pool":  []map[string]any{{"id": "a", "name": "Alice"}},
			"items": []map[string]any{
				{"title": "Pasta", "price": "30.00", "shares": map[string]int{"a": 1}},
				{"title": "Bread", "price": "15.00", "shares": map[string]int{}},
			},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/split/preview", token, payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("preview returned %d", resp.Code)
		}
		var body struct {
			Total      string `json:"total"`
			Unassigned string `json:"unassigned"`
			IsBalanced bool   `json:"is_balanced"`
			CanSave    bool   `json:"can_save"`
		}
		decodeBody(t, resp, &body)
		if body.Total != "45.00" || body.Unassigned != "15.00" {
			t.Errorf("preview = %+v", body)
		}
		if body.IsBalanced || body.CanSave {
			t.Error("unassigned item must block balance and save")
		}
	})

	t.Run("same-name participants keep separate shares", func(t *testing.T) {
		payload := map[string]any{
			"mode":     "manual",
			"title":    "Twins Lunch",
			"total":    "20.00",
			"currency": "USD",
			"participants": []map[string]any{
				{"id": "a", "name": "Alex", "amount": "12.00"},
				{"id": "b", "name": "Alex", "amount": "8.00"},
			},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/split/preview", token, payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("preview returned %d: %s", resp.Code, resp.Body.String())
		}
		var body struct {
			Shares []struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Amount string `json:"amount"`
			} `json:"shares"`
		}
		decodeBody(t, resp, &body)
		if len(body.Shares) != 2 {
			t.Fatalf("got %d shares, want 2", len(body.Shares))
		}
		if body.Shares[0].ID == body.Shares[1].ID {
			t.Error("shares must be keyed by participant ID")
		}
		if body.Shares[0].Amount != "12.00" || body.Shares[1].Amount != "8.00" {
			t.Errorf("shares = %+v", body.Shares)
		}
	})

	t.Run("itemized shares outside the pool count as unassigned", func(t *testing.T) {
		payload := map[string]any{
			"mode":  "itemized",
			"title": "Dinner",
			"pool":  []map[string]any{{"id": "a", "name": "Alice"}},
			"items": []map[string]any{
				{"title": "Pasta", "price": "30.00", "shares": map[string]int{"ghost": 1}},
			},
		}
		resp := doJSON(t, router, http.MethodPost, "/api/v1/split/preview", token, payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("preview returned %d", resp.Code)
		}
		var body struct {
			Unassigned string `json:"unassigned"`
			CanSave    bool   `json:"can_save"`
			Shares     []struct {
				ID     string `json:"id"`
				Amount string `json:"amount"`
			} `json:"shares"`
		}
		decodeBody(t, resp, &body)
		if body.Unassigned != "30.00" || body.CanSave {
			t.Errorf("preview = %+v, want 30.00 unassigned and no save", body)
		}
		if len(body.Shares) != 1 || body.Shares[0].Amount != "0.00" {
			t.Errorf("shares = %+v, want Alice owing 0.00", body.Shares)
		}
	})
}

func TestBillLifecycle(t *testing.T) {
	router, token := newTestServer(t)
	bill := createBill(t, router, token, manualBillPayload())

	t.Run("get", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/bills/"+bill.ID, token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("get returned %d", resp.Code)
		}
		var got billBody
		decodeBody(t, resp, &got)
		if got.Title != "Team Dinner" {
			t.Errorf("title = %s", got.Title)
		}
	})

	t.Run("list", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/bills", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("list returned %d", resp.Code)
		}
		var body struct {
			Bills []billBody `json:"bills"`
		}
		decodeBody(t, resp, &body)
		if len(body.Bills) != 1 {
			t.Errorf("got %d bills, want 1", len(body.Bills))
		}
	})

	t.Run("mark one participant paid", func(t *testing.T) {
		pid := bill.Participants[0].ID
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills/"+bill.ID+"/participants/"+pid+"/pay", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("pay returned %d: %s", resp.Code, resp.Body.String())
		}
		var got billBody
		decodeBody(t, resp, &got)
		if !got.Participants[0].HasPaid {
			t.Error("participant not marked paid")
		}
		if got.IsSettled {
			t.Error("bill settled with unpaid participants")
		}
	})

	t.Run("settle marks everyone paid", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/bills/"+bill.ID+"/settle", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("settle returned %d", resp.Code)
		}
		var got billBody
		decodeBody(t, resp, &got)
		if !got.IsSettled {
			t.Error("bill not settled")
		}
		for _, p := range got.Participants {
			if !p.HasPaid {
				t.Errorf("participant %s not paid after settle", p.Name)
			}
		}
	})

	t.Run("update replaces the record", func(t *testing.T) {
		payload := manualBillPayload()
		payload["title"] = "Updated Dinner"
		payload["total"] = "60.00"
		payload["participants"] = []map[string]any{
			{"name": "John", "amount": "30.00"},
			{"name": "Jane", "amount": "30.00"},
		}
		resp := doJSON(t, router, http.MethodPut, "/api/v1/bills/"+bill.ID, token, payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("update returned %d: %s", resp.Code, resp.Body.String())
		}
		var got billBody
		decodeBody(t, resp, &got)
		if got.Title != "Updated Dinner" || len(got.Participants) != 2 {
			t.Errorf("update result = %+v", got)
		}
		if got.IsSettled {
			t.Error("a replaced bill starts unsettled again")
		}
	})

	t.Run("delete", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodDelete, "/api/v1/bills/"+bill.ID, token, nil)
		if resp.Code != http.StatusNoContent {
			t.Fatalf("delete returned %d", resp.Code)
		}
		resp = doJSON(t, router, http.MethodGet, "/api/v1/bills/"+bill.ID, token, nil)
		if resp.Code != http.StatusNotFound {
			t.Errorf("get after delete returned %d, want 404", resp.Code)
		}
	})
}

func TestBillOwnership(t *testing.T) {
	router, token := newTestServer(t)
	bill := createBill(t, router, token, manualBillPayload())

	// Second account must not see the first account's bill.
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":        "intruder@example.com",
		"display_name": "Intruder",
		"password":     "also long enough",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register returned %d", resp.Code)
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &session)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/bills/" + bill.ID},
		{http.MethodDelete, "/api/v1/bills/" + bill.ID},
		{http.MethodPost, "/api/v1/bills/" + bill.ID + "/settle"},
	} {
		if got := doJSON(t, router, tc.method, tc.path, session.Token, nil); got.Code != http.StatusForbidden {
			t.Errorf("%s %s returned %d, want 403", tc.method, tc.path, got.Code)
		}
	}
}
