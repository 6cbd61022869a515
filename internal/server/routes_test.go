package server

import (
	"net/http"
	"testing"
)

func TestAuthRequired(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, "GET", "/api/habits", "", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	w = doJSON(t, s, "GET", "/api/habits", "not-a-real-token", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, "POST", "/api/auth/register", "",
		map[string]string{"username": "maya", "password": "short"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", w.Code)
	}

	registerUser(t, s, "maya")
	w = doJSON(t, s, "POST", "/api/auth/register", "",
		map[string]string{"username": "maya", "password": "correct horse"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate username: status = %d, want 409", w.Code)
	}
}

func TestLogin(t *testing.T) {
	s := testServer(t)
	registerUser(t, s, "maya")

	var resp struct {
		Token string `json:"token"`
	}
	w := doJSON(t, s, "POST", "/api/auth/login", "",
		map[string]string{"username": "maya", "password": "correct horse"}, &resp)
	if w.Code != http.StatusOK || resp.Token == "" {
		t.Errorf("login: status = %d token %q, want 200 with token", w.Code, resp.Token)
	}

	w = doJSON(t, s, "POST", "/api/auth/login", "",
		map[string]string{"username": "maya", "password": "wrong password"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", w.Code)
	}
	w = doJSON(t, s, "POST", "/api/auth/login", "",
		map[string]string{"username": "nobody", "password": "correct horse"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", w.Code)
	}
}

func TestHabitLifecycle(t *testing.T) {
	s := testServer(t)
	token := registerUser(t, s, "maya")

	var habit habitResponse
	w := doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "morning run", "kind": "daily"}, &habit)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", w.Code, w.Body.String())
	}
	if habit.ID == "" || habit.Name != "morning run" || habit.Kind != "daily" || habit.Archived {
		t.Errorf("created habit = %+v", habit)
	}

	var list struct {
		Habits []habitResponse `json:"habits"`
	}
	w = doJSON(t, s, "GET", "/api/habits", token, nil, &list)
	if w.Code != http.StatusOK || len(list.Habits) != 1 {
		t.Fatalf("list: status = %d, %d habits, want 200 with 1", w.Code, len(list.Habits))
	}

	var got habitResponse
	w = doJSON(t, s, "GET", "/api/habits/"+habit.ID, token, nil, &got)
	if w.Code != http.StatusOK || got.ID != habit.ID {
		t.Errorf("get: status = %d id %q", w.Code, got.ID)
	}

	w = doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/archive", token, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: status = %d", w.Code)
	}

	// Archived habits drop out of the list and refuse new records
	w = doJSON(t, s, "GET", "/api/habits", token, nil, &list)
	if len(list.Habits) != 0 {
		t.Errorf("list after archive: %d habits, want 0", len(list.Habits))
	}
	w = doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/records", token,
		map[string]any{"date": "2025-06-02"}, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("record on archived: status = %d, want 409", w.Code)
	}
}

func TestHabitValidationAndOwnership(t *testing.T) {
	s := testServer(t)
	token := registerUser(t, s, "maya")
	other := registerUser(t, s, "theo")

	w := doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "stretch", "kind": "monthly"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind: status = %d, want 400", w.Code)
	}

	var habit habitResponse
	doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "stretch", "kind": "daily"}, &habit)

	// Another user's habit looks identical to a missing one
	w = doJSON(t, s, "GET", "/api/habits/"+habit.ID, other, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign habit: status = %d, want 404", w.Code)
	}
	w = doJSON(t, s, "GET", "/api/habits/no-such-id", token, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing habit: status = %d, want 404", w.Code)
	}
}

func TestRecordEndpoints(t *testing.T) {
	s := testServer(t)
	token := registerUser(t, s, "maya")

	var habit habitResponse
	doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "read", "kind": "daily"}, &habit)

	// Omitted completed count defaults to one completion
	var rec recordResponse
	w := doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/records", token,
		map[string]any{"date": "2025-06-02"}, &rec)
	if w.Code != http.StatusCreated {
		t.Fatalf("upsert: status = %d: %s", w.Code, w.Body.String())
	}
	if rec.Date != "2025-06-02" || rec.Completed != 1 || rec.Momentum != 1 {
		t.Errorf("record = %+v", rec)
	}

	w = doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/records", token,
		map[string]any{"date": "junk"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}

	var list struct {
		Records []recordResponse `json:"records"`
	}
	w = doJSON(t, s, "GET", "/api/habits/"+habit.ID+"/records?from=2025-06-01&to=2025-06-08", token, nil, &list)
	if w.Code != http.StatusOK || len(list.Records) != 1 {
		t.Fatalf("list: status = %d, %d records, want 200 with 1", w.Code, len(list.Records))
	}

	w = doJSON(t, s, "GET", "/api/habits/"+habit.ID+"/records", token, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing range: status = %d, want 400", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	s := testServer(t)
	token := registerUser(t, s, "maya")

	var habit habitResponse
	doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "read", "kind": "daily"}, &habit)
	doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/records", token,
		map[string]any{"date": "2025-06-02"}, nil)

	var resp struct {
		TotalMomentum int             `json:"total_momentum"`
		Habits        []habitResponse `json:"habits"`
	}
	w := doJSON(t, s, "GET", "/api/dashboard", token, nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: status = %d", w.Code)
	}
	if resp.TotalMomentum != 1 || len(resp.Habits) != 1 {
		t.Errorf("dashboard = %+v", resp)
	}
	if resp.Habits[0].AccumulatedMomentum != 1 {
		t.Errorf("accumulated = %d, want 1", resp.Habits[0].AccumulatedMomentum)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := testServer(t)
	token := registerUser(t, s, "maya")

	var habit habitResponse
	doJSON(t, s, "POST", "/api/habits", token,
		map[string]any{"name": "read", "kind": "daily"}, &habit)
	doJSON(t, s, "POST", "/api/habits/"+habit.ID+"/records", token,
		map[string]any{"date": "2025-06-02"}, nil)

	var resp struct {
		Days   int `json:"days"`
		Series []struct {
			Date     string `json:"date"`
			Momentum int    `json:"momentum"`
		} `json:"series"`
	}
	w := doJSON(t, s, "GET", "/api/dashboard/history?days=7", token, nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("history: status = %d", w.Code)
	}
	if resp.Days != 7 || len(resp.Series) != 7 {
		t.Fatalf("history = days %d, %d points, want 7/7", resp.Days, len(resp.Series))
	}
	// The old record's running total carries forward into the window
	for _, p := range resp.Series {
		if p.Momentum != 1 {
			t.Errorf("day %s momentum = %d, want 1", p.Date, p.Momentum)
		}
	}

	w = doJSON(t, s, "GET", "/api/dashboard/history", token, nil, &resp)
	if w.Code != http.StatusOK || resp.Days != 30 || len(resp.Series) != 30 {
		t.Errorf("default window: status %d days %d len %d, want 200/30/30", w.Code, resp.Days, len(resp.Series))
	}

	for _, q := range []string{"days=0", "days=400", "days=abc"} {
		if w := doJSON(t, s, "GET", "/api/dashboard/history?"+q, token, nil, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}
