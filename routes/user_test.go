package routes

import (
	"testing"
	"time"

	"whatsapp-clone-server/models"
	"whatsapp-clone-server/storage"

	"github.com/kataras/iris/v12"
)

func TestSyncUserUpserts(t *testing.T) {
	app, _ := buildTestApp(t)
	token := signIdentity(t, "sub-alice", "Alice")

	first := mustSync(t, app, "sub-alice", "Alice")

	// re-sync with new profile data keeps the same row
	rec := doJSON(t, app, "POST", "/api/user/sync", token, iris.Map{
		"name":      "Alice Cooper",
		"email":     "ALICE@Example.com",
		"avatarURL": "https://img.example.com/a.png",
	})
	if rec.Code != 200 {
		t.Fatalf("re-sync: status %d body %s", rec.Code, rec.Body.String())
	}
	var u models.User
	decodeBody(t, rec, &u)
	if u.ID != first {
		t.Fatalf("re-sync created a new row: %d != %d", u.ID, first)
	}
	if u.Name != "Alice Cooper" || u.Email != "alice@example.com" {
		t.Fatalf("profile not refreshed: %+v", u)
	}

	var count int64
	storage.DB.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 user row, found %d", count)
	}
}

func TestGetMeRequiresSyncedUser(t *testing.T) {
	app, _ := buildTestApp(t)

	// valid token but never synced
	rec := doJSON(t, app, "GET", "/api/user/me", signIdentity(t, "sub-ghost", "Ghost"), nil)
	if rec.Code != 401 {
		t.Fatalf("unsynced me: status %d, want 401", rec.Code)
	}

	// no token at all
	rec = doJSON(t, app, "GET", "/api/user/me", "", nil)
	if rec.Code == 200 {
		t.Fatalf("me without token: status %d, want non-200", rec.Code)
	}

	mustSync(t, app, "sub-alice", "Alice")
	rec = doJSON(t, app, "GET", "/api/user/me", signIdentity(t, "sub-alice", "Alice"), nil)
	if rec.Code != 200 {
		t.Fatalf("me after sync: status %d", rec.Code)
	}
}

func TestGetUsersExcludesCallerAndFilters(t *testing.T) {
	app, _ := buildTestApp(t)
	mustSync(t, app, "sub-alice", "Alice")
	mustSync(t, app, "sub-bob", "Bob")
	mustSync(t, app, "sub-bobby", "Bobby")
	aliceTok := signIdentity(t, "sub-alice", "Alice")

	var out struct {
		Users []models.User `json:"users"`
	}

	rec := doJSON(t, app, "GET", "/api/user/search", aliceTok, nil)
	decodeBody(t, rec, &out)
	if len(out.Users) != 2 {
		t.Fatalf("expected 2 other users, got %d", len(out.Users))
	}
	for _, u := range out.Users {
		if u.Name == "Alice" {
			t.Fatal("caller included in user listing")
		}
	}

	rec = doJSON(t, app, "GET", "/api/user/search?q=bobb", aliceTok, nil)
	decodeBody(t, rec, &out)
	if len(out.Users) != 1 || out.Users[0].Name != "Bobby" {
		t.Fatalf("search result = %+v", out.Users)
	}
}

func TestUpdateStatusBestEffort(t *testing.T) {
	app, _ := buildTestApp(t)
	alice := mustSync(t, app, "sub-alice", "Alice")
	aliceTok := signIdentity(t, "sub-alice", "Alice")

	before := time.Now().Add(-time.Minute)
	storage.DB.Model(&models.User{}).Where("id = ?", alice).Update("last_seen", before)

	rec := doJSON(t, app, "PATCH", "/api/user/status", aliceTok, iris.Map{"isOnline": false})
	if rec.Code != 204 {
		t.Fatalf("status heartbeat: status %d", rec.Code)
	}
	var u models.User
	storage.DB.First(&u, alice)
	if u.IsOnline {
		t.Fatal("offline heartbeat not recorded")
	}
	if !u.LastSeen.After(before) {
		t.Fatal("heartbeat did not advance lastSeen")
	}

	// unknown-but-authenticated caller degrades to a silent no-op
	rec = doJSON(t, app, "PATCH", "/api/user/status", signIdentity(t, "sub-ghost", "Ghost"), iris.Map{"isOnline": true})
	if rec.Code != 204 {
		t.Fatalf("unknown caller heartbeat: status %d, want 204", rec.Code)
	}
}
