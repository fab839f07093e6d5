package api

import (
	"net/http"
	"testing"

	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/auth"
)

func TestAuditTrail_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", auth.RoleUser)
	token := env.token(t, "alice")

	rec := env.request(t, http.MethodGet, "/api/v1/audit", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAuditTrail_RecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", auth.RoleAdmin)
	env.seedUser(t, "alice", auth.RoleUser)
	adminToken := env.token(t, "root")
	aliceToken := env.token(t, "alice")

	env.registerDevice(t, aliceToken, "dev-1", "Porch Light", "light")
	cmd := env.request(t, http.MethodPost, "/api/v1/devices/dev-1/command", aliceToken,
		commandRequest{Command: "set_state"})
	if cmd.Code != http.StatusAccepted {
		t.Fatalf("command status = %d", cmd.Code)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/audit", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var result audit.ListResult
	decodeBody(t, rec, &result)

	// Two logins, one registration, one command.
	if result.Total != 4 {
		t.Fatalf("Total = %d, want 4", result.Total)
	}

	actions := make(map[string]int)
	for _, entry := range result.Entries {
		actions[entry.Action]++
	}
	if actions[audit.ActionLogin] != 2 {
		t.Errorf("login entries = %d, want 2", actions[audit.ActionLogin])
	}
	if actions[audit.ActionDeviceRegister] != 1 || actions[audit.ActionCommand] != 1 {
		t.Errorf("register/command entries = %d/%d, want 1/1",
			actions[audit.ActionDeviceRegister], actions[audit.ActionCommand])
	}
}

func TestAuditTrail_FilterByAction(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", auth.RoleAdmin)
	env.seedUser(t, "alice", auth.RoleUser)
	adminToken := env.token(t, "root")
	aliceToken := env.token(t, "alice")
	env.registerDevice(t, aliceToken, "dev-1", "Porch Light", "light")

	rec := env.request(t, http.MethodGet, "/api/v1/audit?action=device_register", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var result audit.ListResult
	decodeBody(t, rec, &result)
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}
	if result.Entries[0].EntityID != "dev-1" {
		t.Errorf("EntityID = %s, want dev-1", result.Entries[0].EntityID)
	}
}
