//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("FEEDO_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestProfileJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	operatorEmail := fmt.Sprintf("integration_%d@example.com", time.Now().UnixNano())
	password := "Secret123!"

	var registerResp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email":    operatorEmail,
		"password": password,
	}, &registerResp)
	if registerResp.Token == "" || registerResp.UserID == "" {
		t.Fatalf("unexpected register response: %+v", registerResp)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email":    operatorEmail,
		"password": password,
	}, &loginResp)
	token := loginResp.Token
	if token == "" {
		t.Fatalf("login did not return token")
	}

	// the profile type label must be unique per run; its id is the slug
	label := fmt.Sprintf("Journey %d", time.Now().UnixNano())
	var created struct {
		ID string `json:"id"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/profile-types", token, map[string]any{
		"label": label,
		"sections": []map[string]any{
			{
				"label": "About You",
				"questions": []map[string]any{
					{"id": "name", "type": "text", "question": "Your name?", "required": true},
					{"id": "bio", "type": "textarea", "question": "Short bio?"},
				},
			},
			{
				"label": "Contact",
				"questions": []map[string]any{
					{"id": "phone", "type": "phone", "question": "Phone?", "required": true},
				},
			},
		},
	}, &created)
	if created.ID == "" {
		t.Fatalf("expected profile type id in response")
	}

	userID := fmt.Sprintf("enduser_%d", time.Now().UnixNano())
	var putResp struct {
		State string `json:"state"`
	}
	doRequest(t, client, http.MethodPut, fmt.Sprintf("%s/api/answers/%s/about-you?flush=1", base, userID), "", map[string]any{
		"label":       "About You",
		"profileType": created.ID,
		"questions": []map[string]any{
			{"id": "name", "type": "text", "question": "Your name?", "required": true, "answer": "Jane"},
			{"id": "bio", "type": "textarea", "question": "Short bio?", "answer": ""},
		},
	}, &putResp)
	if putResp.State != "clean" {
		t.Fatalf("expected clean state after flush, got %q", putResp.State)
	}

	var report struct {
		Sections map[string]bool `json:"sections"`
		Progress int             `json:"progress"`
	}
	doRequest(t, client, http.MethodGet, fmt.Sprintf("%s/api/progress/%s?profile_type=%s", base, userID, created.ID), "", nil, &report)
	if !report.Sections["about-you"] || report.Sections["contact"] {
		t.Fatalf("unexpected completion map: %v", report.Sections)
	}
	if report.Progress != 33 {
		t.Fatalf("expected 33%% progress, got %d", report.Progress)
	}

	// rename About You and verify the stored answers follow the new id
	var updateResp struct {
		Renamed map[string]string `json:"renamed"`
	}
	doRequest(t, client, http.MethodPut, base+"/api/profile-types/"+created.ID+"/sections", token, []map[string]any{
		{
			"originalId": "about-you",
			"label":      "Personal Details",
			"questions": []map[string]any{
				{"id": "name", "type": "text", "question": "Your name?", "required": true},
				{"id": "bio", "type": "textarea", "question": "Short bio?"},
			},
		},
		{
			"originalId": "contact",
			"label":      "Contact",
			"questions": []map[string]any{
				{"id": "phone", "type": "phone", "question": "Phone?", "required": true},
			},
		},
	}, &updateResp)
	if updateResp.Renamed["about-you"] != "personal-details" {
		t.Fatalf("expected rename mapping, got %v", updateResp.Renamed)
	}

	var moved struct {
		Questions []struct {
			ID     string `json:"id"`
			Answer any    `json:"answer"`
		} `json:"questions"`
	}
	doRequest(t, client, http.MethodGet, fmt.Sprintf("%s/api/answers/%s/personal-details", base, userID), "", nil, &moved)
	if len(moved.Questions) == 0 || moved.Questions[0].Answer != "Jane" {
		t.Fatalf("answers did not follow rename: %+v", moved)
	}

	resp, err := client.Get(fmt.Sprintf("%s/api/answers/%s/export", base, userID))
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("export status %d body %s", resp.StatusCode, string(body))
	}
	csvData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export data: %v", err)
	}
	if !strings.Contains(string(csvData), "Jane") {
		t.Fatalf("export csv missing answer; csv=%s", string(csvData))
	}
}

func doRequest(t *testing.T, client *http.Client, method, url, token string, body any, out any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
