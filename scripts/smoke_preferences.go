package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Smoke test for a running relay: mints a token with JWT_SECRET and walks the preferences API.
// Usage: JWT_SECRET=... go run scripts/smoke_preferences.go [base-url]

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func sendRequest(baseURL, method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(baseURL, title, method, url, token string, body interface{}) {
	color.Yellow("\n%s", title)
	resp, respBody, err := sendRequest(baseURL, method, url, token, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 300 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	var out map[string]interface{}
	json.Unmarshal(respBody, &out)
	prettyPrint(out)
}

func main() {
	baseURL := "http://localhost:3000/api"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		color.Red("JWT_SECRET is not set")
		os.Exit(1)
	}

	userID := uuid.New()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(10 * time.Minute).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		color.Red("Failed to sign token: %v", err)
		os.Exit(1)
	}

	color.Cyan("🚀 Preferences API smoke test as %s\n", userID)

	step(baseURL, "1. Defaults for a new user", "GET", "/notification-preferences", token, nil)
	step(baseURL, "2. Mute a conversation and set quiet hours", "PATCH", "/notification-preferences", token, map[string]interface{}{
		"muted_conversations": []string{"demo-conversation"},
		"quiet_hours_start":   "22:00",
		"quiet_hours_end":     "06:00",
	})
	step(baseURL, "3. Invalid time is rejected", "PATCH", "/notification-preferences", token, map[string]interface{}{
		"quiet_hours_start": "25:00",
	})
	step(baseURL, "4. Clear everything", "PATCH", "/notification-preferences", token, map[string]interface{}{
		"clear_quiet_hours":   true,
		"muted_conversations": []string{},
	})
	step(baseURL, "5. Without a token", "GET", "/notification-preferences", "", nil)
}
