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
)

var (
	baseURL = envOr("API_BASE_URL", "http://localhost:8000/api")
	token   = os.Getenv("API_TOKEN")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
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

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(title, method, url string, body interface{}) {
	color.Yellow("\n%s", title)
	resp, respBody, err := sendRequest(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(respBody)
}

func main() {
	color.Cyan("🚀 Starting knowledge chat smoke test against %s\n", baseURL)

	convID := time.Now().Unix()

	step("1. Health", "GET", "/health", nil)
	step("2. Refresh status", "GET", "/refresh_status", nil)

	// a conversation this instance has never seen, rebuilt from history
	step("3. Prompt with history", "POST", "/process_prompt", map[string]interface{}{
		"conv_id": convID,
		"prompt":  "And what documents do I need?",
		"history": []map[string]interface{}{
			{"role": "assistant", "content": "Welcome! How can I help?"},
			{"role": "user", "content": "How do I apply for a scholarship?"},
			{"role": "assistant", "content": "Submit the form before the deadline."},
		},
	})

	step("4. Follow-up prompt", "POST", "/process_prompt", map[string]interface{}{
		"conv_id": convID,
		"prompt":  "Summarise in one line.",
	})

	step("5. Define chat name", "POST", "/define_chat_name", map[string]interface{}{"conv_id": convID})
	step("6. Chat events", "GET", fmt.Sprintf("/conversations/%d/events", convID), nil)
	step("7. Delete chat", "DELETE", fmt.Sprintf("/delete_chat/%d", convID), nil)
	step("8. Refresh runs", "GET", "/refresh_runs?limit=5", nil)

	color.Cyan("\n✅ Done")
}
