package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// Manual exercise of the gateway endpoints against a running instance
func main() {
	gatewayURL := os.Getenv("GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://127.0.0.1:8080"
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: debug-api <account_phone> [target]")
		os.Exit(1)
	}
	phone := os.Args[1]

	fmt.Println("=== GET /health ===")
	get(gatewayURL + "/health")

	fmt.Println("\n=== GET /api/chats/all ===")
	get(gatewayURL + "/api/chats/all?accountPhone=" + url.QueryEscape(phone))

	if len(os.Args) > 2 {
		target := os.Args[2]

		fmt.Println("\n=== GET /api/chat-messages ===")
		get(gatewayURL + "/api/chat-messages?phone=" + url.QueryEscape(phone) +
			"&chatId=" + url.QueryEscape(target) + "&limit=5")

		fmt.Println("\n=== GET /api/messages/unread ===")
		get(gatewayURL + "/api/messages/unread?accountPhone=" + url.QueryEscape(phone) +
			"&target=" + url.QueryEscape(target))
	}
}

func get(u string) {
	resp, err := http.Get(u)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
