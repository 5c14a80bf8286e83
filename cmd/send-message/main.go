package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

func main() {
	gatewayURL := os.Getenv("GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://127.0.0.1:8080"
	}

	if len(os.Args) < 4 {
		fmt.Println("Usage: send-message <from_phone> <target> <message> [reply_to_timestamp]")
		os.Exit(1)
	}

	fromPhone := os.Args[1]
	target := os.Args[2]
	message := os.Args[3]

	payload := map[string]interface{}{
		"fromPhone": fromPhone,
		"toTarget":  target,
		"content":   map[string]string{"type": "text", "value": message},
	}
	if len(os.Args) > 4 {
		payload["replyToTimestamp"] = os.Args[4]
	}

	body, _ := json.Marshal(payload)
	resp, err := http.Post(gatewayURL+"/api/messages/send", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result struct {
		MessageID int    `json:"messageId"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error (%d): %s\n", resp.StatusCode, result.Error)
		os.Exit(1)
	}

	fmt.Printf("Message sent, id=%d\n", result.MessageID)
}
