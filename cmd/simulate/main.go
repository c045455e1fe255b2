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

const baseURL = "http://localhost:3000/api/dialogue/v1"

// Simplified DTOs for the script
type createSessionResponse struct {
	Data struct {
		SessionId string `json:"session_id"`
	} `json:"data"`
}

type turnRequest struct {
	SessionId string `json:"session_id"`
	Query     string `json:"query"`
}

type turnResponse struct {
	Data struct {
		Answer         string `json:"answer"`
		SearchCriteria string `json:"search_criteria"`
		RouteName      string `json:"route_name"`
		SearchResults  []struct {
			Content string `json:"content"`
		} `json:"search_results"`
	} `json:"data"`
}

func main() {
	color.Cyan("🚀 Spatial Search Dialogue Simulation\n")

	sessionID, err := createSession()
	if err != nil {
		color.Red("Failed to create session: %v", err)
		os.Exit(1)
	}
	color.Green("Session Created: %s", sessionID)

	script := []string{
		"hi there",
		"I am looking for environmental monitoring datasets",
		"specifically air quality measurements in Berlin",
		"yes, show me what you have",
		"reset",
	}

	for _, text := range script {
		color.Yellow("\nUSER: %s", text)

		start := time.Now()
		res, err := sendTurn(sessionID, text)
		elapsed := time.Since(start)

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		color.Green("ASSISTANT (%v): %s", elapsed.Round(time.Millisecond), res.Data.Answer)
		if res.Data.SearchCriteria != "" {
			fmt.Printf("  criteria: %s\n", res.Data.SearchCriteria)
		}
		if res.Data.RouteName != "" {
			fmt.Printf("  route:    %s\n", res.Data.RouteName)
		}
		if len(res.Data.SearchResults) > 0 {
			fmt.Printf("  results:  %d documents\n", len(res.Data.SearchResults))
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func createSession() (string, error) {
	resp, err := http.Post(baseURL+"/session", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Data.SessionId, nil
}

func sendTurn(sessionID, text string) (*turnResponse, error) {
	payload, _ := json.Marshal(turnRequest{
		SessionId: sessionID,
		Query:     text,
	})

	resp, err := http.Post(baseURL+"/data", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res turnResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
