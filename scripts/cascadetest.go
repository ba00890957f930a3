// cascadetest is a tool to verify circuit breaker and fallback behavior in
// the media bridge by driving the chat route while its backends fail.
//
// Usage:
//
//	go run cascadetest.go -bridge http://localhost:8765
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		bridgeURL = flag.String("bridge", "http://localhost:8765", "Media bridge URL")
		requests  = flag.Int("requests", 10, "Requests per phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CASCADE & CIRCUIT BREAKER TEST                        ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Baseline chat requests
	fmt.Println(colorBlue + "━━━ PHASE 1: Baseline ━━━" + colorReset)
	served := make(map[string]int)
	for i := 0; i < *requests; i++ {
		body, err := sendChat(client, *bridgeURL)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		served[servedBy(body)]++
	}

	fmt.Println("\n  Serving tier distribution:")
	for tier, count := range served {
		fmt.Printf("    %s → %d requests\n", tier, count)
	}
	if len(served) == 0 {
		fmt.Println(colorRed + "  ✗ No responses! Is the bridge running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Baseline verified" + colorReset)
	fmt.Println()

	// PHASE 2: Observe degradation
	fmt.Println(colorBlue + "━━━ PHASE 2: Degradation ━━━" + colorReset)
	fmt.Println("Stop the Ollama daemon now, then press Enter...")
	fmt.Scanln()

	degraded := 0
	for i := 0; i < *requests; i++ {
		body, err := sendChat(client, *bridgeURL)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if fallbackName, ok := body["fallback"].(string); ok {
			degraded++
			fmt.Printf(colorYellow+"  Request %d: degraded via %s\n"+colorReset, i+1, fallbackName)
		} else {
			fmt.Printf("  Request %d: served normally\n", i+1)
		}
	}
	if degraded > 0 {
		fmt.Println(colorGreen + "  ✓ Degraded responses carried fallback envelopes" + colorReset)
	} else {
		fmt.Println(colorYellow + "  ? No degradation observed, backend may still be up" + colorReset)
	}
	fmt.Println()

	// PHASE 3: Inspect breaker state
	fmt.Println(colorBlue + "━━━ PHASE 3: Breaker State ━━━" + colorReset)
	status, err := fetchJSON(client, *bridgeURL+"/api/local-ai/status")
	if err != nil {
		fmt.Printf(colorRed+"  ✗ status fetch failed: %v\n"+colorReset, err)
		os.Exit(1)
	}
	circuits, _ := status["circuit"].(map[string]any)
	for key, snapshot := range circuits {
		snap, _ := snapshot.(map[string]any)
		state, _ := snap["state"].(string)
		color := colorGreen
		if state == "OPEN" {
			color = colorRed
		}
		fmt.Printf("    %s → %s%s%s\n", key, color, state, colorReset)
	}

	metricsSnap, err := fetchJSON(client, *bridgeURL+"/metrics")
	if err == nil {
		fmt.Printf("\n  total requests seen by the bridge: %v\n", metricsSnap["total_requests"])
	}

	fmt.Println(colorGreen + "\n  ✓ Done" + colorReset)
}

func sendChat(client *http.Client, bridgeURL string) (map[string]any, error) {
	payload := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "say hi in five words"}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(bridgeURL+"/api/chat", "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func servedBy(body map[string]any) string {
	if name, ok := body["fallback"].(string); ok {
		return name
	}
	return "chat.ollama"
}

func fetchJSON(client *http.Client, url string) (map[string]any, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
