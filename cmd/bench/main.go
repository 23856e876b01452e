// README: Claim-contention load tool; floods one confirmed appointment with concurrent claims.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type config struct {
	BaseURL string
	Riders  int
	Rounds  int
	Store   string
}

func main() {
	cfg := loadConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	for i := 0; i < cfg.Riders; i++ {
		if err := postJSON(client, cfg.BaseURL+"/api/riders", map[string]any{
			"rider_id": fmt.Sprintf("bench_rider_%d", i),
			"rating":   5.0,
		}, nil); err != nil {
			// Riders persist across runs; a duplicate insert is fine.
			continue
		}
	}

	totalWins, totalConflicts, totalOther := 0, 0, 0
	for round := 0; round < cfg.Rounds; round++ {
		apptID, err := seedConfirmedAppointment(client, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed round %d: %v\n", round, err)
			os.Exit(1)
		}
		wins, conflicts, other := race(client, cfg, apptID)
		totalWins += wins
		totalConflicts += conflicts
		totalOther += other
		if wins != 1 {
			fmt.Fprintf(os.Stderr, "round %d: expected exactly 1 winner, got %d\n", round, wins)
		}
	}

	fmt.Println("\n== Summary ==")
	fmt.Printf("rounds=%d riders=%d wins=%d conflicts=%d other=%d\n",
		cfg.Rounds, cfg.Riders, totalWins, totalConflicts, totalOther)
	if totalWins != cfg.Rounds {
		os.Exit(1)
	}
}

func race(client *http.Client, cfg config, apptID string) (wins, conflicts, other int) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < cfg.Riders; i++ {
		riderID := fmt.Sprintf("bench_rider_%d", i)
		wg.Add(1)
		go func(rid string) {
			defer wg.Done()
			<-start
			status := claim(client, cfg.BaseURL, apptID, rid)
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusOK:
				wins++
			case http.StatusConflict:
				conflicts++
			default:
				other++
			}
		}(riderID)
	}
	close(start)
	wg.Wait()

	// Vendor reset frees the winning rider for the next round.
	_ = postActor(client, cfg.BaseURL+"/api/appointments/"+apptID+"/transition",
		map[string]any{"target": "pending"}, "vendor", cfg.Store)
	return wins, conflicts, other
}

func seedConfirmedAppointment(client *http.Client, cfg config) (string, error) {
	var created struct {
		AppointmentID string `json:"appointment_id"`
	}
	err := postJSON(client, cfg.BaseURL+"/api/appointments", map[string]any{
		"customer_id":     "bench_customer",
		"vendor_store_id": cfg.Store,
		"service_price":   1000,
		"total_amount":    1000,
		"currency":        "TWD",
		"scheduled_for":   time.Now().Add(time.Hour).Format(time.RFC3339),
	}, &created)
	if err != nil {
		return "", err
	}
	err = postActor(client, cfg.BaseURL+"/api/appointments/"+created.AppointmentID+"/transition",
		map[string]any{"target": "confirmed"}, "vendor", cfg.Store)
	return created.AppointmentID, err
}

func claim(client *http.Client, baseURL, apptID, riderID string) int {
	req, _ := http.NewRequest(http.MethodPost,
		baseURL+"/api/dispatch/claimable/"+apptID+"/claim", bytes.NewReader(nil))
	req.Header.Set("X-Actor-Role", "rider")
	req.Header.Set("X-Actor-ID", riderID)
	resp, err := client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func postJSON(client *http.Client, url string, body any, out any) error {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	resp, err := client.Post(url, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func postActor(client *http.Client, url string, body any, role, id string) error {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Role", role)
	req.Header.Set("X-Actor-ID", id)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return nil
}

func loadConfig() config {
	var cfg config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("SCHED_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.IntVar(&cfg.Riders, "riders", envOrDefaultInt("SCHED_BENCH_RIDERS", 20), "Concurrent claiming riders")
	flag.IntVar(&cfg.Rounds, "rounds", envOrDefaultInt("SCHED_BENCH_ROUNDS", 10), "Contention rounds")
	flag.StringVar(&cfg.Store, "store", envOrDefault("SCHED_BENCH_STORE", "bench_store"), "Vendor store id")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, _ = fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			return n
		}
	}
	return def
}
