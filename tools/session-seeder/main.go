// session-seeder drives a running proctorwatch engine with synthetic
// observation batches so dashboards and alert pipelines have data to
// show during development.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
)

var (
	engineURL string
	sessions  int
	batches   int
	interval  time.Duration
	suspect   float64
)

var categories = []string{"behavioral", "eye-tracking", "facial", "voice", "system"}

func main() {
	root := &cobra.Command{
		Use:   "session-seeder",
		Short: "Generate synthetic proctoring sessions against a running engine",
		RunE:  run,
	}

	root.Flags().StringVar(&engineURL, "url", "http://localhost:8090", "engine base URL")
	root.Flags().IntVar(&sessions, "sessions", 5, "number of sessions to simulate")
	root.Flags().IntVar(&batches, "batches", 20, "observation batches per session")
	root.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "delay between batches")
	root.Flags().Float64Var(&suspect, "suspect-ratio", 0.3, "fraction of sessions generated with anomalous behavior")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	gofakeit.Seed(time.Now().UnixNano())
	client := &http.Client{Timeout: 10 * time.Second}

	sent, failed := 0, 0
	for s := 0; s < sessions; s++ {
		sessionID := fmt.Sprintf("exam-%s", gofakeit.UUID())
		anomalous := rand.Float64() < suspect
		fmt.Printf("session %s (anomalous=%v)\n", sessionID, anomalous)

		for b := 0; b < batches; b++ {
			category := categories[rand.Intn(len(categories))]
			payload := buildPayload(category, anomalous)

			if err := postBatch(client, sessionID, category, payload); err != nil {
				fmt.Fprintf(os.Stderr, "  batch failed: %v\n", err)
				failed++
			} else {
				sent++
			}
			time.Sleep(interval)
		}
	}

	fmt.Printf("done: %d sent, %d failed\n", sent, failed)
	return nil
}

func postBatch(client *http.Client, sessionID, category string, payload any) error {
	body, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"payload":    payload,
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/api/v1/signals/score/%s", engineURL, category),
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned %d for %s", resp.StatusCode, category)
	}
	return nil
}

// buildPayload produces a category-shaped payload. Anomalous sessions
// exaggerate the statistics the scorers look at.
func buildPayload(category string, anomalous bool) any {
	switch category {
	case "behavioral":
		return behavioralPayload(anomalous)
	case "eye-tracking":
		return eyeTrackingPayload(anomalous)
	case "facial":
		return facialPayload(anomalous)
	case "voice":
		return voicePayload(anomalous)
	default:
		return systemPayload(anomalous)
	}
}

func behavioralPayload(anomalous bool) any {
	n := 10 + rand.Intn(15)
	timings := make([]float64, n)
	correct := make([]bool, n)
	gaps := make([]float64, n)
	for i := range timings {
		if anomalous {
			// Wildly inconsistent answer speed with alternating correctness.
			timings[i] = gofakeit.Float64Range(0.5, 120)
			correct[i] = i%2 == 0
			gaps[i] = gofakeit.Float64Range(0, 300)
		} else {
			timings[i] = gofakeit.Float64Range(15, 45)
			correct[i] = rand.Float64() < 0.8
			gaps[i] = gofakeit.Float64Range(5, 40)
		}
	}
	return map[string]any{
		"answer_timings":   timings,
		"correct":          correct,
		"interaction_gaps": gaps,
	}
}

func eyeTrackingPayload(anomalous bool) any {
	n := 40 + rand.Intn(40)
	samples := make([]map[string]float64, n)
	x, y := 0.5, 0.5
	for i := range samples {
		step := 0.05
		if anomalous {
			step = 0.6
		}
		x = clamp01(x + gofakeit.Float64Range(-step, step))
		y = clamp01(y + gofakeit.Float64Range(-step, step))
		pupil := gofakeit.Float64Range(3.0, 4.0)
		if anomalous {
			pupil = gofakeit.Float64Range(2.0, 7.0)
		}
		samples[i] = map[string]float64{"x": x, "y": y, "pupil": pupil}
	}
	return map[string]any{"gaze_samples": samples}
}

func facialPayload(anomalous bool) any {
	n := 8 + rand.Intn(8)
	expressions := make([]map[string]float64, n)
	for i := range expressions {
		stress := gofakeit.Float64Range(0.05, 0.3)
		focus := gofakeit.Float64Range(0.7, 1.0)
		if anomalous {
			stress = gofakeit.Float64Range(0.6, 0.95)
			focus = gofakeit.Float64Range(0.1, 0.5)
		}
		expressions[i] = map[string]float64{"stress": stress, "focus": focus}
	}
	return map[string]any{"expressions": expressions}
}

func voicePayload(anomalous bool) any {
	n := 20 + rand.Intn(20)
	pitch := make([]float64, n)
	for i := range pitch {
		if anomalous {
			pitch[i] = gofakeit.Float64Range(80, 400)
		} else {
			pitch[i] = gofakeit.Float64Range(110, 150)
		}
	}
	voiceCount := 1
	if anomalous && rand.Float64() < 0.6 {
		voiceCount = 2 + rand.Intn(2)
	}
	return map[string]any{
		"pitch_series":     pitch,
		"words_per_minute": gofakeit.Float64Range(100, 220),
		"voice_count":      voiceCount,
	}
}

func systemPayload(anomalous bool) any {
	n := 6 + rand.Intn(8)
	samples := make([]map[string]float64, n)
	for i := range samples {
		cpu := gofakeit.Float64Range(10, 50)
		mem := gofakeit.Float64Range(30, 60)
		lat := gofakeit.Float64Range(20, 200)
		if anomalous {
			cpu = gofakeit.Float64Range(70, 100)
			mem = gofakeit.Float64Range(70, 95)
			lat = gofakeit.Float64Range(800, 3000)
		}
		samples[i] = map[string]float64{
			"cpu_percent":    cpu,
			"memory_percent": mem,
			"latency_ms":     lat,
		}
	}
	payload := map[string]any{"samples": samples}
	if anomalous && rand.Float64() < 0.4 {
		payload["vm_indicators"] = []string{"hypervisor-present"}
	}
	return payload
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
