package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/cli"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm/openai"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server"
)

var (
	streamChunks = [][]byte{
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Bench\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"mark\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\" safe\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\" response\"}}]}\n\n"),
	}
	streamDone = []byte("data: [DONE]\n\n")
)

const requestBody = `{"model": "gpt-4o-mini", "prompt": "Hello"}`

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	chunkDelay := flag.Duration("chunk-delay", 50*time.Millisecond, "Delay between upstream chunks")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	asJSON := flag.Bool("json", false, "Print the full vegeta metrics as JSON")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)

	upstream := httptest.NewServer(mockUpstream(*chunkDelay))
	defer upstream.Close()

	app := httptest.NewServer(newApp(upstream.URL))
	defer app.Close()

	url := app.URL + "/v1/chat/stream"

	// Signal channel to stop background tasks (monitor, chaos monkey)
	done := make(chan struct{})
	go monitorResources(done)

	fmt.Printf("Running streaming benchmark: %s duration, %d req/s\n", *duration, *rate)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodPost,
		URL:    url,
		Body:   []byte(requestBody),
		Header: http.Header{"Content-Type": []string{"application/json"}},
	})

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		go startChaosMonkey(url, min(max(*rate/10, 5), 50), done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	if *asJSON {
		fmt.Println(cli.PrettyFormat(&metrics))
		return
	}

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if !seen[msg] && len(seen) < 5 {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}
}

// newApp wires the real router and HTTP stack against the mock upstream.
func newApp(upstreamURL string) http.Handler {
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "production", CORSOrigins: []string{"*"}},
		Router: config.RouterConfig{RequestTimeout: time.Minute, DefaultModel: "gpt-4o-mini"},
	}

	service := gateway.NewService(zap.NewNop(), cfg.Router.RequestTimeout)
	adapter, err := openai.NewAdapter(config.ProviderConfig{
		APIKey:                "mock-key",
		BaseURL:               upstreamURL + "/v1",
		ResponseHeaderTimeout: 10 * time.Second,
	}, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to build adapter: %v", err)
	}
	service.Register(adapter)

	return server.New(cfg, zap.NewNop(), service, attachment.NewEncoder(0)).Handler()
}

func mockUpstream(delay time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)

		for _, chunk := range streamChunks {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
			_, _ = w.Write(chunk)
			flusher.Flush()
		}
		_, _ = w.Write(streamDone)
		flusher.Flush()
	})
	return mux
}

func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for range concurrency {
		go func() {
			defer wg.Done()
			client := &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
				},
			}

			for {
				select {
				case <-done:
					return
				default:
					// Randomly disconnect between 1ms and 200ms
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(requestBody))
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func monitorResources(done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage ---")
	fmt.Printf("%-10s %-10s %-10s %-10s\n", "Time", "Heap(MB)", "Alloc(MB)", "Goroutines")

	var m runtime.MemStats
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			runtime.ReadMemStats(&m)
			fmt.Printf("%-10s %-10.2f %-10.2f %-10d\n",
				time.Now().Format("15:04:05"),
				float64(m.HeapInuse)/1024/1024,
				float64(m.Alloc)/1024/1024,
				runtime.NumGoroutine(),
			)
		}
	}
}
