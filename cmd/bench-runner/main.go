package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// benchResult agrega o resultado da rodada de carga
type benchResult struct {
	Timestamp          string  `json:"timestamp"`
	BaseURL            string  `json:"base_url"`
	ProductID          string  `json:"product_id"`
	Requests           int     `json:"requests"`
	Concurrency        int     `json:"concurrency"`
	QuantityPerOrder   int     `json:"quantity_per_order"`
	SuccessfulRequests int     `json:"successful_requests"`
	InsufficientStock  int     `json:"insufficient_stock"`
	ErrorRequests      int     `json:"error_requests"`
	ReservedTotal      int     `json:"reserved_total"`
	StartingStock      int     `json:"starting_stock,omitempty"`
	Oversold           bool    `json:"oversold"`
	DurationSeconds    float64 `json:"duration_seconds"`
	AvgLatencyMs       float64 `json:"avg_latency_ms"`
	MinLatencyMs       float64 `json:"min_latency_ms"`
	P50LatencyMs       float64 `json:"p50_latency_ms"`
	P95LatencyMs       float64 `json:"p95_latency_ms"`
	MaxLatencyMs       float64 `json:"max_latency_ms"`
	ThroughputRPS      float64 `json:"throughput_rps"`
	FirstError         string  `json:"first_error,omitempty"`
}

type createOrderPayload struct {
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
	Items           []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL do order-service")
	productID := flag.String("product", "", "product id alvo das reservas")
	requests := flag.Int("n", 100, "total de requisições")
	concurrency := flag.Int("c", 10, "requisições concorrentes")
	quantity := flag.Int("qty", 1, "quantidade por pedido")
	stock := flag.Int("stock", 0, "estoque inicial do produto (habilita a checagem de oversell)")
	flag.Parse()

	if *productID == "" {
		log.Fatal("flag -product é obrigatória")
	}

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("X-User-ID", "bench-"+uuid.New().String()[:8])

	payload := createOrderPayload{ShippingAddress: "bench street 1", Notes: "bench"}
	payload.Items = append(payload.Items, struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}{ProductID: *productID, Quantity: *quantity})

	var (
		mu           sync.Mutex
		latencies    []float64
		success      int
		insufficient int
		failures     int
		firstError   string
	)

	log.Printf("🚀 Firing %d create-order requests (%d concurrent) at %s", *requests, *concurrency, *baseURL)

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			reqStart := time.Now()
			resp, err := client.R().SetBody(payload).Post("/api/orders")
			elapsed := float64(time.Since(reqStart).Microseconds()) / 1000.0

			mu.Lock()
			defer mu.Unlock()
			latencies = append(latencies, elapsed)

			switch {
			case err != nil:
				failures++
				if firstError == "" {
					firstError = err.Error()
				}
			case resp.StatusCode() == http.StatusCreated:
				success++
			case resp.StatusCode() == http.StatusBadRequest:
				insufficient++
			default:
				failures++
				if firstError == "" {
					firstError = fmt.Sprintf("status %d: %s", resp.StatusCode(), resp.String())
				}
			}
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	sort.Float64s(latencies)
	reserved := success * *quantity

	result := benchResult{
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		BaseURL:            *baseURL,
		ProductID:          *productID,
		Requests:           *requests,
		Concurrency:        *concurrency,
		QuantityPerOrder:   *quantity,
		SuccessfulRequests: success,
		InsufficientStock:  insufficient,
		ErrorRequests:      failures,
		ReservedTotal:      reserved,
		StartingStock:      *stock,
		Oversold:           *stock > 0 && reserved > *stock,
		DurationSeconds:    duration.Seconds(),
		AvgLatencyMs:       avg(latencies),
		MinLatencyMs:       percentile(latencies, 0),
		P50LatencyMs:       percentile(latencies, 50),
		P95LatencyMs:       percentile(latencies, 95),
		MaxLatencyMs:       percentile(latencies, 100),
		ThroughputRPS:      float64(*requests) / duration.Seconds(),
		FirstError:         firstError,
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if result.Oversold {
		log.Printf("❌ OVERSOLD: reserved %d units with starting stock %d", reserved, *stock)
		os.Exit(1)
	}
	if *stock > 0 {
		log.Printf("✅ No overselling: reserved %d of %d units", reserved, *stock)
	}
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := len(sorted) * p / 100
	return sorted[idx]
}
