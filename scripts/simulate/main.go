// Command simulate publishes demo shop visits to the Redis push channel so the
// dashboard can be exercised without the real event emitter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/salespulse/internal/platform/cache"
	"github.com/odyssey-erp/salespulse/internal/push"
)

type product struct {
	name  string
	price decimal.Decimal
}

var catalogue = []product{
	{"Basmati Rice 5kg", decimal.RequireFromString("649.00")},
	{"Sunflower Oil 1L", decimal.RequireFromString("155.00")},
	{"Toor Dal 1kg", decimal.RequireFromString("172.50")},
	{"Green Tea 100g", decimal.RequireFromString("240.00")},
	{"Bath Soap 4-pack", decimal.RequireFromString("199.00")},
	{"Shampoo 340ml", decimal.RequireFromString("285.00")},
	{"Instant Noodles 6-pack", decimal.RequireFromString("84.00")},
	{"Detergent 2kg", decimal.RequireFromString("410.00")},
}

type saleEvent struct {
	Type       string          `json:"type"`
	Message    string          `json:"message"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type stockAlert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func main() {
	addr := getenv("PUSH_REDIS_ADDR", "127.0.0.1:6379")
	channel := getenv("PUSH_REDIS_CHANNEL", push.DefaultRedisChannel)
	visits := getenvInt("SIMULATE_VISITS", 20)
	wait := getenvDuration("SIMULATE_INTERVAL", 3*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.New(ctx, addr)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	fmt.Printf("→ Publishing %d visits to %s on %s\n", visits, channel, addr)
	for i := 0; i < visits; i++ {
		payload, summary, err := nextPayload(i, time.Now())
		if err != nil {
			log.Fatalf("encode event: %v", err)
		}
		if err := rdb.Publish(ctx, channel, payload).Err(); err != nil {
			log.Fatalf("publish: %v", err)
		}
		fmt.Println("  ", summary)

		select {
		case <-ctx.Done():
			fmt.Println("✗ Interrupted")
			return
		case <-time.After(jitter(wait)):
		}
	}
	fmt.Println("✓ Simulation complete at", time.Now().Format(time.RFC3339))
}

// nextPayload alternates mostly sales with the occasional stock alert, which the
// dashboard is expected to ignore.
func nextPayload(i int, now time.Time) ([]byte, string, error) {
	if i > 0 && i%7 == 0 {
		p := catalogue[rand.IntN(len(catalogue))]
		alert := stockAlert{Type: "STOCK_ALERT", Message: "Low stock: " + p.name}
		raw, err := json.Marshal(alert)
		return raw, alert.Message, err
	}
	ev := basket(now)
	raw, err := json.Marshal(ev)
	return raw, ev.Message, err
}

func basket(now time.Time) saleEvent {
	size := 1
	switch r := rand.IntN(10); {
	case r >= 9:
		size = 3
	case r >= 7:
		size = 2
	}

	total := decimal.Zero
	items := make([]string, 0, size)
	for _, idx := range rand.Perm(len(catalogue))[:size] {
		p := catalogue[idx]
		units := int64(1)
		if rand.IntN(10) == 0 {
			units = 2
		}
		total = total.Add(p.price.Mul(decimal.NewFromInt(units)))
		items = append(items, fmt.Sprintf("%dx %s", units, p.name))
	}
	total = total.Round(2)
	return saleEvent{
		Type:       "SALE",
		Message:    fmt.Sprintf("[%s] Customer bought: %s (Total: ₹%s)", now.Format("15:04:05"), strings.Join(items, ", "), total.StringFixed(2)),
		TotalPrice: total,
	}
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + rand.N(d)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
