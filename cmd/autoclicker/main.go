// Package main - autoclicker
// Load generator: N websocket clients click at an interval and greedily buy
// the cheapest affordable item, then report throughput and the economy reached.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/network"
)

// Config for the autoclicker
type Config struct {
	ServerURL     string
	NumClients    int
	ClickInterval time.Duration
	BuyEvery      int
	TestDuration  time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	ClicksSent       int64
	PurchasesSent    int64
	PurchasesOK      int64
	MessagesReceived int64
	Errors           int64

	mu        sync.Mutex
	lastState *engine.Snapshot
}

func (s *Stats) setState(snap *engine.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastState == nil || snap.Version > s.lastState.Version {
		s.lastState = snap
	}
}

func (s *Stats) state() *engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 10, "Number of concurrent clients")
	interval := flag.Duration("interval", 50*time.Millisecond, "Click interval per client")
	buyEvery := flag.Int("buy-every", 20, "Attempt a purchase every N clicks")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		ServerURL:     *serverURL,
		NumClients:    *numClients,
		ClickInterval: *interval,
		BuyEvery:      *buyEvery,
		TestDuration:  *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("AUTOCLICKER - Load Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server:    %s\n", config.ServerURL)
	fmt.Printf("Clients:   %d\n", config.NumClients)
	fmt.Printf("Interval:  %v\n", config.ClickInterval)
	fmt.Printf("Buy every: %d clicks\n", config.BuyEvery)
	fmt.Printf("Duration:  %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	start := time.Now()
	stats := runLoad(ctx, config)
	printResults(stats, config, time.Since(start))
}

func runLoad(ctx context.Context, config Config) *Stats {
	stats := &Stats{}
	var wg sync.WaitGroup

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				balance := 0.0
				if s := stats.state(); s != nil {
					balance = s.State.Balance
				}
				fmt.Printf("Progress: clicks=%s purchases=%d balance=%s\n",
					humanize.Comma(atomic.LoadInt64(&stats.ClicksSent)),
					atomic.LoadInt64(&stats.PurchasesOK),
					humanize.Commaf(balance))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			handleServerMessage(data, stats)
		}
	}()

	ticker := time.NewTicker(config.ClickInterval)
	defer ticker.Stop()

	clicks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(network.PlayerAction{Type: network.ActionClick}); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.ClicksSent, 1)
			clicks++

			if config.BuyEvery <= 0 || clicks%config.BuyEvery != 0 {
				continue
			}
			snap := stats.state()
			if snap == nil {
				continue
			}
			id, ok := cheapestAffordable(*snap)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(network.PlayerAction{Type: network.ActionPurchase, ItemID: id}); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.PurchasesSent, 1)
		}
	}
}

func handleServerMessage(data []byte, stats *Stats) {
	var msg network.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	switch msg.Type {
	case network.MessageState:
		if msg.State != nil {
			stats.setState(msg.State)
		}
	case network.MessagePurchaseResult:
		if msg.Result != nil && msg.Result.Success {
			atomic.AddInt64(&stats.PurchasesOK, 1)
		}
	case network.MessageError:
		atomic.AddInt64(&stats.Errors, 1)
	}
}

// cheapestAffordable picks the lowest-cost item the snapshot marks affordable.
func cheapestAffordable(snap engine.Snapshot) (string, bool) {
	best := -1
	for i, it := range snap.Items {
		if !it.Affordable {
			continue
		}
		if best < 0 || it.Cost < snap.Items[best].Cost {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return snap.Items[best].ID, true
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	clicks := atomic.LoadInt64(&stats.ClicksSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Clicks Sent:       %s\n", humanize.Comma(clicks))
	fmt.Printf("Purchases Sent:    %d (%d succeeded)\n", atomic.LoadInt64(&stats.PurchasesSent), atomic.LoadInt64(&stats.PurchasesOK))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Throughput:        %.2f clicks/sec\n", float64(clicks)/elapsed.Seconds())

	if s := stats.state(); s != nil {
		fmt.Printf("\nEconomy reached:\n")
		fmt.Printf("  Balance:      %s\n", humanize.Commaf(s.State.Balance))
		fmt.Printf("  Per click:    %s\n", humanize.Commaf(s.State.PerClickYield))
		fmt.Printf("  Per second:   %s\n", humanize.Commaf(s.State.PerIntervalYield))
	}
	fmt.Println("=========================================")
}
