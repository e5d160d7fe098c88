package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/im-archive/internal/archive"
	"github.com/suPer8Hu/im-archive/internal/config"
	"github.com/suPer8Hu/im-archive/internal/db"
	"github.com/suPer8Hu/im-archive/internal/store"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := store.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	repo := store.NewRepo(gdb)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// args must match the publisher's declaration
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	//  strict concurrency control
	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var ev archive.ParticipantLeftEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.SessionID == 0 || ev.User == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := closeParticipation(ctx, repo, ev); err != nil {
					log.Printf("worker=%d event %s failed cost=%s err=%v", workerID, ev.EventID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed event=%s err=%v", workerID, ev.EventID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func closeParticipation(ctx context.Context, repo *store.Repo, ev archive.ParticipantLeftEvent) error {
	start := time.Now()
	err := repo.CloseParticipation(ctx,
		ev.SessionID,
		archive.ParseAddress(ev.User),
		time.UnixMilli(ev.JoinedMS),
		time.UnixMilli(ev.LeftMS),
	)
	if cost := time.Since(start); cost > 500*time.Millisecond {
		log.Printf("event_timing event=%s session=%d cost=%s err=%v", ev.EventID, ev.SessionID, cost, err)
	}
	return err
}
