package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"molbhav/config"
	"molbhav/models"
	"molbhav/services/negotiation"
	"molbhav/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitNegotiationWorker runs the async worker in background. It consumes the
// fan-out and finalize tasks that drive every negotiation's lifecycle.
func InitNegotiationWorker(negSvc negotiation.NegotiationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNegotiationFanout, handleFanoutTask(negSvc))
	mux.HandleFunc(tasks.TypeNegotiationFinalize, handleFinalizeTask(negSvc))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[NegotiationWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NegotiationWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NegotiationWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleFanoutTask(negSvc negotiation.NegotiationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.FanoutPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[FanoutHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		log.Printf("[FanoutHandler] 📣 Opening negotiations for request %s", p.RequestID)

		if err := negSvc.HandleFanout(ctx, p.RequestID); err != nil {
			log.Printf("[FanoutHandler] ❌ Fan-out failed for request %s: %v", p.RequestID, err)
			return err
		}
		return nil
	}
}

func handleFinalizeTask(negSvc negotiation.NegotiationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.FinalizePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[FinalizeHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		log.Printf("[FinalizeHandler] ⏰ Settling request %s (deadline=%v)", p.RequestID, p.Deadline)

		if err := negSvc.FinalizeRequest(ctx, p.RequestID, p.Deadline); err != nil {
			log.Printf("[FinalizeHandler] ❌ Finalize failed for request %s: %v", p.RequestID, err)
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[NegotiationWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
