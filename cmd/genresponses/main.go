package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/service"

	"github.com/google/uuid"
)

var statuses = []domain.Status{
	domain.StatusOnline,
	domain.StatusOffline,
	domain.StatusAway,
	domain.StatusBusy,
}

// Генератор фейковой истории ответов для пользователя — чтобы было
// на чём смотреть предсказания на dev-стенде.
func main() {
	userID := flag.String("user-id", "", "user UUID to generate data for")
	count := flag.Int("count", 10, "number of response events")
	flag.Parse()

	if *userID == "" {
		log.Fatal("missing -user-id")
	}
	if _, err := uuid.Parse(*userID); err != nil {
		log.Fatalf("invalid -user-id: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	responseSvc := service.NewResponseService(postgres.NewResponseRepository(db.Pool))

	for i := 0; i < *count; i++ {
		// сообщение пришло в течение последних 30 дней
		receivedAt := time.Now().UTC().Add(-time.Duration(rand.Intn(30*24*60)+1) * time.Minute)
		// ответ — от минуты до двух часов
		delay := time.Duration(rand.Intn(7200-60)+60) * time.Second
		status := statuses[rand.Intn(len(statuses))]

		if _, err := responseSvc.Record(ctx, *userID, uuid.New().String(), receivedAt, receivedAt.Add(delay), status); err != nil {
			log.Fatalf("record response: %v", err)
		}
	}

	log.Printf("generated %d response history records for user %s", *count, *userID)
}
