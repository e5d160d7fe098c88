package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/im-archive/internal/archive"
	"github.com/suPer8Hu/im-archive/internal/common"
	"github.com/suPer8Hu/im-archive/internal/config"
	"github.com/suPer8Hu/im-archive/internal/db"
	"github.com/suPer8Hu/im-archive/internal/directory"
	"github.com/suPer8Hu/im-archive/internal/httpapi"
	"github.com/suPer8Hu/im-archive/internal/httpapi/handlers"
	"github.com/suPer8Hu/im-archive/internal/i18n"
	"github.com/suPer8Hu/im-archive/internal/presence"
	"github.com/suPer8Hu/im-archive/internal/store"
	"github.com/suPer8Hu/im-archive/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := store.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	repo := store.NewRepo(gdb)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	tracker := presence.NewTracker(rdb)

	// Directory backends (route by DIRECTORY_BACKEND)
	reg := directory.NewRegistry()
	reg.Register("http", func(_ context.Context, baseURL string) (archive.NameResolver, error) {
		return directory.NewHTTPResolver(baseURL), nil
	})
	reg.Register("static", func(_ context.Context, _ string) (archive.NameResolver, error) {
		return directory.NewStaticResolver(nil), nil
	})
	resolver, err := reg.Get(context.Background(), cfg.DirectoryBackend, cfg.DirectoryBaseURL)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}
	names := directory.NewCachedResolver(resolver, rdb, cfg.NameCacheTTL)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit: %v", err)
	}
	defer publisher.Close()

	coord := archive.NewCoordinator(archive.Flags{
		MetadataArchiving: cfg.MetadataArchiving,
		MessageArchiving:  cfg.MessageArchiving,
		RoomArchiving:     cfg.RoomArchiving,
	}, repo, publisher, common.NewULID)

	phrases := i18n.NewCatalog(cfg.Locale)
	transcripts := archive.NewTranscriptBuilder(repo, names, phrases)

	h := handlers.NewHandler(cfg, coord, repo, tracker, transcripts)
	r := httpapi.NewRouter(h)

	log.Printf("api listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
