package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/smartboard-backend/internal/data/db"
	"github.com/yungbote/smartboard-backend/internal/platform/gcp"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/platform/openai"
	"github.com/yungbote/smartboard-backend/internal/realtime"
	"github.com/yungbote/smartboard-backend/internal/realtime/bus"
)

type Clients struct {
	DB           *db.Service
	Redis        goredis.UniversalClient
	SSEBus       bus.Bus
	OpenaiClient openai.Client
	GcpBucket    gcp.BucketService
	GcpDocument  gcp.Document
	HTTPClient   *http.Client
}

// wireClients opens every external connection. Redis, the upload bucket and
// Document AI are optional and stay nil when unconfigured.
func wireClients(log *logger.Logger, cfg Config, hub *realtime.SSEHub) (clients Clients, err error) {
	log.Info("Wiring clients...")
	defer func() {
		if err != nil {
			clients.Close()
		}
	}()

	// Database
	clients.DB, err = db.Open(log, cfg.dbConfig())
	if err != nil {
		return clients, fmt.Errorf("init database: %w", err)
	}
	if err = clients.DB.AutoMigrateAll(); err != nil {
		return clients, fmt.Errorf("automigrate: %w", err)
	}

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		clients.Redis = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		clients.SSEBus, err = bus.NewRedisBus(log, clients.Redis, cfg.Redis.Channel)
		if err != nil {
			return clients, fmt.Errorf("init redis SSE bus: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set; realtime events stay in-process")
		clients.SSEBus = bus.NewLocalBus(hub)
	}

	// Openai
	clients.OpenaiClient, err = openai.NewClientWithConfig(log, cfg.openaiConfig())
	if err != nil {
		return clients, fmt.Errorf("init openai client: %w", err)
	}

	// Gcp
	if strings.TrimSpace(cfg.GCP.UploadBucket) != "" {
		clients.GcpBucket, err = gcp.NewBucketService(log, cfg.GCP.UploadBucket, cfg.GCP.CDNDomain)
		if err != nil {
			return clients, fmt.Errorf("init bucket client: %w", err)
		}
	}
	if docCfg := cfg.documentConfig(); docCfg.Enabled() {
		clients.GcpDocument, err = gcp.NewDocument(log, docCfg)
		if err != nil {
			return clients, fmt.Errorf("init document client: %w", err)
		}
	}

	clients.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	return clients, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.GcpDocument != nil {
		_ = c.GcpDocument.Close()
	}
	if c.GcpBucket != nil {
		_ = c.GcpBucket.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
