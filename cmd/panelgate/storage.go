package main

import (
	"context"
	"log/slog"
	"time"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// attachStorage points b at Redis when configured, else Mongo, else leaves
// the in-process default. The returned func releases the connection. The
// Redis client, when one was opened, is returned for the login throttle.
func attachStorage(
	ctx context.Context,
	c serverConfig,
	cfg panelGate.Config,
	b *panelGate.Builder,
	logger *slog.Logger,
) (func(), redis.UniversalClient, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch {
	case c.RedisAddr != "":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.RedisAddr},
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		rtt, err := session.NewRedisStorage(client, cfg.Session.RedisPrefix, cfg.Session.TTL).Ping(connectCtx)
		if err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "error connecting to redis")
		}
		logger.Info("session storage", "backend", "redis", "addr", c.RedisAddr, "rtt", rtt)
		b.WithRedis(client)
		return func() { _ = client.Close() }, client, nil

	case c.MongoURI != "":
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(c.MongoURI))
		if err != nil {
			return nil, nil, errors.Wrap(err, "error connecting to mongo")
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, errors.Wrap(err, "error pinging mongo")
		}
		logger.Info("session storage", "backend", "mongo", "database", c.MongoDatabase)
		b.WithStorage(session.NewMongoStorage(client.Database(c.MongoDatabase), cfg.Session.MongoCollection))
		return func() { _ = client.Disconnect(context.Background()) }, nil, nil

	default:
		logger.Warn("session storage", "backend", "memory")
		return func() {}, nil, nil
	}
}
