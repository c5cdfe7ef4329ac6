package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	mongoConnectAttempts = 3
	mongoRetryInterval   = 2 * time.Second
)

var ErrMongoUnavailable = errors.New("failed to connect to mongodb")

// ConnectMongo dials url and pings it, retrying a few times while the server
// comes up. The returned database belongs to a client the caller must
// disconnect.
func ConnectMongo(ctx context.Context, url, database string) (*mongo.Database, error) {
	var lastErr error
	for attempt := range mongoConnectAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(mongoRetryInterval):
			}
		}

		client, err := mongo.Connect(
			options.Client().
				ApplyURI(url).
				SetConnectTimeout(10 * time.Second).
				SetMaxPoolSize(50).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err != nil {
			lastErr = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err == nil {
			return client.Database(database), nil
		}
		lastErr = err
		_ = client.Disconnect(context.Background())
	}
	return nil, fmt.Errorf("%w: %w", ErrMongoUnavailable, lastErr)
}
