package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"estatehub/internal/auth"
	"estatehub/internal/config"
	"estatehub/internal/database"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = config.StorePostgres
	}

	switch driver {
	case config.StorePostgres:
		migratePostgres(ctx, logger)
	case config.StoreMongo:
		migrateMongo(ctx, logger)
	default:
		logger.Fatal("unknown STORE_DRIVER", zap.String("driver", driver))
	}
}

func migratePostgres(ctx context.Context, logger *zap.Logger) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "./migrations"
	}

	migrations, err := database.LoadMigrations(os.DirFS(migrationsDir))
	if err != nil {
		logger.Fatal("load migrations", zap.String("dir", migrationsDir), zap.Error(err))
	}

	db, err := database.ConnectPostgres(ctx, databaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations, logger)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations applied", zap.String("dir", migrationsDir), zap.Int("count", len(applied)))
}

func migrateMongo(ctx context.Context, logger *zap.Logger) {
	mongoURL := os.Getenv("MONGODB_URL")
	if mongoURL == "" {
		logger.Fatal("MONGODB_URL is required")
	}
	name := os.Getenv("MONGODB_DATABASE")
	if name == "" {
		name = "estatehub"
	}

	db, err := database.ConnectMongo(ctx, mongoURL, name)
	if err != nil {
		logger.Fatal("mongodb connection failed", zap.Error(err))
	}
	defer db.Client().Disconnect(context.Background())

	if err := auth.NewMongoRepository(db).EnsureIndexes(ctx); err != nil {
		logger.Fatal("index creation failed", zap.Error(err))
	}

	logger.Info("indexes ensured", zap.String("database", name))
}
