package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// StoreOptions selects and locates the backing database
type StoreOptions struct {
	Driver      string
	DatabaseURL string
	MongoURI    string
	MongoDB     string
}

// Stores holds the report and user stores of one driver
type Stores struct {
	Reports ReportStore
	Users   UserStore

	pool  *pgxpool.Pool
	mongo *mongo.Client
	db    *mongo.Database
}

// OpenStores connects to the configured database and builds its stores
func OpenStores(ctx context.Context, opts StoreOptions) (*Stores, error) {
	switch opts.Driver {
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		log.Println("Postgres connection established")
		return &Stores{
			Reports: NewReportRepository(pool),
			Users:   NewUserRepository(pool),
			pool:    pool,
		}, nil

	case DriverMongo:
		client, db, err := ConnectMongo(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Reports: NewMongoReportRepository(db),
			Users:   NewMongoUserRepository(db),
			mongo:   client,
			db:      db,
		}, nil

	case DriverMemory:
		log.Println("Warning: using in-memory stores, data is lost on restart")
		return &Stores{
			Reports: NewMemoryReportStore(),
			Users:   NewMemoryUserStore(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// EnsureSchema creates the tables or indexes the stores rely on
func (s *Stores) EnsureSchema(ctx context.Context) error {
	switch {
	case s.pool != nil:
		return EnsurePostgresSchema(ctx, s.pool)
	case s.db != nil:
		return EnsureMongoIndexes(ctx, s.db)
	default:
		return nil
	}
}

// Close releases the database connection
func (s *Stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(context.Background()); err != nil {
			log.Printf("mongo: disconnect: %v", err)
		}
	}
}
