package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovehq/grove/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool    *pgxpool.Pool
	users   *UserRepo
	nodes   *NodeRepo
	cards   *CardRepo
	battles *BattleRepo
	audit   *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:    pool,
		users:   NewUserRepo(pool),
		nodes:   NewNodeRepo(pool),
		cards:   NewCardRepo(pool),
		battles: NewBattleRepo(pool),
		audit:   NewAuditRepo(pool),
	}, nil
}

// EnsureSchema applies the embedded schema. Safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.EnsureSchema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Users() domain.UserRepository     { return s.users }
func (s *Store) Nodes() domain.NodeRepository     { return s.nodes }
func (s *Store) Cards() domain.CardRepository     { return s.cards }
func (s *Store) Battles() domain.BattleRepository { return s.battles }
func (s *Store) Audit() domain.AuditRepository    { return s.audit }
