package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/keyquest/internal/storage"
)

// Table is a Redis-backed implementation of the remote table.
// Each row is a HASH; a LIST keeps insertion order for scans.
type Table struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis table
func New(cfg Config) (*Table, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Table{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis table with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Table {
	return &Table{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (t *Table) Close() error {
	return t.client.Close()
}

// Ensure Table implements the interface
var _ storage.Table = (*Table)(nil)

func (t *Table) Scan(ctx context.Context) ([]storage.Row, error) {
	locs, err := t.client.LRange(ctx, rowsIndexKey(t.cfg.Table), 0, -1).Result()
	if err != nil {
		return nil, classify(err)
	}
	if len(locs) == 0 {
		return []storage.Row{}, nil
	}

	pipe := t.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(locs))
	for i, loc := range locs {
		cmds[i] = pipe.HGetAll(ctx, rowKey(t.cfg.Table, storage.Locator(loc)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, classify(err)
	}

	rows := make([]storage.Row, 0, len(locs))
	for i, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			continue
		}
		rows = append(rows, storage.Row{Locator: storage.Locator(locs[i]), Values: toColumns(values)})
	}
	return rows, nil
}

func (t *Table) Get(ctx context.Context, loc storage.Locator) (storage.Row, error) {
	values, err := t.client.HGetAll(ctx, rowKey(t.cfg.Table, loc)).Result()
	if err != nil {
		return storage.Row{}, classify(err)
	}
	if len(values) == 0 {
		return storage.Row{}, storage.ErrRowNotFound
	}
	return storage.Row{Locator: loc, Values: toColumns(values)}, nil
}

func (t *Table) Append(ctx context.Context, values map[storage.Column]string) (storage.Locator, error) {
	seq, err := t.client.Incr(ctx, sequenceKey(t.cfg.Table)).Result()
	if err != nil {
		return "", classify(err)
	}
	loc := storage.Locator(strconv.FormatInt(seq, 10))

	// Write the row and index it atomically
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, rowKey(t.cfg.Table, loc), toFields(values))
	pipe.RPush(ctx, rowsIndexKey(t.cfg.Table), string(loc))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", classify(err)
	}
	return loc, nil
}

func (t *Table) UpdateCells(ctx context.Context, loc storage.Locator, values map[storage.Column]string) error {
	key := rowKey(t.cfg.Table, loc)
	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		return classify(err)
	}
	if exists == 0 {
		return storage.ErrRowNotFound
	}
	if err := t.client.HSet(ctx, key, toFields(values)).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func toFields(values map[storage.Column]string) map[string]any {
	fields := make(map[string]any, len(values))
	for col, v := range values {
		fields[string(col)] = v
	}
	return fields
}

func toColumns(values map[string]string) map[storage.Column]string {
	cols := make(map[storage.Column]string, len(values))
	for k, v := range values {
		cols[storage.Column(k)] = v
	}
	return cols
}

// classify marks connection-level failures as transient so they are retried
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", storage.ErrTransient, err)
}
