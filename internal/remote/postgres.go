package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
)

// PostgresStore 用 Postgres 存文档，用 RabbitMQ 广播变更通知。
// 一次 CommitBatch 对应一个事务，因此批量提交是原子的（仅限单个分块）。
type PostgresStore struct {
	cfg    *config.Config
	dbpool *sql.DB
	ch     *amqp.Channel
}

func NewPostgresStore(cfg *config.Config, dbpool *sql.DB, ch *amqp.Channel) *PostgresStore {
	return &PostgresStore{
		cfg:    cfg,
		dbpool: dbpool,
		ch:     ch,
	}
}

// EnsureSchema 建立文档表（开发和 seed 时使用）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, key)
		)
	`

	_, err := s.dbpool.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) LoadCollection(ctx context.Context, collection string) ([]Document, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT key, data FROM documents WHERE collection = $1 ORDER BY key`

	rows, err := s.dbpool.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Key, &doc.Data); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *PostgresStore) CommitBatch(ctx context.Context, collection string, ops []BatchOp, origin string) error {
	if len(ops) == 0 {
		return nil
	}

	txCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := s.dbpool.BeginTx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	upsert := `
		INSERT INTO documents (collection, key, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`
	remove := `DELETE FROM documents WHERE collection = $1 AND key = $2`

	for _, op := range ops {
		if op.Delete {
			if _, err := tx.ExecContext(txCtx, remove, collection, op.Key); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.ExecContext(txCtx, upsert, collection, op.Key, []byte(op.Data)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.publishChange(ctx, collection, origin)
	return nil
}

func (s *PostgresStore) MergeDocument(ctx context.Context, collection string, key string, data json.RawMessage, origin string) error {
	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	// jsonb 的 || 运算符提供字段级的合并写入
	query := `
		INSERT INTO documents (collection, key, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, key)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()
	`

	if _, err := s.dbpool.ExecContext(queryCtx, query, collection, key, []byte(data)); err != nil {
		return err
	}

	s.publishChange(ctx, collection, origin)
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection string, key string, origin string) error {
	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM documents WHERE collection = $1 AND key = $2`

	if _, err := s.dbpool.ExecContext(queryCtx, query, collection, key); err != nil {
		return err
	}

	s.publishChange(ctx, collection, origin)
	return nil
}

// publishChange 把变更通知广播到交换机，路由键为集合名。
// 通知发送失败只记录日志，不影响已经提交的写入。
func (s *PostgresStore) publishChange(ctx context.Context, collection string, origin string) {
	change := Change{Collection: collection, Origin: origin}

	body, err := json.Marshal(change)
	if err != nil {
		slog.Error("无法序列化变更通知", "collection", collection, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := s.ch.PublishWithContext(
		ctx,
		s.cfg.RabbitMQ.Exchange,
		collection,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		slog.Error("无法发送变更通知", "collection", collection, "error", err)
	}
}

// Subscribe 建立一个独占队列绑定到交换机上，持续消费变更通知
func (s *PostgresStore) Subscribe(ctx context.Context, handler func(Change)) (func(), error) {
	queue, err := s.ch.QueueDeclare(
		"",    // 由服务端生成队列名
		false, // 非持久化
		true,  // 自动删除
		true,  // 独占
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	if err := s.ch.QueueBind(queue.Name, "#", s.cfg.RabbitMQ.Exchange, false, nil); err != nil {
		return nil, err
	}

	deliveries, err := s.ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, err
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-consumeCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal(d.Body, &change); err != nil {
					slog.Error("无法解析变更通知", "error", err)
					continue
				}
				handler(change)
			}
		}
	}()

	return cancel, nil
}
