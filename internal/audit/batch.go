package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxBatch is a thin wrapper around pgx.Batch so the flush loop in writer.go
// stays readable; it is not meant to be reused outside this package.
type pgxBatch struct {
	b pgx.Batch
}

func (pb *pgxBatch) queue(sql string, args ...any) {
	pb.b.Queue(sql, args...)
}

func (pb *pgxBatch) send(ctx context.Context, conn *pgxpool.Conn) error {
	br := conn.SendBatch(ctx, &pb.b)
	defer br.Close()

	for i := 0; i < pb.b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
