package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptGenerator issues time based receipt numbers of the form
// REC-YYYYMMDD-NNNNNN backed by a per-day Redis counter
type ReceiptGenerator struct {
	client *Client
	now    func() time.Time
	logger *zap.Logger
}

// NewReceiptGenerator creates a receipt generator. client may be nil, in
// which case every number comes from the fallback format.
func NewReceiptGenerator(client *Client) *ReceiptGenerator {
	return &ReceiptGenerator{
		client: client,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// NextReceiptNumber returns a new receipt number. When Redis is unavailable
// it falls back to REC-<unix millis>-<random suffix>.
func (g *ReceiptGenerator) NextReceiptNumber(ctx context.Context) string {
	ts := g.now().UTC()

	if g.client != nil {
		day := ts.Format("20060102")
		seq, err := g.client.NextSequence(ctx, "receipt:seq:"+day, 48*time.Hour)
		if err == nil {
			return fmt.Sprintf("REC-%s-%06d", day, seq)
		}
		g.logger.Warn("Receipt sequence unavailable, using fallback", zap.Error(err))
	}

	return FallbackReceiptNumber(ts)
}

// FallbackReceiptNumber builds a receipt number without shared state
func FallbackReceiptNumber(ts time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("REC-%d-%s", ts.UnixMilli(), suffix)
}
