package service

import (
	"context"
	"sync"
	"time"

	"Vid_Community/internal/config"
	"Vid_Community/internal/model"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/mysql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var outboxEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the relayer, by event type and result",
	},
	[]string{"event_type", "result"},
)

var outboxBacklog = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "outbox_backlog",
		Help: "Outbox rows not yet delivered, by status",
	},
	[]string{"status"},
)

type Sender func(ctx context.Context, ob *model.Outbox) error

// OutboxRelayer 轮询 outbox 表并投递事件
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, cfg *config.OutboxConfig, sender Sender, log zerolog.Logger) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		maxRetry:  cfg.MaxRetry,
		sender:    sender,
		log:       log.With().Str("component", "outbox_relayer").Logger(),
	}
}

// Start 后台运行，Stop 时等待当前批次结束
func (r *OutboxRelayer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

func (r *OutboxRelayer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Info().Dur("interval", r.interval).Int("batch_size", r.batchSize).Msg("outbox relayer started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relayer stopped")
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.log.Warn().Err(err).Uint64("outbox_id", ob.ID).Int("retry", ob.Retry+1).Msg("outbox send failed")
			outboxEvents.WithLabelValues(ob.EventType, "retry").Inc()
			if err = r.repo.MarkRetry(ctx, &ob, r.maxRetry); err != nil {
				r.log.Error().Err(err).Uint64("outbox_id", ob.ID).Msg("outbox retry update failed")
			}
			continue
		}
		if err = r.repo.MarkSent(ctx, ob.ID); err != nil {
			r.log.Error().Err(err).Uint64("outbox_id", ob.ID).Msg("outbox mark sent failed")
			continue
		}
		outboxEvents.WithLabelValues(ob.EventType, "sent").Inc()
		sent++
	}
	r.reportBacklog(ctx)
	return sent
}

// reportBacklog 刷新积压 gauge；failed 行不再重试，需要人工处理
func (r *OutboxRelayer) reportBacklog(ctx context.Context) {
	for status, label := range map[int8]string{model.OutboxPending: "pending", model.OutboxFailed: "failed"} {
		n, err := r.repo.CountByStatus(ctx, status)
		if err != nil {
			r.log.Warn().Err(err).Str("status", label).Msg("outbox backlog count failed")
			continue
		}
		outboxBacklog.WithLabelValues(label).Set(float64(n))
	}
}

// KafkaSender 以聚合 id 作为消息 key
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.AggregateID), []byte(ob.Payload), map[string]string{
			"event_type": ob.EventType,
		})
	}
}

// LogSender 未配置 Kafka 时使用，只写日志
func LogSender(log zerolog.Logger) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		log.Info().
			Str("event_type", ob.EventType).
			Uint64("aggregate_id", ob.AggregateID).
			RawJSON("payload", []byte(ob.Payload)).
			Msg("outbox event")
		return nil
	}
}
