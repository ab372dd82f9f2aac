package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/banking/muling-detector/internal/config"
	"github.com/banking/muling-detector/internal/ledger"
	"github.com/banking/muling-detector/internal/service"
)

// MulingConsumer consumes a stream of individual transaction events
// and buffers them into batches handed to the analysis service.
type MulingConsumer struct {
	consumerGroup sarama.ConsumerGroup
	service       *service.MulingService
	topics        []string
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger
}

func NewMulingConsumer(cfg config.KafkaConfig, svc *service.MulingService, logger *zap.Logger) (*MulingConsumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &MulingConsumer{
		consumerGroup: consumerGroup,
		service:       svc,
		topics:        []string{cfg.TransactionTopic},
		batchSize:     cfg.TransactionBatchSize,
		flushInterval: cfg.FlushInterval,
		logger:        logger,
	}, nil
}

func (c *MulingConsumer) Start(ctx context.Context) error {
	handler := &mulingConsumerHandler{
		service:       c.service,
		logger:        c.logger,
		batchSize:     c.batchSize,
		flushInterval: c.flushInterval,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("error from consumer", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *MulingConsumer) Close() error {
	return c.consumerGroup.Close()
}

type mulingConsumerHandler struct {
	service       *service.MulingService
	logger        *zap.Logger
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []ledger.Transaction
}

func (h *mulingConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *mulingConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *mulingConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.processMessage(session.Context(), message)
			session.MarkMessage(message, "")
		case <-ticker.C:
			h.flush(session.Context())
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *mulingConsumerHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	tx, err := mapToTransaction(msg.Value)
	if err != nil {
		h.logger.Warn("skipping malformed transaction event", zap.String("topic", msg.Topic), zap.Error(err))
		return
	}

	h.mu.Lock()
	h.pending = append(h.pending, tx)
	ready := len(h.pending) >= h.batchSize
	h.mu.Unlock()

	if ready {
		h.flush(ctx)
	}
}

func (h *mulingConsumerHandler) flush(ctx context.Context) {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.pending
	h.pending = nil
	h.mu.Unlock()

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if _, err := h.service.AnalyzeAndStore(ctx, batch); err != nil {
			h.logger.Error("failed to analyze transaction batch",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
				zap.Int("retry", i+1),
			)
			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second)
				continue
			}
			h.logger.Error("dropping batch after retries", zap.Int("batch_size", len(batch)))
		}
		break
	}
}

// transactionEvent mirrors the wire shape used by the Kafka producer
// side of this pipeline (tx_id/sender/receiver/amount/timestamp_ms).
type transactionEvent struct {
	TxID     string `json:"tx_id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
	Ts       int64  `json:"timestamp_ms"`
}

func mapToTransaction(value []byte) (ledger.Transaction, error) {
	var raw transactionEvent
	if err := json.Unmarshal(value, &raw); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if raw.TxID == "" || raw.Sender == "" || raw.Receiver == "" {
		return ledger.Transaction{}, fmt.Errorf("event missing required fields")
	}

	amount, err := ledger.ParseMoney(raw.Amount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount %q: %w", raw.Amount, err)
	}
	if amount.IsNegative() {
		return ledger.Transaction{}, fmt.Errorf("amount %q must not be negative", raw.Amount)
	}

	return ledger.Transaction{
		TxID:     raw.TxID,
		Sender:   ledger.AcctID(raw.Sender),
		Receiver: ledger.AcctID(raw.Receiver),
		Amount:   amount,
		Ts:       ledger.EpochMs(raw.Ts),
	}, nil
}
