package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/repository"
	"crashscraper/internal/resilience/circuitbreaker"
)

const (
	slotWait    = 5 * time.Second  // an alert waits this long for a free delivery slot
	sendTimeout = 30 * time.Second // per channel, retries included
)

// ChannelHealthStatus is the state of one channel as shown by /health/channels.
type ChannelHealthStatus struct {
	Name               string
	Enabled            bool
	CircuitBreakerOpen bool
}

// Service dispatches accident alerts to every enabled channel.
// It satisfies classify.AccidentNotifier.
type Service struct {
	channels       []Channel
	breakers       map[string]*circuitbreaker.CircuitBreaker
	sources        repository.SourceRepository
	sourceCache    sync.Map // int64 → *entity.Source
	slots          chan struct{}
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewService creates a notification service. sources resolves the publisher
// name shown in alerts and may be nil.
func NewService(channels []Channel, sources repository.SourceRepository, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &Service{
		channels:       channels,
		breakers:       make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		sources:        sources,
		slots:          make(chan struct{}, maxConcurrent),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	enabled := 0
	for _, ch := range channels {
		svc.breakers[ch.Name()] = circuitbreaker.New(circuitbreaker.WebhookConfig(ch.Name()))
		if ch.IsEnabled() {
			enabled++
		}
	}
	alertChannelsEnabled.Set(float64(enabled))

	return svc
}

// NotifyAccident dispatches an alert for article to all enabled channels and
// returns without waiting for delivery.
func (s *Service) NotifyAccident(ctx context.Context, article *entity.Article) error {
	if article == nil {
		return ErrInvalidArticle
	}
	if s.shutdownCtx.Err() != nil {
		return ErrShutdown
	}

	logger := logging.FromContext(ctx)
	source := s.lookupSource(ctx, article.SourceID)

	dispatched := 0
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		dispatched++
		s.wg.Add(1)
		go s.notifyChannel(logger, ch, article, source)
	}

	if dispatched > 0 {
		logger.Info("dispatching accident alert",
			slog.Int64("article_id", article.ID),
			slog.String("url", article.URL),
			slog.String("source", source.Name),
			slog.Int("enabled_channels", dispatched))
	}
	return nil
}

// lookupSource resolves and caches the source row; an unknown source falls
// back to a placeholder name so the alert still goes out.
func (s *Service) lookupSource(ctx context.Context, id int64) *entity.Source {
	if cached, ok := s.sourceCache.Load(id); ok {
		return cached.(*entity.Source)
	}
	if s.sources != nil {
		src, err := s.sources.Get(ctx, id)
		if err == nil && src != nil {
			s.sourceCache.Store(id, src)
			return src
		}
		if err != nil {
			logging.FromContext(ctx).Warn("failed to resolve source for notification",
				slog.Int64("source_id", id),
				slog.Any("error", err))
		}
	}
	return &entity.Source{ID: id, Name: fmt.Sprintf("source #%d", id)}
}

func (s *Service) notifyChannel(logger *slog.Logger, channel Channel, article *entity.Article, source *entity.Source) {
	defer s.wg.Done()
	alertsInFlight.Inc()
	defer alertsInFlight.Dec()

	name := channel.Name()
	logger = logger.With(slog.String("channel", name), slog.Int64("article_id", article.ID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while sending accident alert",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if outcome, ok := s.acquireSlot(); !ok {
		logger.Warn("accident alert dropped", slog.String("reason", outcome))
		recordDropped(name, outcome)
		return
	}
	defer func() { <-s.slots }()

	breaker := s.breakers[name]
	if breaker.IsOpen() {
		logger.Warn("accident alert dropped", slog.String("reason", outcomeCircuitOpen))
		recordDropped(name, outcomeCircuitOpen)
		return
	}

	ctx, cancel := context.WithTimeout(s.shutdownCtx, sendTimeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	start := time.Now()
	err := breaker.Do(func() error { return channel.Send(ctx, article, source) })
	recordSend(name, time.Since(start), err)
	// 成功ログは notifier 側で出す
	if err != nil {
		logger.Warn("accident alert not delivered",
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
	}
}

// acquireSlot takes a delivery slot. When none frees up within slotWait, or
// the service shuts down first, it returns the drop outcome and false.
func (s *Service) acquireSlot() (string, bool) {
	timer := time.NewTimer(slotWait)
	defer timer.Stop()

	select {
	case s.slots <- struct{}{}:
		return "", true
	case <-timer.C:
		return outcomePoolFull, false
	case <-s.shutdownCtx.Done():
		return outcomeShutdown, false
	}
}

// GetChannelHealth reports each channel's enabled flag and breaker state.
func (s *Service) GetChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: s.breakers[ch.Name()].IsOpen(),
		})
	}
	return statuses
}

// Shutdown stops accepting alerts and waits for in-flight deliveries until
// ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	slog.Info("notification service shutting down")
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("notification service stopped")
		return nil
	case <-ctx.Done():
		slog.Warn("notification service stopped with alerts in flight")
		return ctx.Err()
	}
}
