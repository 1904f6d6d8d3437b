package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/config"
	collyfetcher "github.com/JakeFAU/keywatch/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/keywatch/internal/fetcher/headless"
	"github.com/JakeFAU/keywatch/internal/headless/detector"
	"github.com/JakeFAU/keywatch/internal/keywords"
	"github.com/JakeFAU/keywatch/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/keywatch/internal/publisher/pubsub"
	"github.com/JakeFAU/keywatch/internal/storage/postgres"
)

// components are the collaborators shared by every command.
type components struct {
	fetcher  *collyfetcher.Fetcher
	keywords *keywords.Provider
	renderer *headlessfetcher.Renderer
}

func buildComponents(cfg config.Config, logger *zap.Logger) components {
	opts := []collyfetcher.Option{collyfetcher.WithLogger(logger.Named("fetcher"))}

	var renderer *headlessfetcher.Renderer
	if cfg.Headless.Enabled {
		r, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: config.Seconds(cfg.Headless.NavTimeoutSec),
		})
		if err != nil {
			logger.Warn("headless renderer init failed; static fetches only", zap.Error(err))
		} else {
			renderer = r
			opts = append(opts, collyfetcher.WithRenderer(r, detector.NewHeuristic(cfg.Headless.PromotionThresh)))
		}
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		Headers:   cfg.RequestHeaders(),
	}, opts...)

	provider := keywords.NewProvider(keywords.Config{
		RankingURL:           cfg.Keywords.RankingURL,
		RankingClassFragment: cfg.Keywords.RankingClassFragment,
		RankingTokens:        cfg.Keywords.RankingTokens,
		TrendURL:             cfg.Keywords.TrendURL,
		Max:                  cfg.Keywords.Max,
		Fallback:             cfg.Keywords.Fallback,
	}, fetcher, logger.Named("keywords"))

	return components{fetcher: fetcher, keywords: provider, renderer: renderer}
}

func (c components) close(logger *zap.Logger) {
	if c.renderer == nil {
		return
	}
	if err := c.renderer.Close(); err != nil {
		logger.Warn("renderer close failed", zap.Error(err))
	}
}

// buildPublisher dials Pub/Sub when a topic is configured. It returns nil
// otherwise and hits are not published.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (sinks.Publisher, error) {
	if cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	pub, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	logger.Info("publishing hits to pubsub",
		zap.String("project_id", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.TopicName),
	)
	return pub, nil
}

// buildHitStore opens the Postgres hit history when a DSN is configured and
// returns nil otherwise.
func buildHitStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.HitStore, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	hs, err := postgres.NewHitStore(ctx, postgres.HitStoreConfig{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: config.Seconds(cfg.Database.MaxConnLifetimeSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("init hit store: %w", err)
	}
	if err := hs.EnsureSchema(ctx); err != nil {
		hs.Close()
		return nil, err
	}
	logger.Info("recording hit history in postgres")
	return hs, nil
}
