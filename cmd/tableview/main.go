package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/weedbox/pokertableview"
	"github.com/weedbox/pokertableview/ranking"
	"github.com/weedbox/pokertableview/transport"
)

type Config struct {
	TableID   string          `mapstructure:"table_id"`
	PlayerID  string          `mapstructure:"player_id"`
	Transport TransportConfig `mapstructure:"transport"`
	Table     TableConfig     `mapstructure:"table"`
}

type TransportConfig struct {
	Kind          string        `mapstructure:"kind"`
	URL           string        `mapstructure:"url"`
	Token         string        `mapstructure:"token"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type TableConfig struct {
	MaxSeatCount   int           `mapstructure:"max_seat_count"`
	IntroDelay     time.Duration `mapstructure:"intro_delay"`
	RevealInterval time.Duration `mapstructure:"reveal_interval"`
	WinnerDisplay  time.Duration `mapstructure:"winner_display"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	DealInterval   time.Duration `mapstructure:"deal_interval"`
}

func loadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("player_id", uuid.NewString())
	viper.SetDefault("transport.kind", "ws")
	viper.SetDefault("transport.url", "ws://localhost:8080/ws")
	viper.SetDefault("transport.max_reconnects", -1)
	viper.SetDefault("transport.reconnect_wait", 2*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func buildOptions(cfg *Config) *pokertableview.ViewEngineOptions {
	options := pokertableview.NewViewEngineOptions()
	if cfg.Table.MaxSeatCount > 0 {
		options.MaxSeatCount = cfg.Table.MaxSeatCount
	}
	if cfg.Table.IntroDelay > 0 {
		options.IntroDelay = cfg.Table.IntroDelay
	}
	if cfg.Table.RevealInterval > 0 {
		options.RevealInterval = cfg.Table.RevealInterval
	}
	if cfg.Table.WinnerDisplay > 0 {
		options.WinnerDisplay = cfg.Table.WinnerDisplay
	}
	if cfg.Table.SettleDelay > 0 {
		options.SettleDelay = cfg.Table.SettleDelay
	}
	if cfg.Table.DealInterval > 0 {
		options.DealInterval = cfg.Table.DealInterval
	}
	return options
}

func buildTransport(cfg *Config, logger *zap.Logger) (pokertableview.Transport, error) {
	switch cfg.Transport.Kind {
	case "nats":
		return transport.NewNATSTransport(cfg.Transport.URL,
			transport.WithNATSLogger(logger),
			transport.WithReconnectPolicy(cfg.Transport.MaxReconnects, cfg.Transport.ReconnectWait),
		), nil
	case "ws":
		opts := []transport.WebSocketTransportOpt{
			transport.WithWebSocketLogger(logger),
		}
		if cfg.Transport.Token != "" {
			token := cfg.Transport.Token
			opts = append(opts, transport.WithTokenProvider(func() (string, error) {
				return token, nil
			}))
		}
		return transport.NewWebSocketTransport(cfg.Transport.URL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

func main() {

	configPath := "configs/tableview.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Fatal("load config failed", zap.String("path", configPath), zap.Error(err))
	}

	if cfg.TableID == "" {
		logger.Fatal("table_id is required")
	}

	t, err := buildTransport(cfg, logger)
	if err != nil {
		logger.Fatal("build transport failed", zap.Error(err))
	}

	ve := pokertableview.NewViewEngine(buildOptions(cfg),
		pokertableview.WithTransport(t),
		pokertableview.WithRanker(ranking.NewEvaluator()),
		pokertableview.WithLogger(logger),
		pokertableview.WithLocalPlayerID(cfg.PlayerID),
	)

	ve.OnViewUpdated(func(view *pokertableview.TableView) {
		logger.Info("view updated",
			zap.String("table_id", view.TableID),
			zap.Int64("serial", view.UpdateSerial),
			zap.String("phase", string(view.Hand.Phase)),
			zap.Int64("pot", view.Hand.Pot))
	})

	ve.OnNoticeUpdated(func(notice string) {
		logger.Info("notice", zap.String("message", notice))
	})

	ve.OnShowdownStageUpdated(func(stage pokertableview.ShowdownStage) {
		logger.Info("showdown stage", zap.String("stage", string(stage)))
	})

	ve.OnAutoFold(func(seat int) {
		logger.Warn("auto folded on turn expiry", zap.Int("seat", seat))
	})

	if err := t.Connect(); err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	defer t.Close()

	if err := ve.Subscribe(cfg.TableID); err != nil {
		logger.Fatal("subscribe failed", zap.String("table_id", cfg.TableID), zap.Error(err))
	}

	logger.Info("watching table",
		zap.String("table_id", cfg.TableID),
		zap.String("player_id", cfg.PlayerID),
		zap.String("transport", cfg.Transport.Kind))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := ve.Unsubscribe(); err != nil {
		logger.Warn("unsubscribe failed", zap.Error(err))
	}

	logger.Info("shutting down")
}
