package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/yondr/yondr/engine/binutil"
	"github.com/yondr/yondr/engine/config"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/handshake"
	"github.com/yondr/yondr/engine/netutil"
	"github.com/yondr/yondr/engine/resource"
)

var (
	args struct {
		configFile string
		server     string
		logLevel   string
	}
	signalChan = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.StringVar(&args.server, "server", "", "set server address, will override server in config")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.Parse()
}

func main() {
	parseArgs()
	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}

	cfg := config.GetClient()
	if args.server != "" {
		cfg.Server = args.server
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	binutil.SetupGWLog("client", logLevel, cfg.LogFile, cfg.LogStderr)

	ctx, cancel := context.WithCancel(context.Background())
	setupSignals(cancel)

	result, err := syncCache(ctx, cfg)
	if err != nil {
		gwlog.Errorf("sync with %s failed: %v", cfg.Server, err)
		gwlog.Sync()
		os.Exit(1)
	}
	gwlog.Infof("cache %s is up to date: %d resources advertised, %d fetched", cfg.CacheDir, result.Advertised, len(result.Fetched))
	gwlog.Sync()
}

// syncCache connects to the configured server and brings the cache directory up to date
func syncCache(ctx context.Context, cfg *config.ClientConfig) (*handshake.SyncResult, error) {
	store, err := resource.NewStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	gwlog.Infof("connecting to %s over %s ...", cfg.Server, cfg.Network)
	conn, err := netutil.Dial(cfg.Network, cfg.Server)
	if err != nil {
		return nil, err
	}

	client := handshake.NewClient(store, handshake.ClientConfig{
		VerifyVersions:       cfg.VerifyVersions,
		GoodbyeMessage:       cfg.GoodbyeMessage,
		MaxClientMessageSize: cfg.MaxClientMessageSize,
		MaxServerMessageSize: cfg.MaxServerMessageSize,
		HandshakeTimeout:     cfg.HandshakeTimeout,
	})
	return client.Sync(ctx, conn)
}

func setupSignals(cancel context.CancelFunc) {
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		gwlog.Infof("%s received, aborting ...", sig)
		cancel()
	}()
}
