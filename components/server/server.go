package main

import (
	"flag"
	"net"
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
		configFile      string
		port            int
		logLevel        string
		runInDaemonMode bool
	}
	server     *handshake.Server
	signalChan = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&args.configFile, "configfile", "", "set config file path")
	flag.IntVar(&args.port, "port", 0, "set listen port, will override port in config")
	flag.StringVar(&args.logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&args.runInDaemonMode, "d", false, "run in daemon mode")
	flag.Parse()
}

func main() {
	parseArgs()
	if args.configFile != "" {
		config.SetConfigFile(args.configFile)
	}
	if args.runInDaemonMode {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	cfg := config.GetServer()
	if args.port != 0 {
		cfg.Port = args.port
	}
	logLevel := args.logLevel
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	binutil.SetupGWLog("server", logLevel, cfg.LogFile, cfg.LogStderr)
	binutil.SetupHTTPServer(cfg.HTTPIp, cfg.HTTPPort)

	snap, err := loadResources(cfg.ResourceDir)
	if err != nil {
		gwlog.Fatalf("load resources from %s failed: %v", cfg.ResourceDir, err)
	}
	server = newServer(snap, cfg)

	listenAddr := cfg.ListenAddr()
	go netutil.ServeForever(func() (net.Listener, error) {
		return netutil.ListenTCP(listenAddr)
	}, server, server.IsTerminating)
	if cfg.KCP {
		go netutil.ServeForever(func() (net.Listener, error) {
			return netutil.ListenKCP(listenAddr)
		}, server, server.IsTerminating)
	}

	server.Start()
	setupSignals()
	server.Wait()
	gwlog.Infof("Server terminated gracefully.")
	gwlog.Sync()
}

func newServer(snap *resource.Snapshot, cfg *config.ServerConfig) *handshake.Server {
	return handshake.NewServer(snap, handshake.ServerConfig{
		WelcomeMessage:       cfg.WelcomeMessage,
		GoodbyeMessage:       cfg.GoodbyeMessage,
		MaxClientMessageSize: cfg.MaxClientMessageSize,
		MaxServerMessageSize: cfg.MaxServerMessageSize,
		HandshakeTimeout:     cfg.HandshakeTimeout,
	})
}

// loadResources loads every package of dir in index order and freezes the result.
// A package that fails to load is logged and skipped.
func loadResources(dir string) (*resource.Snapshot, error) {
	store, err := resource.NewStore(dir)
	if err != nil {
		return nil, err
	}

	packages := store.Packages()
	for _, pkg := range packages {
		if err := store.LoadPackage(pkg.Index); err != nil {
			gwlog.Errorf("%s: load package %s failed: %v", store, pkg.Name, err)
			continue
		}
		gwlog.Debugf("%s: loaded package %s", store, pkg.Name)
	}
	store.Clean()

	snap := store.Freeze()
	gwlog.Infof("%s: %d resources loaded from %d packages", store, snap.Len(), len(packages))
	return snap, nil
}

func setupSignals() {
	gwlog.Infof("Setup signals ...")
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			sig := <-signalChan
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				gwlog.Infof("Terminating server ...")
				server.Terminate()
				return
			}
			gwlog.Errorf("unexpected signal: %s", sig)
		}
	}()
}
