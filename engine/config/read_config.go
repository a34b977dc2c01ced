package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE  = "yondr.ini"
	_DEFAULT_PORT         = 7600
	_DEFAULT_LOG_LEVEL    = "debug"
	_DEFAULT_WELCOME      = "howdy"
	_DEFAULT_GOODBYE      = "thx"
	_DEFAULT_RESOURCE_DIR = "gamedata"
	_DEFAULT_CACHE_DIR    = "cache"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	yondrConfig    *YondrConfig
	configLock     sync.Mutex
)

// ServerConfig defines fields of server config
type ServerConfig struct {
	Ip                   string
	Port                 int
	ResourceDir          string
	WelcomeMessage       string
	GoodbyeMessage       string
	KCP                  bool
	MaxClientMessageSize uint32
	MaxServerMessageSize uint32
	HandshakeTimeout     time.Duration
	HTTPIp               string
	HTTPPort             int
	LogFile              string
	LogStderr            bool
	LogLevel             string
}

// ListenAddr returns ip:port
func (sc *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", sc.Ip, sc.Port)
}

// ClientConfig defines fields of client config
type ClientConfig struct {
	Server               string
	Network              string
	CacheDir             string
	VerifyVersions       bool
	GoodbyeMessage       string
	MaxClientMessageSize uint32
	MaxServerMessageSize uint32
	HandshakeTimeout     time.Duration
	LogFile              string
	LogStderr            bool
	LogLevel             string
}

// YondrConfig defines the total config file structure
type YondrConfig struct {
	Server ServerConfig
	Client ClientConfig
}

// SetConfigFile sets the config file path (yondr.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *YondrConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if yondrConfig == nil {
		yondrConfig = readYondrConfig()
	}
	return yondrConfig
}

// Reload forces the config file to be read again
func Reload() *YondrConfig {
	configLock.Lock()
	yondrConfig = nil
	configLock.Unlock()

	return Get()
}

// GetServer returns the server config
func GetServer() *ServerConfig {
	return &Get().Server
}

// GetClient returns the client config
func GetClient() *ClientConfig {
	return &Get().Client
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readYondrConfig() *YondrConfig {
	config := YondrConfig{}
	setServerDefaults(&config.Server)
	setClientDefaults(&config.Client)

	iniFile := ini.Empty()
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) && configFilePath == _DEFAULT_CONFIG_FILE {
		gwlog.Warnf("Config file %s not found, using defaults", configFilePath)
	} else {
		gwlog.Infof("Using config file: %s", configFilePath)
		iniFile, err = ini.Load(configFilePath)
		checkConfigError(err, "")
	}

	for _, sec := range iniFile.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		secName := strings.ToLower(sec.Name())

		if secName == "server" {
			readServerConfig(sec, &config.Server)
		} else if secName == "client" {
			readClientConfig(sec, &config.Client)
		} else {
			gwlog.Errorf("unknown section: %s", secName)
		}
	}

	validateConfig(&config)
	return &config
}

func setServerDefaults(sc *ServerConfig) {
	sc.Ip = "0.0.0.0"
	sc.Port = _DEFAULT_PORT
	sc.ResourceDir = _DEFAULT_RESOURCE_DIR
	sc.WelcomeMessage = _DEFAULT_WELCOME
	sc.GoodbyeMessage = "bye"
	sc.MaxClientMessageSize = consts.DEFAULT_CLIENT_MESSAGE_LIMIT
	sc.MaxServerMessageSize = consts.DEFAULT_SERVER_MESSAGE_LIMIT
	sc.HTTPIp = "127.0.0.1"
	sc.HTTPPort = 0 // pprof not enabled by default
	sc.LogFile = "server.log"
	sc.LogStderr = true
	sc.LogLevel = _DEFAULT_LOG_LEVEL
}

func readServerConfig(sec *ini.Section, sc *ServerConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "ip" {
			sc.Ip = key.MustString(sc.Ip)
		} else if name == "port" {
			sc.Port = key.MustInt(sc.Port)
		} else if name == "resource_dir" {
			sc.ResourceDir = key.MustString(sc.ResourceDir)
		} else if name == "welcome_message" {
			sc.WelcomeMessage = key.MustString(sc.WelcomeMessage)
		} else if name == "goodbye_message" {
			sc.GoodbyeMessage = key.MustString(sc.GoodbyeMessage)
		} else if name == "kcp" {
			sc.KCP = key.MustBool(sc.KCP)
		} else if name == "max_client_message_size" {
			sc.MaxClientMessageSize = mustUint32(sec, key, sc.MaxClientMessageSize)
		} else if name == "max_server_message_size" {
			sc.MaxServerMessageSize = mustUint32(sec, key, sc.MaxServerMessageSize)
		} else if name == "handshake_timeout" {
			sc.HandshakeTimeout = time.Second * time.Duration(key.MustInt(int(sc.HandshakeTimeout/time.Second)))
		} else if name == "http_ip" {
			sc.HTTPIp = key.MustString(sc.HTTPIp)
		} else if name == "http_port" {
			sc.HTTPPort = key.MustInt(sc.HTTPPort)
		} else if name == "log_file" {
			sc.LogFile = key.MustString(sc.LogFile)
		} else if name == "log_stderr" {
			sc.LogStderr = key.MustBool(sc.LogStderr)
		} else if name == "log_level" {
			sc.LogLevel = key.MustString(sc.LogLevel)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func setClientDefaults(cc *ClientConfig) {
	cc.Server = fmt.Sprintf("127.0.0.1:%d", _DEFAULT_PORT)
	cc.Network = "tcp"
	cc.CacheDir = _DEFAULT_CACHE_DIR
	cc.VerifyVersions = true
	cc.GoodbyeMessage = _DEFAULT_GOODBYE
	cc.MaxClientMessageSize = consts.DEFAULT_CLIENT_MESSAGE_LIMIT
	cc.MaxServerMessageSize = consts.DEFAULT_SERVER_MESSAGE_LIMIT
	cc.LogFile = "client.log"
	cc.LogStderr = true
	cc.LogLevel = _DEFAULT_LOG_LEVEL
}

func readClientConfig(sec *ini.Section, cc *ClientConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "server" {
			cc.Server = key.MustString(cc.Server)
		} else if name == "network" {
			cc.Network = strings.ToLower(key.MustString(cc.Network))
		} else if name == "cache_dir" {
			cc.CacheDir = key.MustString(cc.CacheDir)
		} else if name == "verify_versions" {
			cc.VerifyVersions = key.MustBool(cc.VerifyVersions)
		} else if name == "goodbye_message" {
			cc.GoodbyeMessage = key.MustString(cc.GoodbyeMessage)
		} else if name == "max_client_message_size" {
			cc.MaxClientMessageSize = mustUint32(sec, key, cc.MaxClientMessageSize)
		} else if name == "max_server_message_size" {
			cc.MaxServerMessageSize = mustUint32(sec, key, cc.MaxServerMessageSize)
		} else if name == "handshake_timeout" {
			cc.HandshakeTimeout = time.Second * time.Duration(key.MustInt(int(cc.HandshakeTimeout/time.Second)))
		} else if name == "log_file" {
			cc.LogFile = key.MustString(cc.LogFile)
		} else if name == "log_stderr" {
			cc.LogStderr = key.MustBool(cc.LogStderr)
		} else if name == "log_level" {
			cc.LogLevel = key.MustString(cc.LogLevel)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

// mustUint32 reads a size key, panicking on values that do not fit in 32 bits
func mustUint32(sec *ini.Section, key *ini.Key, def uint32) uint32 {
	v := key.MustUint64(uint64(def))
	if v > math.MaxUint32 {
		gwlog.Panicf("section %s: %s = %d is out of range", sec.Name(), key.Name(), v)
	}
	return uint32(v)
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateConfig(config *YondrConfig) {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		gwlog.Panicf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.ResourceDir == "" {
		gwlog.Panicf("resource_dir is not set in server config")
	}
	if config.Client.Network != "tcp" && config.Client.Network != "kcp" {
		gwlog.Panicf("unknown client network: %s", config.Client.Network)
	}
	if config.Client.CacheDir == "" {
		gwlog.Panicf("cache_dir is not set in client config")
	}
	if config.Client.Server == "" {
		gwlog.Panicf("server address is not set in client config")
	}
}
