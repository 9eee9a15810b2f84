package main

import (
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/ghodss/yaml.v1"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	analytics "github.com/ingestkit/go-analytics-sdk"
	"github.com/ingestkit/go-analytics-sdk/analyticshttp"
	"github.com/ingestkit/go-analytics-sdk/analyticsntlm"
)

const writeKeyEnvVar = "ANALYTICS_WRITE_KEY"

// GlobalOptions holds the flags shared by every subcommand.
type GlobalOptions struct {
	WriteKey   string
	Host       string
	ConfigFile string
	EnvFile    string
	LogFile    string
	Debug      bool
	Timeout    time.Duration
}

// FileConfig is the layout of the YAML file given with --config.
type FileConfig struct {
	WriteKey      string              `json:"writeKey"`
	Host          string              `json:"host"`
	Path          string              `json:"path"`
	TimeoutMillis ldvalue.OptionalInt `json:"timeoutMillis"`
	RetryCount    ldvalue.OptionalInt `json:"retryCount"`
	Compress      bool                `json:"compress"`
	Proxy         string              `json:"proxy"`
	CACertFile    string              `json:"caCertFile"`
	NTLM          *NTLMConfig         `json:"ntlm"`
}

// NTLMConfig holds credentials for an NTLM-authenticated proxy. It requires FileConfig.Proxy.
type NTLMConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
}

func newRootCmd() *cobra.Command {
	opts := &GlobalOptions{}
	rootCmd := &cobra.Command{
		Use:           "analytics",
		Short:         "Send analytics messages",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.WriteKey, "write-key", "", "write key (default $"+writeKeyEnvVar+")")
	flags.StringVar(&opts.Host, "host", "", "base URL of the ingestion API")
	flags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.EnvFile, "env-file", "", "file of environment variables to load")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file instead of stderr")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout")

	for _, kind := range []analytics.Kind{
		analytics.KindIdentify,
		analytics.KindGroup,
		analytics.KindTrack,
		analytics.KindPage,
		analytics.KindScreen,
		analytics.KindAlias,
	} {
		rootCmd.AddCommand(NewMessageCmd(opts, kind))
	}
	rootCmd.AddCommand(NewConfigCmd(opts))
	return rootCmd
}

// ClientConfig resolves the write key and client configuration from flags, environment, and files.
// The returned closer releases the log file, if any.
func (opts *GlobalOptions) ClientConfig() (string, analytics.Config, io.Closer, error) {
	var config analytics.Config

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return "", config, nil, errors.Wrapf(err, "can't load env file %s", opts.EnvFile)
		}
	}

	var fc FileConfig
	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return "", config, nil, errors.Wrapf(err, "can't read config file %s", opts.ConfigFile)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return "", config, nil, errors.Wrapf(err, "invalid config file %s", opts.ConfigFile)
		}
	}

	writeKey := opts.WriteKey
	if writeKey == "" {
		writeKey = os.Getenv(writeKeyEnvVar)
	}
	if writeKey == "" {
		writeKey = fc.WriteKey
	}

	config.Host = fc.Host
	if opts.Host != "" {
		config.Host = opts.Host
	}
	config.Path = fc.Path
	config.RetryCount = fc.RetryCount
	config.Compress = fc.Compress
	if fc.TimeoutMillis.IsDefined() {
		config.Timeout = time.Duration(fc.TimeoutMillis.IntValue()) * time.Millisecond
	}
	if opts.Timeout > 0 {
		config.Timeout = opts.Timeout
	}
	// one message per invocation, sent as soon as it is queued
	config.FlushAt = ldvalue.NewOptionalInt(1)
	config.FlushInterval = -1

	if err := applyHTTPConfig(&config, fc); err != nil {
		return "", config, nil, err
	}

	loggers, closer := opts.loggers()
	config.Loggers = loggers
	return writeKey, config, closer, nil
}

func applyHTTPConfig(config *analytics.Config, fc FileConfig) error {
	var httpOptions []analyticshttp.TransportOption
	if fc.CACertFile != "" {
		httpOptions = append(httpOptions, analyticshttp.CACertFileOption(fc.CACertFile))
	}
	if fc.NTLM != nil {
		factory, err := analyticsntlm.NewNTLMProxyHTTPClientFactory(fc.Proxy,
			fc.NTLM.Username, fc.NTLM.Password, fc.NTLM.Domain, httpOptions...)
		if err != nil {
			return err
		}
		config.HTTPClientFactory = factory
		return nil
	}
	if fc.Proxy != "" {
		proxyURL, err := url.Parse(fc.Proxy)
		if err != nil {
			return errors.Wrapf(err, "invalid proxy URL %s", fc.Proxy)
		}
		httpOptions = append(httpOptions, analyticshttp.ProxyOption(*proxyURL))
	}
	config.HTTPOptions = httpOptions
	return nil
}

func (opts *GlobalOptions) loggers() (ldlog.Loggers, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		logFile := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10,
			MaxAge:     28,
			MaxBackups: 3,
		}
		out, closer = logFile, logFile
	}
	loggers := ldlog.Loggers{}
	loggers.SetBaseLogger(log.New(out, "", log.LstdFlags))
	if opts.Debug {
		loggers.SetMinLevel(ldlog.Debug)
	} else {
		loggers.SetMinLevel(ldlog.Warn)
	}
	return loggers, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
