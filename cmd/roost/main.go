package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/birbparty/roost/internal/telemetry"
	"github.com/birbparty/roost/sdk"
)

var (
	host        string
	appID       string
	apiKey      string
	transport   string
	envFile     string
	configFile  string
	session     string
	deviceFile  string
	deviceRedis string
	metricsAddr string
	timeout     time.Duration

	// Set up by the root command before any subcommand runs.
	svc     *sdk.Service
	tel     *telemetry.Telemetry
	metrics *metricsServer

	rootCmd = &cobra.Command{
		Use:               "roost",
		Short:             "Command line client for the Roost backend",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&host, "host", "", "Roost API host, e.g. https://api.roost.example ($"+sdk.EnvHost+")")
	flags.StringVar(&appID, "app", "", "application id ($"+sdk.EnvAppID+")")
	flags.StringVar(&apiKey, "key", "", "application API key ($"+sdk.EnvAPIKey+")")
	flags.StringVar(&transport, "transport", "", "transport: direct, pooled or reactor ($"+sdk.EnvTransport+")")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&configFile, "config", "", "YAML config file, replaces the environment")
	flags.StringVar(&session, "session", "", "session token; scopes object and file commands to the user")
	flags.StringVar(&deviceFile, "device-file", defaultDeviceFile(), "file holding the device id")
	flags.StringVar(&deviceRedis, "device-redis", "", "redis URL holding a shared device id, overrides --device-file")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	flags.DurationVar(&timeout, "timeout", 0, "request timeout")

	registerObjectCommands(rootCmd)
	registerAccountCommands(rootCmd)
	registerFileCommands(rootCmd)
}

func defaultDeviceFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roost-device"
	}
	return filepath.Join(home, ".roost", "device")
}

func loadConfig(cmd *cobra.Command) (*sdk.Config, error) {
	var (
		cfg *sdk.Config
		err error
	)
	if configFile != "" {
		cfg, err = sdk.LoadConfigFile(configFile)
	} else {
		cfg, err = sdk.LoadConfigFromEnv(envFile)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.WithHost(host)
	}
	if flags.Changed("app") || flags.Changed("key") {
		id, key := cfg.AppID, cfg.APIKey
		if flags.Changed("app") {
			id = appID
		}
		if flags.Changed("key") {
			key = apiKey
		}
		cfg.WithApp(id, key)
	}
	if flags.Changed("transport") {
		cfg.WithTransportMode(sdk.TransportMode(transport))
	}
	if timeout > 0 {
		cfg.WithTimeout(timeout)
	}

	ds, err := deviceStore()
	if err != nil {
		return nil, err
	}
	if ds != nil {
		cfg.WithDeviceStore(ds)
	}
	return cfg, nil
}

func deviceStore() (sdk.DeviceStore, error) {
	switch {
	case deviceRedis != "":
		opts, err := redis.ParseURL(deviceRedis)
		if err != nil {
			return nil, fmt.Errorf("invalid --device-redis: %w", err)
		}
		return sdk.NewRedisDeviceStore(redis.NewClient(opts), ""), nil
	case deviceFile != "":
		return sdk.NewFileDeviceStore(deviceFile), nil
	default:
		return nil, nil
	}
}

// offline marks commands that run without a Roost connection.
const offline = "offline"

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	tel, err = telemetry.Init(cmd.Context(), telemetry.NewConfigFromEnv())
	if err != nil {
		return err
	}
	if cmd.Annotations[offline] == "true" {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.WithLogger(telemetry.L())

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		cfg.WithObserver(sdk.NewPrometheusObserver(reg, "cli"))
		metrics = startMetricsServer(metricsAddr, reg)
	}

	svc, err = sdk.NewService(cfg)
	return err
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if svc != nil {
		if err := svc.Close(); err != nil {
			telemetry.L().WithError(err).Warn("Failed to close service")
		}
	}
	if metrics != nil {
		metrics.shutdown()
	}
	_ = tel.Shutdown(ctx)
}

// store is the part of the SDK shared by application and user scopes.
type store interface {
	sdk.ObjectStore
	Update(ctx context.Context, objs ...*sdk.Object) (*sdk.ObjectModificationResponse, error)
	DeleteAll(ctx context.Context) (*sdk.ObjectModificationResponse, error)
	RunSnippet(ctx context.Context, fn sdk.ServerFunction, opts *sdk.RequestOptions) (*sdk.FunctionResponse, error)
	Upload(ctx context.Context, key, contentType string, data []byte) (*sdk.ObjectModificationResponse, error)
	Download(ctx context.Context, key string) (*sdk.FileResponse, error)
	DeleteFile(ctx context.Context, key string) (*sdk.ObjectModificationResponse, error)
}

// scope returns the user service when --session is set, else the
// application service.
func scope() (store, error) {
	if session == "" {
		return svc, nil
	}
	return svc.ForSession(sdk.NewSessionToken(session, time.Time{}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
