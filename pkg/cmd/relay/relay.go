package relay

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // profiling is opt-in via flag
	"os"
	"os/signal"
	"runtime"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/config"
	"github.com/mpapenbr/livetiming-relay/pkg/db/postgres"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/client"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/frame"
	"github.com/mpapenbr/livetiming-relay/pkg/gate"
	"github.com/mpapenbr/livetiming-relay/pkg/gate/filesource"
	"github.com/mpapenbr/livetiming-relay/pkg/gate/natskv"
	"github.com/mpapenbr/livetiming-relay/pkg/health"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/processing"
	"github.com/mpapenbr/livetiming-relay/pkg/reference"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/driver"
	"github.com/mpapenbr/livetiming-relay/pkg/sink"
	"github.com/mpapenbr/livetiming-relay/pkg/sink/logsink"
	"github.com/mpapenbr/livetiming-relay/pkg/sink/natssink"
	"github.com/mpapenbr/livetiming-relay/pkg/sink/pgsink"
	"github.com/mpapenbr/livetiming-relay/pkg/tlsconfig"
	"github.com/mpapenbr/livetiming-relay/pkg/utils"
)

const (
	sinkLog      = "log"
	sinkNats     = "nats"
	sinkPostgres = "postgres"

	controlStatic = "static"
	controlFile   = "file"
	controlNats   = "nats"
)

var appConfig config.Config // holds processed config values

//nolint:funlen // by design
func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "connects to the timing feed and publishes race snapshots",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startRelay(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.FeedAddr,
		"feed-addr",
		"f",
		"localhost:50005",
		"host:port of the timing feed")
	cmd.Flags().StringVar(&config.ReconnectDelay,
		"reconnect-delay",
		"5s",
		"duration to wait before reconnecting to the feed")
	cmd.Flags().IntVar(&config.MaxPendingBytes,
		"max-pending-bytes",
		frame.DefaultMaxPending,
		"max number of unframed bytes before the connection is dropped (0 disables)")
	cmd.Flags().StringSliceVar(&config.KindOrder,
		"kind-order",
		[]string{},
		"scan order of message kinds (default Telemetry_Leaderboard,Pit_Summary,"+
			"Unofficial_Leaderboard,Completed_Lap)")
	cmd.Flags().StringVar(&config.ScanPolicy,
		"scan-policy",
		"priority",
		"how to pick the next message (priority, arrival)")
	cmd.Flags().StringVar(&config.PublishInterval,
		"publish-interval",
		"1s",
		"duration between two snapshots while online")
	cmd.Flags().StringVar(&config.GatePollInterval,
		"gate-poll-interval",
		"5s",
		"duration between two polls of the control source")
	cmd.Flags().StringVar(&config.ControlSource,
		"control-source",
		controlStatic,
		"source of online state and target car (static, file, nats)")
	cmd.Flags().StringVar(&config.ControlFile,
		"control-file",
		"control.yml",
		"yaml file with keys online and targetCar (control-source file)")
	cmd.Flags().BoolVar(&config.StaticOnline,
		"online",
		true,
		"online state (control-source static)")
	cmd.Flags().StringVar(&config.TargetCar,
		"target-car",
		"",
		"target car number (control-source static)")
	cmd.Flags().StringVar(&config.HeartbeatInterval,
		"heartbeat-interval",
		"0s",
		"min duration between heartbeats while online (negative disables)")
	cmd.Flags().StringVar(&config.ReferenceFile,
		"reference-file",
		"",
		"yaml file with driver reference data")
	cmd.Flags().BoolVar(&config.ReferenceFromDB,
		"reference-from-db",
		false,
		"load driver reference data from the database")
	cmd.Flags().StringSliceVar(&config.Sinks,
		"sinks",
		[]string{sinkLog},
		"active sinks (log, nats, postgres)")
	cmd.Flags().BoolVar(&config.PersistSnapshots,
		"persist-snapshots",
		false,
		"postgres sink stores full snapshots")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		nats.DefaultURL,
		"URL of the NATS server")
	cmd.Flags().StringVar(&config.NatsSubject,
		"nats-subject",
		natssink.DefaultSubject,
		"subject for published snapshots")
	cmd.Flags().StringVar(&config.NatsControlBucket,
		"nats-control-bucket",
		natskv.DefaultBucket,
		"key value bucket holding the control values")
	cmd.Flags().StringVar(&config.NatsControlKey,
		"nats-control-key",
		natskv.DefaultPrefix,
		"key prefix within the control bucket")
	cmd.Flags().StringVar(&config.HealthServerAddr,
		"health-addr",
		"",
		"listen address of the gRPC health server (empty disables)")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"file containing the health server certificate")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"file containing the health server key")
	cmd.Flags().StringVar(&config.TLSCAFile,
		"tls-ca",
		"",
		"file containing the CA for client certificates")
	cmd.Flags().StringVar(&config.TraefikCerts,
		"traefik-certs",
		"",
		"traefik acme.json to read the health server certificate from")
	cmd.Flags().StringVar(&config.TraefikCertDomain,
		"traefik-cert-domain",
		"",
		"main domain of the certificate in traefik-certs")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"debug",
		"controls the log level for sql methods")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().BoolVar(&config.TelemetryStdout,
		"telemetry-stdout",
		false,
		"write telemetry data to stdout")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&appConfig.PrintMessage,
		"print-message",
		false,
		"if true and log level is debug, decoded messages will be printed")
	return cmd
}

func parseDuration(name, value string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration value. Using default",
			log.String("flag", name),
			log.String("value", value),
			log.Duration("default", defaultVal))
		return defaultVal
	}
	return d
}

func usesSink(name string) bool {
	return slices.Contains(config.Sinks, name)
}

func needsDB() bool {
	return usesSink(sinkPostgres) || config.ReferenceFromDB
}

func needsNats() bool {
	return usesSink(sinkNats) || config.ControlSource == controlNats
}

//nolint:funlen,cyclop // by design
func startRelay(ctx context.Context) error {
	var telemetry *config.Telemetry
	sqlLogger, err := config.NewLogger(os.Stderr, config.SQLLogLevel)
	if err != nil {
		return err
	}

	log.Debug("Config:",
		log.String("feedAddr", config.FeedAddr),
		log.String("db", config.DB),
		log.String("nats", config.NatsURL),
		log.Strings("sinks", config.Sinks),
		log.String("controlSource", config.ControlSource),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // profiling only
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	pgTraceOption := postgres.WithTracer(sqlLogger, log.DebugLevel)
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTraceOption = postgres.WithOtlpTracer()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if needsDB() {
		if pool, err = postgres.InitWithURL(ctx, config.DB, pgTraceOption); err != nil {
			log.Error("could not connect to database", log.ErrorField(err))
			return err
		}
		defer pool.Close()
	}
	var nc *nats.Conn
	if needsNats() {
		if nc, err = nats.Connect(config.NatsURL, nats.Name("ltr")); err != nil {
			log.Error("could not connect to nats", log.ErrorField(err))
			return err
		}
		defer nc.Close()
	}

	ref, err := loadReference(ctx, pool)
	if err != nil {
		log.Error("could not load reference data", log.ErrorField(err))
		return err
	}
	log.Info("reference data loaded", log.Int("drivers", len(ref.Drivers)))

	proc := processing.NewProcessor(
		processing.WithReferenceData(ref),
		processing.WithLogger(log.Default().Named("processing")))

	var hs *health.Server
	if config.HealthServerAddr != "" {
		if hs, err = createHealthServer(ctx); err != nil {
			log.Error("could not create health server", log.ErrorField(err))
			return err
		}
	}

	gateOpts := []gate.Option{}
	if hs != nil {
		gateOpts = append(gateOpts, gate.WithOnlineListener(hs.SetGateOnline))
	}
	g := gate.NewGate(proc, gateOpts...)
	source, err := createControlSource(ctx, nc)
	if err != nil {
		log.Error("could not create control source", log.ErrorField(err))
		return err
	}
	poller := gate.NewPoller(g, source,
		gate.WithInterval(parseDuration("gate-poll-interval",
			config.GatePollInterval, gate.DefaultPollInterval)),
		gate.WithHeartbeatInterval(parseDuration("heartbeat-interval",
			config.HeartbeatInterval, 0)))

	sinks, err := createSinks(ctx, pool, nc)
	if err != nil {
		log.Error("could not create sinks", log.ErrorField(err))
		return err
	}
	publisher := sink.NewPublisher(proc, g, sinks,
		sink.WithInterval(parseDuration("publish-interval",
			config.PublishInterval, sink.DefaultInterval)))
	defer publisher.Close()

	frameOpts, err := frameOptions()
	if err != nil {
		log.Error("invalid frame settings", log.ErrorField(err))
		return err
	}
	clientOpts := []client.Option{
		client.WithReconnectDelay(parseDuration("reconnect-delay",
			config.ReconnectDelay, client.DefaultReconnectDelay)),
		client.WithFrameOptions(frameOpts...),
		client.WithPrintMessage(appConfig.PrintMessage),
	}
	if hs != nil {
		clientOpts = append(clientOpts, client.WithStatusFunc(hs.SetFeedConnected))
	}
	feedClient, err := client.NewClient(config.FeedAddr, proc, clientOpts...)
	if err != nil {
		log.Error("could not create feed client", log.ErrorField(err))
		return err
	}

	log.Info("Starting relay", log.String("feedAddr", config.FeedAddr))
	wg := sync.WaitGroup{}
	run := func(f func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}
	run(poller.Run)
	run(publisher.Run)
	run(feedClient.Run)
	if hs != nil {
		run(func(ctx context.Context) {
			if err := hs.Run(ctx); err != nil {
				log.Error("health server stopped", log.ErrorField(err))
			}
		})
	}
	setupGoRoutinesDump()

	<-ctx.Done()
	log.Debug("Got signal, shutting down")
	wg.Wait()
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Relay terminated")
	return nil
}

func createHealthServer(ctx context.Context) (*health.Server, error) {
	opts := []health.Option{}
	provider := tlsconfig.NewProvider(
		tlsconfig.WithKeyPair(config.TLSCertFile, config.TLSKeyFile),
		tlsconfig.WithTraefik(config.TraefikCerts, config.TraefikCertDomain),
		tlsconfig.WithClientCA(config.TLSCAFile))
	if provider.Enabled() {
		tlsCfg, err := provider.Config(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, health.WithTLSConfig(tlsCfg))
	}
	return health.NewServer(config.HealthServerAddr, opts...), nil
}

func frameOptions() ([]frame.Option, error) {
	ret := []frame.Option{frame.WithMaxPending(config.MaxPendingBytes)}
	policy, err := frame.ParsePolicy(config.ScanPolicy)
	if err != nil {
		return nil, err
	}
	ret = append(ret, frame.WithPolicy(policy))
	if len(config.KindOrder) > 0 {
		kinds, err := frame.ParseKindOrder(config.KindOrder)
		if err != nil {
			return nil, err
		}
		ret = append(ret, frame.WithKindOrder(kinds))
	}
	return ret, nil
}

func loadReference(ctx context.Context, pool *pgxpool.Pool) (*model.ReferenceData, error) {
	switch {
	case config.ReferenceFile != "":
		return reference.LoadFile(config.ReferenceFile)
	case config.ReferenceFromDB:
		drivers, err := driver.LoadAll(ctx, pool)
		if err != nil {
			return nil, err
		}
		return reference.FromDrivers(drivers), nil
	default:
		log.Warn("no reference data configured")
		return reference.Empty(), nil
	}
}

func createControlSource(ctx context.Context, nc *nats.Conn) (gate.ControlSource, error) {
	switch config.ControlSource {
	case controlStatic:
		return gate.StaticSource{Control: gate.Control{
			Online:    config.StaticOnline,
			TargetCar: config.TargetCar,
		}}, nil
	case controlFile:
		return filesource.New(config.ControlFile)
	case controlNats:
		return natskv.New(ctx, nc,
			natskv.WithBucket(config.NatsControlBucket),
			natskv.WithPrefix(config.NatsControlKey))
	default:
		return nil, fmt.Errorf("unknown control source %q", config.ControlSource)
	}
}

//nolint:whitespace // can't make both editor and linter happy
func createSinks(
	ctx context.Context, pool *pgxpool.Pool, nc *nats.Conn,
) ([]sink.Sink, error) {
	ret := make([]sink.Sink, 0, len(config.Sinks))
	for _, name := range config.Sinks {
		switch name {
		case sinkLog:
			ret = append(ret, logsink.New(log.Default().Named("sink.log")))
		case sinkNats:
			ret = append(ret, natssink.New(nc, natssink.WithSubject(config.NatsSubject)))
		case sinkPostgres:
			s, err := pgsink.New(ctx, pool, config.FeedAddr,
				pgsink.WithSnapshots(config.PersistSnapshots))
			if err != nil {
				return nil, err
			}
			ret = append(ret, s)
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return ret, nil
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}

	if needsDB() {
		if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
			wg.Add(1)
			go checkTCP(postgresAddr)
		}
	}
	if needsNats() {
		if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
			wg.Add(1)
			go checkTCP(natsAddr)
		}
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}
