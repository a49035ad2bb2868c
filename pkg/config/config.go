package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string   // connection string for the database
	WaitForServices    string   // duration to wait for other services to be ready
	LogLevel           string   // sets the log level (zap log level values)
	SQLLogLevel        string   // sets the log level for sql subsystem
	LogFormat          string   // text vs json
	LogFilter          string   // zapfilter rules applied to log output
	MigrationSourceURL string   // location of migration files
	EnableTelemetry    bool     // enable telemetry
	TelemetryEndpoint  string   // endpoint for telemetry
	TelemetryStdout    bool     // write telemetry data to stdout instead of the endpoint
	ProfilingPort      int      // port for profiling
	HealthServerAddr   string   // listen addr for health/reflection server
	TLSCertFile        string   // cert file for health server
	TLSKeyFile         string   // key file for health server
	TLSCAFile          string   // CA file for optional client certs
	TraefikCerts       string   // traefik acme.json with certificates
	TraefikCertDomain  string   // main domain to look up in TraefikCerts
	FeedAddr           string   // host:port of the timing feed
	ReconnectDelay     string   // duration to wait before reconnecting to the feed
	MaxPendingBytes    int      // max number of unframed bytes kept from the feed
	KindOrder          []string // scan order of message kinds
	ScanPolicy         string   // priority or arrival
	PublishInterval    string   // duration between two snapshots while online
	GatePollInterval   string   // duration between two polls of the control source
	ControlSource      string   // static, file or nats
	ControlFile        string   // path to control file (file source)
	StaticOnline       bool     // online state for static control source
	TargetCar          string   // target car for static control source
	HeartbeatInterval  string   // min duration between two heartbeat writes (negative disables)
	ReferenceFile      string   // path to driver reference yaml file
	ReferenceFromDB    bool     // load driver reference data from database
	Sinks              []string // active sinks (log, nats, postgres)
	PersistSnapshots   bool     // postgres sink stores full snapshots besides lap records
	NatsURL            string   // URL of the NATS server
	NatsSubject        string   // subject for snapshot publishing
	NatsControlBucket  string   // key value bucket holding the control values
	NatsControlKey     string   // key within control bucket
)

// Config holds the configuration values which are used by the application
type Config struct {
	PrintMessage bool // if true, decoded messages will be printed on debug level
}
