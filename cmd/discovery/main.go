// Command discovery runs one complete crawl of the cloud resource discovery
// engine and exits: it takes no arguments, and all configuration comes from
// the environment. There is no server loop, no cobra command tree, and no
// websocket hub — this process is meant to be invoked on a schedule (e.g.
// one ECS task run per period) and exit, so main is a single straight-line
// bootstrap rather than a command-tree dispatch.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/config"
	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/httptransport"
	"github.com/rcourtman/cloud-discovery-engine/internal/initializer"
	"github.com/rcourtman/cloud-discovery-engine/internal/orchestrator"
	"github.com/rcourtman/cloud-discovery-engine/internal/searchindex"
	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, parseErr := zerolog.ParseLevel(cfg.LogLevel); parseErr == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("mode", string(cfg.CrossAccountDiscovery)).Msg("starting discovery crawl")

	orch, err := bootstrap(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct orchestrator")
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		exitOnError(err)
		return
	}

	log.Info().Str("outcome", summary.Outcome).Msg("discovery crawl finished")
	os.Exit(0)
}

// exitOnError implements / exit-code contract: DiscoveryAlreadyRunning
// is logged at info and exits 0, every other error is fatal.
func exitOnError(err error) {
	kind, ok := discoveryerrors.AsKind(err)
	if ok && kind == discoveryerrors.KindDiscoveryAlreadyRunning {
		log.Info().Err(err).Msg(err.Error())
		os.Exit(0)
	}

	switch {
	case ok && kind == discoveryerrors.KindAggregatorNotFound:
		fmt.Fprintf(os.Stderr, "AggregatorNotFoundError: %v\n", err)
	case ok && kind == discoveryerrors.KindOrgAggregatorValidation:
		fmt.Fprintf(os.Stderr, "OrgAggregatorValidationError: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "discovery crawl failed: %v\n", err)
	}
	log.Error().Err(err).Msg("discovery crawl failed")
	os.Exit(1)
}

// bootstrap wires every dependency the Orchestrator needs: the root
// ProviderClient (ambient task credentials, never an assumed role), the two
// SigV4-signed collaborators, and the scheduler-facing preflight inputs.
func bootstrap(ctx context.Context, cfg config.Config) (*orchestrator.Orchestrator, error) {
	rootOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.CustomUserAgent != "" {
		rootOpts = append(rootOpts, awsconfig.WithAppID(cfg.CustomUserAgent))
	}
	rootCfg, err := awsconfig.LoadDefaultConfig(ctx, rootOpts...)
	if err != nil {
		return nil, fmt.Errorf("load ambient AWS config: %w", err)
	}

	throttles := throttle.NewRegistry()
	rootClient := awsclient.New("", cfg.Region, awsclient.Identity("root"), rootCfg, throttles)

	graphTransport := httptransport.New(cfg.GraphStoreURL, "appsync", cfg.Region, rootCfg.Credentials)
	graphStore := graphstore.New(graphTransport)

	searchTransport := httptransport.New(cfg.SearchIndexURL, "es", cfg.Region, rootCfg.Credentials)
	searchIndex := searchindex.New(httptransport.SearchIndexTransport{SignedClient: searchTransport})

	endpoints := serviceEndpoints(cfg.Region, cfg.GraphStoreURL)

	selfTaskDefArn, err := ownTaskDefinitionArn(ctx, cfg.Region, cfg.RootAccountID)
	if err != nil {
		log.Warn().Err(err).Msg("could not resolve this task's own task definition arn from ECS metadata; mutex probe will find zero peers and is effectively disabled for this run")
	}

	sessionName := "discovery-" + uuid.New().String()

	orch := orchestrator.New(
		cfg,
		rootClient,
		graphStore,
		searchIndex,
		throttles,
		endpoints,
		nil, // initializer falls back to a real net.DialTimeout dialer
		selfTaskDefArn,
		sessionName,
	)
	return orch, nil
}

// serviceEndpoints builds the fixed dial-address list step 1
// probes. vpcId names which VPC this task runs in (for an operator reading
// its own task metadata); the probe itself doesn't address resources inside
// that VPC; it dials the regional AWS service endpoints directly, so
// reachability implicitly depends on that VPC's NAT gateway or VPC endpoints
// actually routing to them.
func serviceEndpoints(region, graphStoreURL string) initializer.Endpoints {
	regional := func(service string) string {
		return net.JoinHostPort(fmt.Sprintf("%s.%s.amazonaws.com", service, region), "443")
	}
	return initializer.Endpoints{
		IAM: net.JoinHostPort("iam.amazonaws.com", "443"),
		STS: regional("sts"),
		ConfigService: regional("config"),
		Gateway: regional("apigateway"),
		EC2: regional("ec2"),
		Containers: regional("ecs"),
		IdentityAware: regional("cognito-idp"),
		Search: regional("es"),
		Logs: regional("logs"),
		GraphStore: endpointHost(graphStoreURL),
		Organizations: net.JoinHostPort("organizations.us-east-1.amazonaws.com", "443"),
	}
}

// endpointHost extracts a dialable host:port from a URL, defaulting to 443
// when no port is present.
func endpointHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// ecsTaskMetadata is the subset of the ECS Task Metadata Endpoint v4 "/task"
// response this process reads.
type ecsTaskMetadata struct {
	Family string `json:"Family"`
	Revision string `json:"Revision"`
}

// ownTaskDefinitionArn best-efforts the running task's own task-definition
// ARN for the mutex probe's self-exclusion: a family comparison against the
// scheduler's task inventory must not count this process's own task as a
// second peer. ECS injects ECS_CONTAINER_METADATA_URI_V4 into
// every task's environment; absent it (a local run), the probe's self family
// never matches a real task-definition ARN, so no peer is ever detected.
func ownTaskDefinitionArn(ctx context.Context, region, accountID string) (string, error) {
	base := os.Getenv("ECS_CONTAINER_METADATA_URI_V4")
	if base == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/task", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var meta ecsTaskMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", err
	}
	if meta.Family == "" {
		return "", nil
	}
	return fmt.Sprintf("arn:aws:ecs:%s:%s:task-definition/%s:%s", region, accountID, meta.Family, meta.Revision), nil
}
