package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/artoderk/atomix"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		clusterFile       string
		nodeID            string
		electionTimeoutMs int
		heartbeatMs       int
		metricsAddr       string
		devLogging        bool
	)

	cmd := &cobra.Command{
		Use:   "kvnode",
		Short: "run a single replica of the atomix demo key-value store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(nodeRunOptions{
				clusterFile:       clusterFile,
				nodeID:            nodeID,
				electionTimeoutMs: electionTimeoutMs,
				heartbeatMs:       heartbeatMs,
				metricsAddr:       metricsAddr,
				devLogging:        devLogging,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&clusterFile, "cluster-file", "", "path to the YAML cluster membership file (required)")
	flags.StringVar(&nodeID, "node-id", "", "this replica's node id, must match an entry in cluster-file (required)")
	flags.IntVar(&electionTimeoutMs, "election-timeout-ms", 300, "election timeout in milliseconds")
	flags.IntVar(&heartbeatMs, "heartbeat-interval-ms", 50, "heartbeat interval in milliseconds")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	flags.BoolVar(&devLogging, "dev-logging", false, "use zap's human-readable development encoder")
	cmd.MarkFlagRequired("cluster-file")
	cmd.MarkFlagRequired("node-id")

	return cmd
}

type nodeRunOptions struct {
	clusterFile       string
	nodeID            string
	electionTimeoutMs int
	heartbeatMs       int
	metricsAddr       string
	devLogging        bool
}

func runNode(opts nodeRunOptions) error {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	zcfg := zap.NewProductionConfig()
	if opts.devLogging {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	zapLogger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("kvnode: building logger: %w", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	cluster, version, err := atomix.LoadStaticCluster(opts.clusterFile, atomix.NodeId(opts.nodeID), atomix.Active)
	if err != nil {
		return fmt.Errorf("kvnode: loading cluster file: %w", err)
	}
	logger.Infow("cluster loaded", "node_id", opts.nodeID, "version", version, "peers", len(cluster.Members()))

	self, ok := cluster.Member(atomix.NodeId(opts.nodeID))
	if !ok {
		return fmt.Errorf("kvnode: node id %q not present in cluster file", opts.nodeID)
	}

	registry := prometheus.NewRegistry()
	transport, err := atomix.NewGRPCTransport(self.Endpoint, logger)
	if err != nil {
		return fmt.Errorf("kvnode: starting transport: %w", err)
	}

	store := newKVStore()

	cfg := atomix.Config{
		ElectionTimeout:   time.Duration(opts.electionTimeoutMs) * time.Millisecond,
		HeartbeatInterval: time.Duration(opts.heartbeatMs) * time.Millisecond,
		Storage:           atomix.NewMemLogStore(),
		Transport:         transport,
		Cluster:           cluster,
		CommitHandler:     store.apply,
		MetricsRegistry:   registry,
		LogLevel:          &level,
	}
	ctx, err := atomix.NewContext(cfg)
	if err != nil {
		return fmt.Errorf("kvnode: constructing context: %w", err)
	}
	if err := ctx.Open(); err != nil {
		return fmt.Errorf("kvnode: opening context: %w", err)
	}

	go dispatchLoop(ctx, transport)
	go func() {
		if err := transport.Serve(); err != nil {
			logger.Warnw("transport stopped serving", "error", err)
		}
	}()

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				logger.Warnw("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Infow("replica running", "id", opts.nodeID, "endpoint", self.Endpoint)
	<-atomix.TerminalSignalCh()
	logger.Info("shutting down")

	if err := transport.Close(); err != nil {
		logger.Warnw("transport close error", "error", err)
	}
	return ctx.Close()
}

// dispatchLoop hands every inbound RPC the transport receives to the
// context, until the transport's RPC channel closes.
func dispatchLoop(ctx *atomix.Context, transport *atomix.GRPCTransport) {
	for rpc := range transport.RPC() {
		ctx.DispatchRPC(rpc)
	}
}
