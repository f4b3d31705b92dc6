// Command raftd runs a bare replica of the atomix consensus core -- no
// concrete state machine, just term/leadership tracking exposed through
// TermProvider -- plus a status subcommand for inspecting a cluster file
// without starting a replica. cmd/kvnode is the example with an actual
// key-value CommitHandler wired in; raftd is the generic engine runner.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/artoderk/atomix"
	"github.com/prometheus/client_golang/prometheus"
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
	root := &cobra.Command{
		Use:   "raftd",
		Short: "generic atomix consensus daemon",
	}
	root.AddCommand(newServeCmd(), newStatusCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		clusterFile       string
		nodeID            string
		electionTimeoutMs int
		heartbeatMs       int
		replicationFactor int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start a replica and log every term/leader change",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("raftd: building logger: %w", err)
			}
			defer logger.Sync()
			sugar := logger.Sugar()

			cluster, _, err := atomix.LoadStaticCluster(clusterFile, atomix.NodeId(nodeID), atomix.Active)
			if err != nil {
				return fmt.Errorf("raftd: loading cluster file: %w", err)
			}
			self, ok := cluster.Member(atomix.NodeId(nodeID))
			if !ok {
				return fmt.Errorf("raftd: node id %q not present in cluster file", nodeID)
			}

			transport, err := atomix.NewGRPCTransport(self.Endpoint, sugar)
			if err != nil {
				return fmt.Errorf("raftd: starting transport: %w", err)
			}

			ctx, err := atomix.NewContext(atomix.Config{
				ElectionTimeout:   time.Duration(electionTimeoutMs) * time.Millisecond,
				HeartbeatInterval: time.Duration(heartbeatMs) * time.Millisecond,
				Storage:           atomix.NewMemLogStore(),
				Transport:         transport,
				Cluster:           cluster,
				// No concrete state machine: every committed entry echoes its
				// own payload back as the apply result; reads have nothing
				// to look up, so they echo back nothing.
				CommitHandler: func(key, entry, resultBuf []byte, read bool) []byte {
					if read {
						return resultBuf
					}
					return append(resultBuf, entry...)
				},
				MetricsRegistry: prometheus.NewRegistry(),
			})
			if err != nil {
				return fmt.Errorf("raftd: constructing context: %w", err)
			}
			if err := ctx.Open(); err != nil {
				return fmt.Errorf("raftd: opening context: %w", err)
			}

			terms := atomix.NewTermProvider(ctx, replicationFactor)
			terms.AddListener(func(t atomix.Term) {
				sugar.Infow("term changed", "term", t.Term, "leader", string(t.Leader), "followers", t.Followers)
			})

			go func() {
				for rpc := range transport.RPC() {
					ctx.DispatchRPC(rpc)
				}
			}()
			go func() {
				if err := transport.Serve(); err != nil {
					sugar.Warnw("transport stopped serving", "error", err)
				}
			}()

			sugar.Infow("replica running", "id", nodeID, "endpoint", self.Endpoint)
			<-atomix.TerminalSignalCh()
			sugar.Info("shutting down")
			if err := transport.Close(); err != nil {
				sugar.Warnw("transport close error", "error", err)
			}
			return ctx.Close()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&clusterFile, "cluster-file", "", "path to the YAML cluster membership file (required)")
	flags.StringVar(&nodeID, "node-id", "", "this replica's node id (required)")
	flags.IntVar(&electionTimeoutMs, "election-timeout-ms", 300, "election timeout in milliseconds")
	flags.IntVar(&heartbeatMs, "heartbeat-interval-ms", 50, "heartbeat interval in milliseconds")
	flags.IntVar(&replicationFactor, "replication-factor", 0, "cap on TermProvider's reported follower list (0 = no cap)")
	cmd.MarkFlagRequired("cluster-file")
	cmd.MarkFlagRequired("node-id")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var clusterFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "print a cluster file's membership table without starting a replica",
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, version, err := atomix.LoadStaticCluster(clusterFile, "", atomix.Active)
			if err != nil {
				return fmt.Errorf("raftd: loading cluster file: %w", err)
			}
			fmt.Printf("version: %d\n", version)
			for _, p := range cluster.Members() {
				fmt.Printf("%s\t%s\n", p.Id, p.Endpoint)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clusterFile, "cluster-file", "", "path to the YAML cluster membership file (required)")
	cmd.MarkFlagRequired("cluster-file")
	return cmd
}
