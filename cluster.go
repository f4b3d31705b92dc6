package atomix

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Peer is one member of the replicated cluster as seen by the Cluster
// collaborator.
type Peer struct {
	Id       NodeId `yaml:"id"`
	Endpoint string `yaml:"endpoint"`
}

// MarshalLogObject lets zap log a Peer directly (zap.Object/zap.Array
// fields), e.g. when a transport logs every dial/redial attempt.
func (p Peer) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("id", string(p.Id))
	e.AddString("endpoint", p.Endpoint)
	return nil
}

type peerArray []Peer

func (a peerArray) MarshalLogArray(e zapcore.ArrayEncoder) error {
	for _, p := range a {
		if err := e.AppendObject(p); err != nil {
			return err
		}
	}
	return nil
}

// Cluster is the external collaborator exposing local identity and the
// membership table. It is read-only from the core's perspective: dynamic
// reconfiguration is out of scope.
type Cluster interface {
	LocalID() NodeId
	LocalType() NodeType
	Members() []Peer
	Member(id NodeId) (Peer, bool)
}

// staticCluster is the reference Cluster implementation: a fixed peer table
// loaded once from a YAML document and never mutated afterwards.
type staticCluster struct {
	localID   NodeId
	localType NodeType
	members   []Peer
	byID      map[NodeId]Peer
}

// clusterFile is the on-disk shape read by LoadStaticCluster.
type clusterFile struct {
	NodeID string `yaml:"node_id"`
	Peers  []Peer `yaml:"peers"`
}

// LoadStaticCluster reads a cluster membership file and returns a read-only
// Cluster collaborator for localID, bumping the opaque version counter once.
// This loader is the one place in the repo that assigns the version counter
// a value; nothing else computes or advances it.
func LoadStaticCluster(path string, localID NodeId, localType NodeType) (Cluster, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("atomix: reading cluster file: %w", err)
	}
	var file clusterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("atomix: parsing cluster file: %w", err)
	}
	c := &staticCluster{
		localID:   localID,
		localType: localType,
		members:   file.Peers,
		byID:      make(map[NodeId]Peer, len(file.Peers)),
	}
	for _, p := range file.Peers {
		c.byID[p.Id] = p
	}
	return c, 1, nil
}

// NewStaticCluster builds a Cluster collaborator directly from a peer list,
// for tests and in-process multi-replica simulations.
func NewStaticCluster(localID NodeId, localType NodeType, members []Peer) Cluster {
	c := &staticCluster{localID: localID, localType: localType, members: members, byID: map[NodeId]Peer{}}
	for _, p := range members {
		c.byID[p.Id] = p
	}
	return c
}

func (c *staticCluster) LocalID() NodeId     { return c.localID }
func (c *staticCluster) LocalType() NodeType { return c.localType }
func (c *staticCluster) Members() []Peer     { return c.members }

func (c *staticCluster) Member(id NodeId) (Peer, bool) {
	p, ok := c.byID[id]
	return p, ok
}
