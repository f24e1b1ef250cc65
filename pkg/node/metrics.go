package node

import "github.com/prometheus/client_golang/prometheus"

// Ambient node-level metrics, package-level vars registered once at
// init.
var (
	blocksApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of blocks applied to the chain",
			Name:      "blocks_applied",
			Namespace: "neofull",
		},
	)
	mempoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of verified transactions currently held in the mempool",
			Name:      "mempool_size",
			Namespace: "neofull",
		},
	)
	peerCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of Ready P2P peers",
			Name:      "peer_count",
			Namespace: "neofull",
		},
	)
)

func init() {
	prometheus.MustRegister(blocksApplied, mempoolSize, peerCount)
}

// sampleMempoolSize updates the mempool_size gauge; called once per
// applied block, the same cadence blocksApplied advances on.
func (n *Node) sampleMempoolSize() {
	mempoolSize.Set(float64(n.chain.GetMemPool().Count()))
}
