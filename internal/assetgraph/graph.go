// Package assetgraph owns the in-memory graph of risky assets: network
// addresses, devices, and document fingerprints seen in confirmed fraud
// cases, plus their cross-links and past session sequences.
//
// All access is serialized by a sync.RWMutex. RegisterFraudCase is the sole
// mutator and runs as one critical section, so readers never observe a
// partially-linked case. Read paths copy what they return and never expose
// internal slices or maps.
package assetgraph

import (
	"fmt"
	"sync"

	"github.com/malkaabi/fraudlens/internal/sequence"
)

// Kind is one of the three asset namespaces. Namespaces are disjoint: an
// identifier lives in exactly one kind's map.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindDevice   Kind = "device"
	KindDocument Kind = "document"
)

// kinds fixes the iteration order everywhere the graph walks all three.
var kinds = [3]Kind{KindNetwork, KindDevice, KindDocument}

// Ref identifies one asset across namespaces.
type Ref struct {
	Kind Kind
	ID   string
}

// kindParams holds the per-kind scoring and export configuration. The
// device weight is highest: a reused device is the strongest fraud signal.
type kindParams struct {
	weight      int
	riskCap     int
	sharedCode  string
	similarCode string
	exportType  string
	labelPrefix string
	sharedTmpl  string // args: id, fraudCount, points
	similarTmpl string // args: percent, points
}

var params = map[Kind]kindParams{
	KindNetwork: {
		weight:      12,
		riskCap:     35,
		sharedCode:  "shared_ip_with_high_risk",
		similarCode: "sequence_like_past_fraud_ip",
		exportType:  "ip",
		labelPrefix: "IP: ",
		sharedTmpl:  "IP %s took part in %d confirmed fraud cases (+%d risk points).",
		similarTmpl: "Current session path is %d%% similar to past fraud sessions from the same IP (+%d points).",
	},
	KindDevice: {
		weight:      18,
		riskCap:     40,
		sharedCode:  "shared_device_with_high_risk",
		similarCode: "sequence_like_past_fraud_device",
		exportType:  "device",
		labelPrefix: "Device: ",
		sharedTmpl:  "Device %s is linked to %d confirmed fraud cases (+%d risk points).",
		similarTmpl: "Current session path is %d%% similar to past fraud sessions on the same device (+%d points).",
	},
	KindDocument: {
		weight:      12,
		riskCap:     30,
		sharedCode:  "shared_doc_with_high_risk",
		similarCode: "sequence_like_past_fraud_doc",
		exportType:  "doc",
		labelPrefix: "Doc: ",
		sharedTmpl:  "Document fingerprint %s was reused in %d confirmed fraud cases (+%d risk points).",
		similarTmpl: "Current session path is %d%% similar to past fraud sessions involving the same document (+%d points).",
	},
}

const (
	// MaxRisk caps the whole graph layer.
	MaxRisk = 50

	// similarityThreshold and similarityBonus govern the flat bonus added
	// when the current session resembles a past fraud sequence.
	similarityThreshold = 0.6
	similarityBonus     = 8

	// DefaultMaxSequences bounds pastSequences retention per asset. The
	// source appended forever; under sustained confirmation traffic that is
	// unbounded growth, so only the most recent N are kept.
	DefaultMaxSequences = 16
)

// record is the per-asset state. Guarded by the graph mutex.
type record struct {
	fraudCount   int
	sequences    [][]string
	related      map[Ref]struct{}
	relatedOrder []Ref // insertion order, for deterministic export
}

// Graph is the process-lifetime asset risk store.
type Graph struct {
	mu           sync.RWMutex
	assets       map[Kind]map[string]*record
	order        map[Kind][]string // insertion order per kind
	caseCount    int
	maxSequences int
}

// New creates an empty graph. maxSequences <= 0 selects the default
// retention bound.
func New(maxSequences int) *Graph {
	if maxSequences <= 0 {
		maxSequences = DefaultMaxSequences
	}
	g := &Graph{
		assets:       make(map[Kind]map[string]*record, len(kinds)),
		order:        make(map[Kind][]string, len(kinds)),
		maxSequences: maxSequences,
	}
	for _, k := range kinds {
		g.assets[k] = make(map[string]*record)
	}
	return g
}

// refs assembles the present identifiers in fixed kind order.
func refs(networkAddress, deviceID, documentHash string) []Ref {
	var out []Ref
	if networkAddress != "" {
		out = append(out, Ref{KindNetwork, networkAddress})
	}
	if deviceID != "" {
		out = append(out, Ref{KindDevice, deviceID})
	}
	if documentHash != "" {
		out = append(out, Ref{KindDocument, documentHash})
	}
	return out
}

// RegisterFraudCase records a confirmed fraud case. For every present
// identifier it bumps the fraud count, retains the session sequence, and
// links the asset symmetrically to the other identifiers of the case.
// Returns the number of assets touched; zero identifiers is a no-op.
func (g *Graph) RegisterFraudCase(networkAddress, deviceID, documentHash string, seq []string) int {
	assets := refs(networkAddress, deviceID, documentHash)
	if len(assets) == 0 {
		return 0
	}

	var stored []string
	if len(seq) > 0 {
		stored = append([]string(nil), seq...)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.caseCount++
	for _, ref := range assets {
		rec := g.getOrCreate(ref)
		rec.fraudCount++
		if stored != nil {
			rec.sequences = append(rec.sequences, stored)
			if len(rec.sequences) > g.maxSequences {
				rec.sequences = rec.sequences[len(rec.sequences)-g.maxSequences:]
			}
		}
		for _, other := range assets {
			if other != ref {
				rec.addRelation(other)
			}
		}
	}
	return len(assets)
}

// Result is the graph layer's contribution to an evaluation.
type Result struct {
	Score         int
	ReasonCodes   []string
	ReasonDetails []string
}

// Risk computes the graph contribution for the given identifiers and the
// current session sequence. Read-only; safe to call concurrently with
// other reads and serialized against RegisterFraudCase.
func (g *Graph) Risk(networkAddress, deviceID, documentHash string, seq []string) Result {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var res Result
	for _, ref := range refs(networkAddress, deviceID, documentHash) {
		rec, ok := g.assets[ref.Kind][ref.ID]
		if !ok || rec.fraudCount == 0 {
			continue
		}
		p := params[ref.Kind]

		base := p.weight * rec.fraudCount
		if base > p.riskCap {
			base = p.riskCap
		}
		res.Score += base
		res.ReasonCodes = append(res.ReasonCodes, p.sharedCode)
		res.ReasonDetails = append(res.ReasonDetails,
			fmt.Sprintf(p.sharedTmpl, ref.ID, rec.fraudCount, base))

		best := 0.0
		for _, past := range rec.sequences {
			if sim := sequence.Similarity(seq, past); sim > best {
				best = sim
			}
		}
		if best >= similarityThreshold {
			res.Score += similarityBonus
			res.ReasonCodes = append(res.ReasonCodes, p.similarCode)
			res.ReasonDetails = append(res.ReasonDetails,
				fmt.Sprintf(p.similarTmpl, int(best*100), similarityBonus))
		}
	}

	if res.Score > MaxRisk {
		res.Score = MaxRisk
	}
	return res
}

// FraudCount returns the recorded fraud count for one asset, zero if the
// asset is unknown.
func (g *Graph) FraudCount(kind Kind, id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.assets[kind][id]
	if !ok {
		return 0
	}
	return rec.fraudCount
}

// Counts reports per-kind asset counts and the total confirmed case count.
func (g *Graph) Counts() (perKind map[Kind]int, cases int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	perKind = make(map[Kind]int, len(kinds))
	for _, k := range kinds {
		perKind[k] = len(g.assets[k])
	}
	return perKind, g.caseCount
}

// getOrCreate returns the record for ref, creating it on first sight.
// Caller holds the write lock.
func (g *Graph) getOrCreate(ref Ref) *record {
	rec, ok := g.assets[ref.Kind][ref.ID]
	if !ok {
		rec = &record{related: make(map[Ref]struct{})}
		g.assets[ref.Kind][ref.ID] = rec
		g.order[ref.Kind] = append(g.order[ref.Kind], ref.ID)
	}
	return rec
}

// addRelation records other in the relation set, once.
func (r *record) addRelation(other Ref) {
	if _, ok := r.related[other]; ok {
		return
	}
	r.related[other] = struct{}{}
	r.relatedOrder = append(r.relatedOrder, other)
}
