package assetgraph

import "fmt"

// Node is one exported graph node. Size grows with the fraud count so the
// dashboard can scale hot assets visually.
type Node struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	FraudCount int    `json:"fraudCount"`
	Size       int    `json:"size"`
}

// Link is one exported undirected edge.
type Link struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Type     string  `json:"type"`
	Strength float64 `json:"strength"`
}

// Stats summarizes the graph for the export payload.
type Stats struct {
	NetworkAddresses int `json:"totalIps"`
	Devices          int `json:"totalDevices"`
	Documents        int `json:"totalDocs"`
	FraudCases       int `json:"totalFraudCases"`
}

// ExportData is the full dashboard payload.
type ExportData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Stats Stats  `json:"stats"`
}

const (
	nodeBaseSize  = 8
	nodeSizeStep  = 3
	nodeMaxSize   = 30
	assetStrength = 1
	seqStrength   = 0.5
)

// Export renders the whole graph: one node per asset, one link per unique
// unordered related pair, and a synthetic pattern-summary node per asset
// that has recorded sequences.
func (g *Graph) Export() ExportData {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data := ExportData{Nodes: []Node{}, Links: []Link{}}
	seen := make(map[[2]string]bool)

	for _, kind := range kinds {
		p := params[kind]
		for _, id := range g.order[kind] {
			rec := g.assets[kind][id]

			data.Nodes = append(data.Nodes, Node{
				ID:         id,
				Label:      p.labelPrefix + id,
				Type:       p.exportType,
				FraudCount: rec.fraudCount,
				Size:       nodeSize(rec.fraudCount),
			})

			// Relations are symmetric, so each pair shows up twice during
			// the walk; the unordered key keeps exactly one link.
			for _, other := range rec.relatedOrder {
				key := pairKey(id, other.ID)
				if seen[key] {
					continue
				}
				seen[key] = true
				data.Links = append(data.Links, Link{
					Source:   id,
					Target:   other.ID,
					Type:     "asset-asset",
					Strength: assetStrength,
				})
			}

			if n := len(rec.sequences); n > 0 {
				seqID := "seq_" + id
				data.Nodes = append(data.Nodes, Node{
					ID:         seqID,
					Label:      fmt.Sprintf("Seq: %d patterns", n),
					Type:       "sequence",
					FraudCount: n,
					Size:       nodeSize(n),
				})
				data.Links = append(data.Links, Link{
					Source:   id,
					Target:   seqID,
					Type:     "asset-sequence",
					Strength: seqStrength,
				})
			}
		}
	}

	data.Stats = Stats{
		NetworkAddresses: len(g.assets[KindNetwork]),
		Devices:          len(g.assets[KindDevice]),
		Documents:        len(g.assets[KindDocument]),
		FraudCases:       g.caseCount,
	}
	return data
}

func nodeSize(count int) int {
	size := nodeBaseSize + count*nodeSizeStep
	if size > nodeMaxSize {
		size = nodeMaxSize
	}
	return size
}

// pairKey builds an order-independent map key for an asset pair. Asset
// namespaces are disjoint, so raw IDs are unambiguous.
func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
