package assetgraph

import "testing"

func TestExportEmptyGraph(t *testing.T) {
	g := New(0)

	data := g.Export()
	if data.Nodes == nil || data.Links == nil {
		t.Fatal("export must return empty slices, not nil")
	}
	if len(data.Nodes) != 0 || len(data.Links) != 0 {
		t.Errorf("empty graph exported %d nodes %d links", len(data.Nodes), len(data.Links))
	}
}

func TestExportNodesAndLinks(t *testing.T) {
	g := New(0)
	g.RegisterFraudCase("10.0.0.1", "dev-1", "doc-1", []string{"login", "renew_id"})

	data := g.Export()

	// 3 asset nodes + 3 pattern-summary nodes.
	if len(data.Nodes) != 6 {
		t.Fatalf("nodes = %d, want 6", len(data.Nodes))
	}
	// 3 deduplicated asset pairs + 3 asset-sequence links.
	if len(data.Links) != 6 {
		t.Fatalf("links = %d, want 6", len(data.Links))
	}

	assetLinks, seqLinks := 0, 0
	for _, l := range data.Links {
		switch l.Type {
		case "asset-asset":
			assetLinks++
			if l.Strength != 1 {
				t.Errorf("asset link strength = %f, want 1", l.Strength)
			}
		case "asset-sequence":
			seqLinks++
			if l.Strength != 0.5 {
				t.Errorf("sequence link strength = %f, want 0.5", l.Strength)
			}
		default:
			t.Errorf("unexpected link type %q", l.Type)
		}
	}
	if assetLinks != 3 || seqLinks != 3 {
		t.Errorf("links = %d asset, %d sequence, want 3 and 3", assetLinks, seqLinks)
	}
}

func TestExportNodeTypesAndSize(t *testing.T) {
	g := New(0)
	for i := 0; i < 10; i++ {
		g.RegisterFraudCase("10.0.0.1", "", "", nil)
	}

	data := g.Export()
	if len(data.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(data.Nodes))
	}
	node := data.Nodes[0]
	if node.Type != "ip" {
		t.Errorf("type = %q, want ip", node.Type)
	}
	if node.Label != "IP: 10.0.0.1" {
		t.Errorf("label = %q", node.Label)
	}
	if node.FraudCount != 10 {
		t.Errorf("fraudCount = %d, want 10", node.FraudCount)
	}
	// 8 + 3*10 = 38, clamped to 30.
	if node.Size != 30 {
		t.Errorf("size = %d, want clamp 30", node.Size)
	}
}

func TestExportDeduplicatesSymmetricLinks(t *testing.T) {
	g := New(0)
	g.RegisterFraudCase("10.0.0.1", "dev-1", "", nil)
	g.RegisterFraudCase("10.0.0.1", "dev-1", "", nil)

	data := g.Export()
	assetLinks := 0
	for _, l := range data.Links {
		if l.Type == "asset-asset" {
			assetLinks++
		}
	}
	if assetLinks != 1 {
		t.Errorf("asset links = %d, want exactly 1 for the symmetric pair", assetLinks)
	}
}

func TestExportStats(t *testing.T) {
	g := New(0)
	g.RegisterFraudCase("10.0.0.1", "dev-1", "doc-1", nil)
	g.RegisterFraudCase("10.0.0.2", "dev-1", "", nil)

	stats := g.Export().Stats
	if stats.NetworkAddresses != 2 {
		t.Errorf("totalIps = %d, want 2", stats.NetworkAddresses)
	}
	if stats.Devices != 1 {
		t.Errorf("totalDevices = %d, want 1", stats.Devices)
	}
	if stats.Documents != 1 {
		t.Errorf("totalDocs = %d, want 1", stats.Documents)
	}
	if stats.FraudCases != 2 {
		t.Errorf("totalFraudCases = %d, want 2", stats.FraudCases)
	}
}
