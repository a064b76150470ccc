package naming

import (
	"testing"

	"darayyaconnect/infra-core/internal/infragraph"
)

func TestNormalizeCandidate(t *testing.T) {
	stored, display, score, ok := NormalizeCandidate("type", " Water_Tank ")
	if !ok {
		t.Fatalf("expected ok")
	}
	if stored != "water_tank" {
		t.Fatalf("expected stored lowercased and trimmed, got %q", stored)
	}
	if display != "Water Tank" {
		t.Fatalf("expected humanized display, got %q", display)
	}
	if score < 0 {
		t.Fatalf("expected non-negative score, got %d", score)
	}
}

func TestChooseBestDisplayName_PrefersOperatorName(t *testing.T) {
	name, ok := ChooseBestDisplayName([]Candidate{
		{Name: "water_tank", Source: "type"},
		{Name: "WT-100", Source: "serial"},
		{Name: "Hamidiyeh Tank", Source: "operator"},
	})
	if !ok {
		t.Fatalf("expected ok")
	}
	if name != "Hamidiyeh Tank" {
		t.Fatalf("expected operator name to win, got %q", name)
	}
}

func TestChooseBestDisplayName_RejectsGarbage(t *testing.T) {
	name, ok := ChooseBestDisplayName([]Candidate{
		{Name: "123456", Source: "serial"},
		{Name: "___", Source: "operator"},
	})
	if ok {
		t.Fatalf("expected ok=false, got name=%q", name)
	}
}

func TestNodeLabelFallsBackToType(t *testing.T) {
	n := infragraph.Node{Type: infragraph.NodeTransformer}
	if got := NodeLabel(n); got != "Transformer" {
		t.Fatalf("label = %q, want Transformer", got)
	}
}

func TestNodeLabelUsesSerialOverType(t *testing.T) {
	serial := "WT-100"
	n := infragraph.Node{Type: infragraph.NodeWaterTank, SerialNumber: &serial}
	if got := NodeLabel(n); got != "WT-100" {
		t.Fatalf("label = %q, want WT-100", got)
	}
}

func TestLineLabel(t *testing.T) {
	l := infragraph.Line{Type: infragraph.LineWaterPipeMain}
	if got := LineLabel(l); got != "Water Pipe Main" {
		t.Fatalf("label = %q, want Water Pipe Main", got)
	}
}
