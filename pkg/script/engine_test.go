package script

import (
	"context"
	"testing"
)

func TestNopEngineAllowsEverything(t *testing.T) {
	var e Engine = NopEngine{}
	d := e.EvaluateCommand(context.Background(), "alice", "RETR", "file.zip")
	if !d.Allow {
		t.Fatal("NopEngine should allow all commands")
	}
	adj := e.EvaluateRatio(context.Background(), "alice", "/warez", true)
	if adj.CostMultiplier != 1 || adj.CreditMultiplier != 1 {
		t.Fatalf("expected identity multipliers, got %+v", adj)
	}
}

type denyAllEngine struct{}

func (denyAllEngine) EvaluateCommand(context.Context, string, string, string) Decision {
	return Decision{Allow: false, Reason: "scripted denial"}
}
func (denyAllEngine) EvaluateRatio(context.Context, string, string, bool) RatioAdjustment {
	return RatioAdjustment{CostMultiplier: 2, CreditMultiplier: 0.5}
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder()
	if _, ok := h.Current().(NopEngine); !ok {
		t.Fatal("expected NopEngine default")
	}

	prev := h.Swap(denyAllEngine{})
	if _, ok := prev.(NopEngine); !ok {
		t.Fatal("expected NopEngine returned as previous")
	}

	d := h.Current().EvaluateCommand(context.Background(), "alice", "DELE", "x")
	if d.Allow {
		t.Fatal("expected swapped engine to deny")
	}
}

func TestHolderSwapNilFallsBackToNop(t *testing.T) {
	h := NewHolder()
	h.Swap(denyAllEngine{})
	h.Swap(nil)
	if _, ok := h.Current().(NopEngine); !ok {
		t.Fatal("expected Swap(nil) to install NopEngine")
	}
}
