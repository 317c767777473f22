package credit

import (
	"testing"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

func TestKiBRoundsUpSubKiBTransfers(t *testing.T) {
	if got := KiB(1); got != 1 {
		t.Fatalf("KiB(1) = %d, want 1", got)
	}
	if got := KiB(0); got != 0 {
		t.Fatalf("KiB(0) = %d, want 0", got)
	}
	if got := KiB(2048); got != 2 {
		t.Fatalf("KiB(2048) = %d, want 2", got)
	}
}

func TestUploadCreditsAppliesSectionMultiplier(t *testing.T) {
	section := &identity.Section{Name: "APPS", UploadMultiplier: 3}
	u := &identity.User{Username: "alice"}

	got := UploadCredits(u, section, nil, 4096, NoOverride)
	want := int64(4 * 3) // 4 KiB * 3x multiplier
	if got != want {
		t.Fatalf("UploadCredits = %d, want %d", got, want)
	}
}

func TestUploadCreditsGroupOverrideWins(t *testing.T) {
	section := &identity.Section{Name: "APPS", UploadMultiplier: 3}
	group := &identity.Group{
		Name: "vip",
		SectionOverrides: map[string]identity.SectionOverride{
			"APPS": {UploadMultiplier: 10},
		},
	}
	u := &identity.User{Username: "alice"}

	got := UploadCredits(u, section, group, 1024, NoOverride)
	if got != 10 {
		t.Fatalf("UploadCredits with group override = %d, want 10", got)
	}
}

func TestDownloadCostFreeLeechIsAlwaysZero(t *testing.T) {
	section := &identity.Section{Name: "0DAY", DownloadMultiplier: 5, FreeLeech: true}

	for _, bytes := range []int64{0, 1, 1024, 1 << 30} {
		if got := DownloadCost(section, nil, bytes, NoOverride); got != 0 {
			t.Fatalf("DownloadCost(%d) in free-leech section = %d, want 0", bytes, got)
		}
	}
}

func TestRatioOverrideComposesMultiplicatively(t *testing.T) {
	section := &identity.Section{Name: "APPS", UploadMultiplier: 2}
	u := &identity.User{Username: "alice"}
	override := RatioOverride{UploadBonus: 1.5, CostMultiplier: 1}

	got := UploadCredits(u, section, nil, 1024, override)
	want := int64(1 * 2 * 1.5) // 3
	if got != want {
		t.Fatalf("UploadCredits with rule override = %d, want %d", got, want)
	}
}

func TestTryConsumeLeavesBalanceUnchangedOnFailure(t *testing.T) {
	ok, balance := TryConsume(10, 20)
	if ok {
		t.Fatal("expected TryConsume to fail when balance < cost")
	}
	if balance != 10 {
		t.Fatalf("expected unchanged balance 10, got %d", balance)
	}
}

func TestTryConsumeSucceeds(t *testing.T) {
	ok, balance := TryConsume(100, 40)
	if !ok || balance != 60 {
		t.Fatalf("TryConsume(100, 40) = %v, %d, want true, 60", ok, balance)
	}
}

func TestAwardIsPure(t *testing.T) {
	before := int64(5)
	after := Award(before, 10)
	if before != 5 {
		t.Fatal("Award must not mutate its input")
	}
	if after != 15 {
		t.Fatalf("Award(5, 10) = %d, want 15", after)
	}
}
