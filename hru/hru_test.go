package hru

import "testing"

func TestAddClipsAtZeroAndReportsClip(t *testing.T) {
	h := New(1, Properties{AreaKM2: 1})
	h.Add(StoPonded, 0.01)
	clipped := h.Add(StoPonded, -0.02)
	if h.V[StoPonded] != 0 {
		t.Fatalf("storage = %v, want 0", h.V[StoPonded])
	}
	want := 0.01
	if diff := clipped - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("clipped = %v, want %v", clipped, want)
	}
	if h.ClippedSum != want {
		t.Errorf("ClippedSum = %v, want %v", h.ClippedSum, want)
	}
}

func TestAddNeverLeavesStorageNegative(t *testing.T) {
	h := New(1, Properties{})
	h.Add(StoSnow, -5)
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate() after clipped withdrawal: %v", err)
	}
	if h.V[StoSnow] != 0 {
		t.Errorf("StoSnow = %v, want 0", h.V[StoSnow])
	}
}

func TestTotalStorageSumsAllCompartments(t *testing.T) {
	h := New(1, Properties{})
	h.Add(StoCanopy, 0.1)
	h.Add(StoSoilTop, 0.2)
	h.Add(StoSoilDeep, 0.3)
	if got, want := h.TotalStorage(), 0.6; got < want-1e-12 || got > want+1e-12 {
		t.Errorf("TotalStorage() = %v, want %v", got, want)
	}
}

func TestClipDeficitProportionalScalesAllWithdrawalsEqually(t *testing.T) {
	h := New(1, Properties{})
	h.Add(StoSoilTop, 1.0)
	withdrawals := map[string]float64{"et": -0.6, "perc": -0.6}
	scale := h.ClipDeficitProportional(StoSoilTop, withdrawals)
	want := 1.0 / 1.2
	if diff := scale - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("scale = %v, want %v", scale, want)
	}
	for k, v := range withdrawals {
		if v < -0.6*want-1e-9 || v > -0.6*want+1e-9 {
			t.Errorf("withdrawals[%q] = %v, want %v", k, v, -0.6*want)
		}
	}
}

func TestClipDeficitProportionalIsNoopWhenWithinBudget(t *testing.T) {
	h := New(1, Properties{})
	h.Add(StoSoilTop, 1.0)
	withdrawals := map[string]float64{"et": -0.3}
	scale := h.ClipDeficitProportional(StoSoilTop, withdrawals)
	if scale != 1.0 {
		t.Errorf("scale = %v, want 1.0", scale)
	}
	if withdrawals["et"] != -0.3 {
		t.Errorf("withdrawals[et] = %v, want -0.3 (unchanged)", withdrawals["et"])
	}
}

func TestValidateReportsNegativeStorage(t *testing.T) {
	h := New(1, Properties{})
	h.V[StoPonded] = -1e-3
	if err := h.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for negative storage")
	}
}
