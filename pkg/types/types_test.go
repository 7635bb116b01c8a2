package types

import "testing"

func TestSideOpposite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		side Side
		want Side
	}{
		{Buy, Sell},
		{Sell, Buy},
	}

	for _, tt := range tests {
		if got := tt.side.Opposite(); got != tt.want {
			t.Errorf("Side(%q).Opposite() = %q, want %q", tt.side, got, tt.want)
		}
	}
}

func TestNewsEventMagnitude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   NewsEvent
		want float64
	}{
		{"symmetric", NewsEvent{MagnitudeTop: 2, MagnitudeBottom: 2}, 2},
		{"asymmetric", NewsEvent{MagnitudeTop: 4, MagnitudeBottom: -2}, 1},
		{"zero", NewsEvent{}, 0},
	}

	for _, tt := range tests {
		if got := tt.ev.Magnitude(); got != tt.want {
			t.Errorf("%s: Magnitude() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewsEventHalflife(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   NewsEvent
		want float64
	}{
		{"positive", NewsEvent{DecayHalflifeS: 30}, 30},
		{"zero defaults to one", NewsEvent{DecayHalflifeS: 0}, 1},
		{"negative defaults to one", NewsEvent{DecayHalflifeS: -5}, 1},
	}

	for _, tt := range tests {
		if got := tt.ev.Halflife(); got != tt.want {
			t.Errorf("%s: Halflife() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOrderIsRemoved(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		o    Order
		want bool
	}{
		{"open with qty", Order{RemainingQty: 10}, false},
		{"zero qty", Order{RemainingQty: 0}, true},
		{"negative qty", Order{RemainingQty: -1}, true},
	}

	for _, tt := range tests {
		if got := tt.o.IsRemoved(); got != tt.want {
			t.Errorf("%s: IsRemoved() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOrderMarkFilled(t *testing.T) {
	t.Parallel()

	o := Order{RemainingQty: 0, Status: StatusFilled}
	o.MarkFilled()

	if !o.IsRemoved() {
		t.Error("order should be removed after MarkFilled")
	}
	if o.Status != StatusFilled {
		t.Errorf("Status = %q, want %q", o.Status, StatusFilled)
	}
}

func TestOrderMarkCancelled(t *testing.T) {
	t.Parallel()

	o := Order{RemainingQty: 5, Status: StatusOpen}
	o.MarkCancelled()

	if !o.IsRemoved() {
		t.Error("order should be removed after MarkCancelled")
	}
	if o.Status != StatusCancelled {
		t.Errorf("Status = %q, want %q", o.Status, StatusCancelled)
	}
}
