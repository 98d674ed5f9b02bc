package workload

import (
	"strings"
	"testing"

	"kvbench/internal/protocol"
)

func drain(g Generator) []Item {
	var items []Item
	for {
		item, ok := g.Next()
		if !ok {
			return items
		}
		items = append(items, item)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "bench_key_0000000000"},
		{42, "bench_key_0000000042"},
		{1234567890, "bench_key_1234567890"},
	}

	for _, tt := range tests {
		if got := Key(tt.index); got != tt.want {
			t.Errorf("Key(%d) = %s, want %s", tt.index, got, tt.want)
		}
	}
}

func TestPutSweep(t *testing.T) {
	items := drain(NewPutSweep(50, 32, NewSource(1)))

	if len(items) != 50 {
		t.Fatalf("expected 50 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Op != protocol.OpPut {
			t.Errorf("item %d: expected PUT, got %s", i, item.Op)
		}
		if item.Key != Key(i) {
			t.Errorf("item %d: expected key %s, got %s", i, Key(i), item.Key)
		}
		if len(item.Value) != 32 {
			t.Errorf("item %d: expected 32-byte value, got %d", i, len(item.Value))
		}
		if strings.Trim(item.Value, alphanumeric) != "" {
			t.Errorf("item %d: value %q is not alphanumeric", i, item.Value)
		}
	}
}

func TestGeneratorIsNotRestartable(t *testing.T) {
	g := NewGetSweep(3)
	drain(g)

	if _, ok := g.Next(); ok {
		t.Error("expected exhausted generator to stay exhausted")
	}
}

func TestKeysAreDeterministicAcrossGenerators(t *testing.T) {
	puts := drain(NewPutSweep(20, 8, nil))
	morePuts := drain(NewPutSweep(20, 8, nil))
	gets := drain(NewGetSweep(20))

	for i := range puts {
		if puts[i].Key != morePuts[i].Key || puts[i].Key != gets[i].Key {
			t.Errorf("index %d: keys differ: %s %s %s", i, puts[i].Key, morePuts[i].Key, gets[i].Key)
		}
		if gets[i].Op != protocol.OpGet || gets[i].Value != "" {
			t.Errorf("index %d: expected bare GET, got %+v", i, gets[i])
		}
	}
}

func TestSeededValuesAreReproducible(t *testing.T) {
	a := drain(NewPutSweep(10, 16, NewSource(7)))
	b := drain(NewPutSweep(10, 16, NewSource(7)))

	for i := range a {
		if a[i].Value != b[i].Value {
			t.Errorf("index %d: expected identical values for the same seed", i)
		}
	}
}

func TestMixedReadRatioExtremes(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  protocol.Opcode
	}{
		{"all reads", 1.0, protocol.OpGet},
		{"all writes", 0.0, protocol.OpPut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultMixedConfig()
			config.ReadRatio = tt.ratio
			items := drain(NewMixed(500, config, NewSource(3)))

			if len(items) != 500 {
				t.Fatalf("expected 500 items, got %d", len(items))
			}
			for i, item := range items {
				if item.Op != tt.want {
					t.Fatalf("item %d: expected %s, got %s", i, tt.want, item.Op)
				}
			}
		})
	}
}

func TestMixedShape(t *testing.T) {
	const n = 2000
	items := drain(NewMixed(n, DefaultMixedConfig(), NewSource(11)))

	reads := 0
	for _, item := range items {
		if !strings.HasPrefix(item.Key, KeyPrefix) {
			t.Fatalf("unexpected key %q", item.Key)
		}
		if item.Key > Key(n) {
			t.Fatalf("key %s beyond %s", item.Key, Key(n))
		}
		switch item.Op {
		case protocol.OpGet:
			reads++
		case protocol.OpPut:
			if len(item.Value) != DefaultMixedValueSize {
				t.Fatalf("expected %d-byte value, got %d", DefaultMixedValueSize, len(item.Value))
			}
		default:
			t.Fatalf("unexpected op %s", item.Op)
		}
	}

	ratio := float64(reads) / n
	if ratio < 0.7 || ratio > 0.9 {
		t.Errorf("expected roughly 80%% reads, got %.2f", ratio)
	}
}

func TestMixedKeyRange(t *testing.T) {
	config := DefaultMixedConfig()
	config.KeyRange = 2
	items := drain(NewMixed(200, config, NewSource(5)))

	for _, item := range items {
		if item.Key != Key(0) && item.Key != Key(1) {
			t.Fatalf("key %s outside configured range", item.Key)
		}
	}
}

func TestMixedLabel(t *testing.T) {
	if got := NewMixed(1, DefaultMixedConfig(), nil).Label(); got != "MIXED (80% reads)" {
		t.Errorf("unexpected label %q", got)
	}
	config := DefaultMixedConfig()
	config.ReadRatio = 0.5
	if got := NewMixed(1, config, nil).Label(); got != "MIXED (50% reads)" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestRandomString(t *testing.T) {
	r := NewSource(9)
	if s := RandomString(r, 0); s != "" {
		t.Errorf("expected empty string, got %q", s)
	}
	if s := RandomString(r, 64); len(s) != 64 {
		t.Errorf("expected 64 characters, got %d", len(s))
	}
}

func TestRanges(t *testing.T) {
	puts := drain(NewPutRange(100, 5, 4, NewSource(3)))
	gets := drain(NewGetRange(100, 5))

	if len(puts) != 5 || len(gets) != 5 {
		t.Fatalf("expected 5 items each, got %d puts and %d gets", len(puts), len(gets))
	}
	for i := range puts {
		want := Key(100 + i)
		if puts[i].Key != want || gets[i].Key != want {
			t.Errorf("index %d: expected key %s, got put=%s get=%s", i, want, puts[i].Key, gets[i].Key)
		}
	}

	if items := drain(NewGetRange(10, -1)); len(items) != 0 {
		t.Errorf("expected negative count to yield nothing, got %d items", len(items))
	}
}
