package tally

import (
	"math/rand/v2"
	"testing"
)

func randomCounters(r *rand.Rand) Counters {
	return Counters{
		Total:        r.IntN(50),
		Final:        r.IntN(50),
		Count3DS:     r.IntN(50),
		CountCIA:     r.IntN(50),
		DSErr:        r.IntN(50),
		CIAErr:       r.IntN(50),
		CCIErr:       r.IntN(50),
		ConvertToCCI: r.IntN(2) == 1,
	}
}

func numeric(c Counters) Counters {
	c.ConvertToCCI = false
	return c
}

func TestCombineIsAssociative(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a, b, c := randomCounters(r), randomCounters(r), randomCounters(r)
		left := a.Combine(b).Combine(c)
		right := a.Combine(b.Combine(c))
		if left != right {
			t.Fatalf("associativity violated:\n%+v\n%+v", left, right)
		}
	}
}

func TestCombineIsCommutativeOnCounts(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 200; i++ {
		a, b := randomCounters(r), randomCounters(r)
		if numeric(a.Combine(b)) != numeric(b.Combine(a)) {
			t.Fatalf("commutativity violated for %+v and %+v", a, b)
		}
	}
}

func TestCombineKeepsReceiverFlag(t *testing.T) {
	base := Counters{ConvertToCCI: true}
	task := Counters{Final: 1, ConvertToCCI: false}
	if got := base.Combine(task); !got.ConvertToCCI || got.Final != 1 {
		t.Fatalf("unexpected combine result %+v", got)
	}
	if got := task.Combine(base); got.ConvertToCCI {
		t.Fatal("receiver flag must win")
	}
}

func TestCombineIdentity(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	a := randomCounters(r)
	if a.Combine(Counters{}) != a {
		t.Fatal("zero value must be the identity")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		c    Counters
		want Outcome
	}{
		{"nothing", Counters{Total: 3}, OutcomeNone},
		{"empty run", Counters{}, OutcomeNone},
		{"all", Counters{Total: 3, Final: 3}, OutcomeComplete},
		{"some", Counters{Total: 3, Final: 1}, OutcomePartial},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.Outcome(); got != tc.want {
				t.Fatalf("Outcome() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	c := Counters{DSErr: 1, CIAErr: 2, CCIErr: 3}
	if c.Errors() != 6 {
		t.Fatalf("Errors() = %d", c.Errors())
	}
}
