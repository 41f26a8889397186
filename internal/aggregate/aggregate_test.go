package aggregate

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SHUNKURANARI/excel/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(site, role string, day int, expenses ...core.ExpenseEntry) core.WorkRecord {
	return core.WorkRecord{
		RecordNumber:    "r",
		Date:            core.NewDate(2024, 4, day),
		Site:            site,
		Shift:           "日勤",
		Role:            role,
		Rate:            dec("20000"),
		OvertimeHours:   dec("1.5"),
		EarlyStartHours: dec("0.5"),
		LaborCount:      dec("1"),
		RateAdjustment:  dec("500"),
		Expenses:        expenses,
	}
}

func expense(c core.ExpenseCategory, amount string) core.ExpenseEntry {
	return core.ExpenseEntry{Category: c, Label: c.Label(), Amount: dec(amount)}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(core.NewRecordView(nil).All(), BySite)
	assert.Equal(t, 0, got.Len())

	got = Aggregate(nil, BySite)
	assert.Equal(t, 0, got.Len())
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	records := []core.WorkRecord{
		record("C現場", "鳶", 1),
		record("A現場", "鳶", 1),
		record("C現場", "大工", 2),
		record("B現場", "鳶", 3),
	}
	got := Aggregate(slices.Values(records), BySite)

	var sites []string
	for b := range got.Values() {
		sites = append(sites, b.Site)
	}
	assert.Equal(t, []string{"C現場", "A現場", "B現場"}, sites)
	assert.Equal(t, []GroupKey{KeyOf("C現場"), KeyOf("A現場"), KeyOf("B現場")}, got.Keys())
}

func TestAggregateSums(t *testing.T) {
	records := []core.WorkRecord{
		record("A現場", "鳶", 1, expense(core.Transit, "300"), expense(core.Taxi, "1200")),
		record("A現場", "鳶", 2, expense(core.Transit, "450")),
		record("A現場", "大工", 2),
	}
	got := Aggregate(slices.Values(records), BySite)
	require.Equal(t, 1, got.Len())

	b, ok := got.Get(KeyOf("A現場"))
	require.True(t, ok)
	assert.Equal(t, 3, b.Count)
	assert.True(t, b.RateSum.Equal(dec("60000")))
	assert.True(t, b.OvertimeHours.Equal(dec("4.5")))
	assert.True(t, b.ExtraHours().Equal(dec("6")))
	assert.True(t, b.RateAdjustment.Equal(dec("1500")))
	assert.True(t, b.LaborCount.Equal(dec("3")))
	assert.True(t, b.Expenses.Get(core.Transit).Equal(dec("750")))
	assert.True(t, b.Expenses.Get(core.Taxi).Equal(dec("1200")))
	assert.True(t, b.Expenses.Sum(core.Transit, core.Flight, core.Taxi, core.Vehicle).Equal(dec("1950")))
	assert.Equal(t, "鳶", b.Role, "descriptive fields come from the first record")
}

func TestAggregateSumsMatchRecordTotals(t *testing.T) {
	records := []core.WorkRecord{
		record("A現場", "鳶", 1, expense(core.Lease, "800")),
		record("B現場", "鳶", 1, expense(core.Other, "100"), expense(core.Supplies, "50")),
		record("A現場", "大工", 3, expense(core.Lease, "200")),
		record("B現場", "大工", 4),
	}
	for _, keyFn := range []KeyFunc{BySite, BySiteRole, ByDateSiteShiftRoleRate} {
		got := Aggregate(slices.Values(records), keyFn)

		count := 0
		var perCategory CategorySums
		for b := range got.Values() {
			count += b.Count
			for _, c := range core.Categories() {
				perCategory = perCategory.Add(c, b.Expenses.Get(c))
			}
		}
		assert.Equal(t, len(records), count)
		assert.True(t, perCategory.Get(core.Lease).Equal(dec("1000")))
		assert.True(t, perCategory.Get(core.Other).Equal(dec("100")))
		assert.True(t, perCategory.Get(core.Supplies).Equal(dec("50")))
	}
}

func TestAggregateUnknownCategoryIgnored(t *testing.T) {
	unknown := core.ExpenseEntry{Category: core.UnknownCategory, Label: "宿泊費", Amount: dec("9000")}
	got := Aggregate(slices.Values([]core.WorkRecord{record("A現場", "鳶", 1, unknown)}), BySite)

	b, _ := got.Get(KeyOf("A現場"))
	assert.Equal(t, 1, b.Count)
	for _, c := range core.Categories() {
		assert.True(t, b.Expenses.Get(c).IsZero(), "category %s", c)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	records := []core.WorkRecord{
		record("A現場", "鳶", 1, expense(core.Transit, "300")),
		record("A現場", "鳶", 1, expense(core.Transit, "300")),
	}
	before := slices.Clone(records)
	_ = Aggregate(slices.Values(records), ByDateSiteShiftRoleRate)
	assert.Equal(t, before, records)
}

func TestAggregateDeterministic(t *testing.T) {
	records := []core.WorkRecord{
		record("A現場", "鳶", 1), record("B現場", "鳶", 2), record("A現場", "大工", 1),
	}
	first := Aggregate(slices.Values(records), BySiteRole)
	second := Aggregate(slices.Values(records), BySiteRole)
	assert.Equal(t, first.Keys(), second.Keys())
}

// totals renders the order-independent part of every bucket, by key.
func totals(got *Buckets) map[GroupKey]string {
	out := make(map[GroupKey]string, got.Len())
	for k, b := range got.All() {
		sums := fmt.Sprintf("n=%d rate=%s late=%s leave=%s over=%s early=%s labor=%s adj=%s",
			b.Count, b.RateSum, b.LateHours, b.EarlyLeaveHours, b.OvertimeHours,
			b.EarlyStartHours, b.LaborCount, b.RateAdjustment)
		for _, c := range core.Categories() {
			sums += fmt.Sprintf(" %s=%s", c, b.Expenses.Get(c))
		}
		out[k] = sums
	}
	return out
}

// firstSeen lists the keys of records in order of first occurrence.
func firstSeen(records []core.WorkRecord, key KeyFunc) []GroupKey {
	var keys []GroupKey
	for _, r := range records {
		if k := key(r); !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestAggregatePermutationKeepsTotals(t *testing.T) {
	late := record("B現場", "鳶", 2, expense(core.Lease, "800"))
	late.LateHours = dec("0.25")
	records := []core.WorkRecord{
		record("A現場", "鳶", 1, expense(core.Transit, "300"), expense(core.Taxi, "1200")),
		late,
		record("A現場", "大工", 1, expense(core.Other, "100")),
		record("C現場", "鳶", 3),
		record("A現場", "鳶", 4, expense(core.Transit, "450")),
		record("B現場", "大工", 2, expense(core.Supplies, "50")),
		record("C現場", "鳶", 5, expense(core.Vehicle, "2000")),
	}

	for _, key := range []KeyFunc{BySite, BySiteRole} {
		want := totals(Aggregate(slices.Values(records), key))

		reversed := slices.Clone(records)
		slices.Reverse(reversed)
		shuffled := slices.Clone(records)
		rand.New(rand.NewPCG(7, 42)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		for name, perm := range map[string][]core.WorkRecord{"reversed": reversed, "shuffled": shuffled} {
			got := Aggregate(slices.Values(perm), key)
			assert.Equal(t, want, totals(got), name)
			assert.Equal(t, firstSeen(perm, key), got.Keys(), name)
		}
	}
}

func TestKeyOfNoCollision(t *testing.T) {
	assert.NotEqual(t, KeyOf("a|b", "c"), KeyOf("a", "b|c"))
	assert.Equal(t, KeyOf("x", "y"), KeyOf("x", "y"))

	r := record("A現場", "鳶", 1)
	r2 := r
	r2.Rate = dec("20000.0")
	assert.Equal(t, ByDateSiteShiftRoleRate(r), ByDateSiteShiftRoleRate(r2))
}

func TestOrderedMapSetKeepsPosition(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)

	var keys []string
	var vals []int
	for k, v := range m.All() {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	assert.Equal(t, []string{"b", "a"}, keys)
	assert.Equal(t, []int{3, 2}, vals)
}
