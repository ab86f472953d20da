package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(date time.Time, state, fips string, cases, deaths int64) Observation {
	return Observation{Date: date, StateName: state, CountyCode: fips, Cases: cases, Deaths: deaths}
}

func TestBuildCountyDaily_DateThenCodeOrder(t *testing.T) {
	jan21 := day(2020, time.January, 21)
	jan22 := day(2020, time.January, 22)
	rows := []Observation{
		obs(jan21, "California", "06001", 1, 0),
		obs(jan21, "California", "06013", 2, 0),
		obs(jan22, "California", "06001", 3, 1),
	}

	got, dropped := BuildCountyDaily(rows)

	want := []CountyDaily{
		{CountyCode: "06001", Date: jan21, DateStr: "2020-01-21", TotalCases: 1, TotalDeaths: 0},
		{CountyCode: "06013", Date: jan21, DateStr: "2020-01-21", TotalCases: 2, TotalDeaths: 0},
		{CountyCode: "06001", Date: jan22, DateStr: "2020-01-22", TotalCases: 3, TotalDeaths: 1},
	}
	assert.Zero(t, dropped)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("county rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCountyDaily_UnsortedInputAndRawCodes(t *testing.T) {
	jan21 := day(2020, time.January, 21)
	jan22 := day(2020, time.January, 22)
	rows := []Observation{
		obs(jan22, "Alabama", "1001", 5, 1),
		obs(jan21, "Alabama", "1003", 2, 0),
		obs(jan21, "Alabama", "01001", 4, 0),
		obs(jan21, "Alabama", "1001.0", 1, 1),
		obs(jan21, "New York", "", 100, 10),
	}

	got, dropped := BuildCountyDaily(rows)

	require.Len(t, got, 3)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "01001", got[0].CountyCode)
	assert.Equal(t, int64(5), got[0].TotalCases)
	assert.Equal(t, int64(1), got[0].TotalDeaths)
	assert.Equal(t, "01003", got[1].CountyCode)
	assert.Equal(t, "2020-01-22", got[2].DateStr)
}

func TestBuildStateDaily_SumsPerStateAndDate(t *testing.T) {
	jan21 := day(2020, time.January, 21)
	jan22 := day(2020, time.January, 22)
	rows := []Observation{
		obs(jan22, "Washington", "53061", 1, 0),
		obs(jan21, "Washington", "53061", 1, 0),
		obs(jan22, "California", "06001", 3, 1),
		obs(jan22, "California", "06013", 4, 2),
		obs(jan21, "California", "06001", 2, 0),
	}

	got, dropped := BuildStateDaily(rows)

	want := []StateDaily{
		{StateAbbrev: "CA", Date: jan21, DateStr: "2020-01-21", TotalCases: 2, TotalDeaths: 0},
		{StateAbbrev: "WA", Date: jan21, DateStr: "2020-01-21", TotalCases: 1, TotalDeaths: 0},
		{StateAbbrev: "CA", Date: jan22, DateStr: "2020-01-22", TotalCases: 7, TotalDeaths: 3},
		{StateAbbrev: "WA", Date: jan22, DateStr: "2020-01-22", TotalCases: 1, TotalDeaths: 0},
	}
	assert.Zero(t, dropped)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStateDaily_InvalidCountsNeverTurnTotalsNegative(t *testing.T) {
	jan21 := day(2020, time.January, 21)
	rows := []Observation{
		obs(jan21, "Texas", "48201", 5, 1),
		obs(jan21, "Texas", "48113", ParseCount("-9"), ParseCount("-1")),
		obs(jan21, "Texas", "48029", ParseCount("1e30"), ParseCount("2")),
	}

	got, dropped := BuildStateDaily(rows)

	assert.Zero(t, dropped)
	want := []StateDaily{
		{StateAbbrev: "TX", Date: jan21, DateStr: "2020-01-21", TotalCases: 5, TotalDeaths: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildStateDaily_DropsTerritories(t *testing.T) {
	jan21 := day(2020, time.January, 21)
	rows := []Observation{
		obs(jan21, "Puerto Rico", "72127", 9, 1),
		obs(jan21, "Guam", "66010", 3, 0),
		obs(jan21, "Texas", "48201", 4, 0),
	}

	got, dropped := BuildStateDaily(rows)

	require.Len(t, got, 1)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, "TX", got[0].StateAbbrev)
	for _, r := range got {
		assert.NotEqual(t, "PR", r.StateAbbrev)
	}

	// Territories still count at county level.
	counties, _ := BuildCountyDaily(rows)
	assert.Len(t, counties, 3)
}

func TestBuildTables_EmptyInput(t *testing.T) {
	states, droppedStates := BuildStateDaily(nil)
	counties, droppedCounties := BuildCountyDaily(nil)

	assert.Empty(t, states)
	assert.Empty(t, counties)
	assert.Zero(t, droppedStates)
	assert.Zero(t, droppedCounties)
}

func TestAggregateByKey_UniqueKeysAndSums(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	states := []string{"California", "Texas", "Ohio", "Puerto Rico"}
	start := day(2020, time.March, 1)

	rows := make([]Observation, 0, 500)
	for range 500 {
		rows = append(rows, obs(
			start.AddDate(0, 0, rng.Intn(10)),
			states[rng.Intn(len(states))],
			"",
			int64(rng.Intn(1000)),
			int64(rng.Intn(50)),
		))
	}

	groups := AggregateByKey(rows, StateKey)

	type sums struct{ cases, deaths int64 }
	expected := make(map[GroupKey]sums)
	for _, r := range rows {
		code, ok := StateKey(r)
		if !ok {
			continue
		}
		k := GroupKey{Date: r.Date, Geo: code}
		s := expected[k]
		s.cases += r.Cases
		s.deaths += r.Deaths
		expected[k] = s
	}

	require.Len(t, groups, len(expected))
	seen := make(map[GroupKey]bool, len(groups))
	for i, g := range groups {
		assert.False(t, seen[g.Key], "duplicate key %v", g.Key)
		seen[g.Key] = true
		assert.Equal(t, expected[g.Key].cases, g.Cases)
		assert.Equal(t, expected[g.Key].deaths, g.Deaths)
		if i > 0 {
			assert.Negative(t, groups[i-1].Key.Compare(g.Key), "groups out of order at %d", i)
		}
	}
}

func TestAggregateByKey_OrderIndependentResult(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	start := day(2021, time.January, 1)
	codes := []string{"06001", "06013", "48201", "1001"}

	rows := make([]Observation, 0, 200)
	for range 200 {
		rows = append(rows, obs(start.AddDate(0, 0, rng.Intn(5)), "California", codes[rng.Intn(len(codes))], int64(rng.Intn(100)), 0))
	}

	first := AggregateByKey(rows, CountyKey)

	shuffled := append([]Observation(nil), rows...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	second := AggregateByKey(shuffled, CountyKey)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("aggregation depends on input order (-first +second):\n%s", diff)
	}
}

func TestAggregateByKey_FirstDateIsFirstGroup(t *testing.T) {
	first := day(2020, time.January, 21)
	rows := []Observation{
		obs(first.AddDate(0, 0, 2), "Washington", "53061", 3, 0),
		obs(first.AddDate(0, 0, 1), "Washington", "53061", 2, 0),
		obs(first, "Washington", "53061", 1, 0),
	}

	groups := AggregateByKey(rows, CountyKey)

	require.NotEmpty(t, groups)
	assert.Equal(t, "2020-01-21", ToISODateString(groups[0].Key.Date))
}

func TestAggregateByKey_RejectedRowsLeaveNoGroup(t *testing.T) {
	rows := []Observation{obs(day(2020, time.May, 1), "Texas", "", 1, 0)}
	groups := AggregateByKey(rows, func(Observation) (string, bool) { return "", false })
	assert.Empty(t, groups)
}
