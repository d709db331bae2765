package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankLeaderboard(t *testing.T) {
	accounts := []Account{
		{Username: "Axe", Balance: 150000},
		{Username: "Ben", Balance: 300000},
		{Username: "Bob", Balance: 150000},
		{Username: "Cuz", Balance: 200000},
	}

	ranked := RankLeaderboard(accounts, 0)

	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"Ben", "Cuz", "Axe", "Bob"}, usernames(ranked))
	assert.Equal(t, "Axe", accounts[0].Username, "input must not be reordered")

	assert.Equal(t, []string{"Ben", "Cuz"}, usernames(RankLeaderboard(accounts, 2)))
	assert.Len(t, RankLeaderboard(accounts, 10), 4)
}

func TestTotalBalance(t *testing.T) {
	assert.Equal(t, int64(0), TotalBalance(nil))
	assert.Equal(t, int64(350), TotalBalance([]Account{{Balance: 100}, {Balance: 250}}))
}

func TestAggregateVictims(t *testing.T) {
	records := []ActivityView{
		view("carl", "dan", PenaltyAmount),
		view("carl", "erin", PenaltyAmount),
		view("carl", "fay", PenaltyAmount),
		view("carl", "dan", 500),
	}

	stats := AggregateVictims(records, PenaltyAmount)

	require.Len(t, stats, 1)
	assert.Equal(t, VictimStat{Username: "carl", VictimCount: 3, TotalLost: 60000}, stats[0])
}

func TestAggregateVictimsOrdersByCount(t *testing.T) {
	records := []ActivityView{
		view("ann", "x", PenaltyAmount),
		view("bo", "x", PenaltyAmount),
		view("bo", "y", PenaltyAmount),
		view("cy", "x", PenaltyAmount),
	}

	stats := AggregateVictims(records, PenaltyAmount)

	require.Len(t, stats, 3)
	assert.Equal(t, "bo", stats[0].Username)
	assert.Equal(t, "ann", stats[1].Username)
	assert.Equal(t, "cy", stats[2].Username)
	assert.Empty(t, AggregateVictims(nil, PenaltyAmount))
}

func TestAggregateDaily(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	records := []Activity{
		{Amount: 100, Timestamp: time.Date(2026, 10, 15, 1, 0, 0, 0, time.UTC)},
		{Amount: 250, Timestamp: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)},
		{Amount: 40, Timestamp: time.Date(2026, 10, 13, 23, 59, 0, 0, time.UTC)},
		{Amount: 999, Timestamp: time.Date(2026, 10, 12, 23, 59, 0, 0, time.UTC)},
	}

	series := AggregateDaily(records, now, 3)

	assert.Equal(t, []DailyStat{
		{Date: "2026-10-13", Transfers: 1, Volume: 40},
		{Date: "2026-10-14", Transfers: 0, Volume: 0},
		{Date: "2026-10-15", Transfers: 2, Volume: 350},
	}, series)
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), WindowStart(now, 7))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WindowStart(now, 0))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "200,000 µPatrons", FormatMicropatrons(200000))
	assert.Equal(t, "999 µPatrons", FormatMicropatrons(999))
	assert.Equal(t, "1,983,711 µPatrons", FormatMicropatrons(1983711))
	assert.Equal(t, "$8,185.96", FormatDollars(1983711))
	assert.Equal(t, "$825.32", FormatDollars(200000))
	assert.Equal(t, "$0.00", FormatDollars(0))
	assert.Equal(t, "200,000 µPatrons ($825.32)", FormatWithDollars(200000))
	assert.Equal(t, "20,000", FormatNumber(20000))
	assert.Equal(t, "-1,500", FormatNumber(-1500))
}

func TestActivityViewTag(t *testing.T) {
	v := view("alice", "bob", 10)
	v.Tag("alice")
	assert.Equal(t, DirectionSent, v.Type)
	v.Tag("bob")
	assert.Equal(t, DirectionReceived, v.Type)
}

func TestNewActivity(t *testing.T) {
	a := NewActivity("a", "b", 42)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, int64(42), a.Amount)
	assert.Equal(t, time.UTC, a.Timestamp.Location())
}

func view(from, to string, amount int64) ActivityView {
	return ActivityView{
		Activity:     Activity{FromUserID: from + "-id", ToUserID: to + "-id", Amount: amount},
		FromUsername: from,
		ToUsername:   to,
	}
}

func usernames(accounts []Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Username
	}
	return out
}
