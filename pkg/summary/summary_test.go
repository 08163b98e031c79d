package summary

// $ go test -v pkg/summary/*.go

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/feed"
)

const summaryShape = `{
	"match_id": "m42",
	"status": {"id": 2, "description": "First half", "match_time": 12},
	"teams": {
		"home": {"name": "Arsenal", "score": {"current": 2, "halftime": 1}},
		"away": {"name": "Chelsea", "score": {"current": 1, "halftime": 0}}
	},
	"competition": {"name": "Premier League", "country": "England"},
	"start_time": "2026-03-01 15:00",
	"odds": {
		"full_time_result": {"home": 2.5, "draw": 3.4, "away": 1.8, "match_time": 6},
		"spread": {"handicap": 0.5, "home": 0.95, "away": 0.90, "match_time": 6},
		"primary_over_under": {"line": 3.5, "over": 0.85, "under": 1.05}
	},
	"environment": {"weather": 2, "temperature": "25°C", "humidity": 60, "wind": "3.5m/s"}
}`

const flatShape = `{
	"id": "m77",
	"home_team": "Leeds",
	"away_team": "Derby",
	"competition": "Championship",
	"country": "England",
	"status_id": 4,
	"score": [4, 0, [2, 1], [1, 1]],
	"odds": {
		"eu": [[1700000000, "2", 2.0, 3.2, 4.1], [1700000060, "5", 2.5, 3.4, 1.8]],
		"bs": [[1700000060, "5", 0.85, 3.5, 1.05]]
	},
	"environment": {"weather": "7", "temperature": "25°C", "humidity": "60%", "wind": "3.5m/s"}
}`

func TestFormatAlertSummaryShape(t *testing.T) {
	payload := alerts.Payload{
		"type":      "OU3",
		"line":      4.0,
		"value":     4.0,
		"threshold": 3.0,
		"detail":    "Over/Under Line: 4.00",
	}

	text := FormatAlert(feed.Event(summaryShape), payload, "OU3")

	assert.Contains(t, text, "\U0001F514 OU3 ALERT \U0001F514")
	assert.Contains(t, text, "Over/Under Line: 4.00 (threshold: 3)")
	assert.Contains(t, text, "Match ID: m42")
	assert.Contains(t, text, "Competition: Premier League (England)")
	assert.Contains(t, text, "Match: Arsenal vs Chelsea")
	assert.Contains(t, text, "Score: 2 - 1 (HT: 1 - 0)")
	assert.Contains(t, text, "Status: First half (Status ID: 2)")
	assert.Contains(t, text, "Kickoff: 2026-03-01 15:00")
}

func TestFormatAlertGenericPayload(t *testing.T) {
	payload := alerts.Payload{"type": "REDCARD", "minute": 87, "player": "Diaz"}

	text := FormatAlert(feed.Event(summaryShape), payload, "REDCARD")

	assert.Contains(t, text, "REDCARD ALERT")
	assert.Contains(t, text, "Minute: 87")
	assert.Contains(t, text, "Player: Diaz")
}

func TestFormatMatchOddsConversion(t *testing.T) {
	text := FormatMatch(feed.Event(summaryShape))

	// moneyline arrives decimal: 2.5 -> +150, 3.4 -> +240, 1.8 -> -125
	assert.Contains(t, text, "ML: Home +150 | Draw +240 | Away -125 (@6')")
	// spread and over/under arrive Hong Kong: 0.95 -> -105, 0.90 -> -111
	assert.Contains(t, text, "Spread: Home -105 | Hcap 0.5 | Away -111 (@6')")
	assert.Contains(t, text, "O/U: Over -118 | Line 3.5 | Under +105")
}

func TestFormatMatchFlatShape(t *testing.T) {
	text := FormatMatch(feed.Event(flatShape))

	assert.Contains(t, text, "Match ID: m77")
	assert.Contains(t, text, "Competition: Championship (England)")
	assert.Contains(t, text, "Match: Leeds vs Derby")
	assert.Contains(t, text, "Score: 2 - 1 (HT: 1 - 1)")
	assert.Contains(t, text, "Status: Second half (Status ID: 4)")

	// the raw eu rows carry minutes 2 and 5, the settled window wins
	assert.Contains(t, text, "ML: Home +150 | Draw +240 | Away -125 (@5')")
	assert.Contains(t, text, "O/U: Over -118 | Line 3.5 | Under +105 (@5')")
}

func TestFormatMatchEnvironment(t *testing.T) {
	text := FormatMatch(feed.Event(flatShape))

	assert.Contains(t, text, "Weather: Rain")
	assert.Contains(t, text, "Temperature: 77.0°F")
	assert.Contains(t, text, "Humidity: 60%")
	assert.Contains(t, text, "Wind: Light Breeze, 7.8 mph")

	// numeric weather code and bare humidity from the summary shape
	text = FormatMatch(feed.Event(summaryShape))
	assert.Contains(t, text, "Weather: Partly Cloudy")
	assert.Contains(t, text, "Humidity: 60%")
}

func TestFormatMatchMinimalEvent(t *testing.T) {
	text := FormatMatch(feed.Event(`{"event_id": "m1"}`))

	assert.Contains(t, text, "Match ID: m1")
	assert.Contains(t, text, "Match: Unknown vs Unknown")
	assert.Contains(t, text, "Score: 0 - 0 (HT: 0 - 0)")
	assert.NotContains(t, text, "BETTING ODDS")
	assert.NotContains(t, text, "ENVIRONMENT")
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "Not started", StatusDescription(1))
	assert.Equal(t, "Half-time break", StatusDescription(3))
	assert.Equal(t, "Finished", StatusDescription(7))
	assert.Equal(t, "Finished", StatusDescription(8))
	assert.Equal(t, "Suspended", StatusDescription(14))
	assert.Equal(t, "Unknown (ID: 99)", StatusDescription(99))
}

func TestOddsConversions(t *testing.T) {
	assert.Equal(t, 108, hkToAmerican(1.08))
	assert.Equal(t, -118, hkToAmerican(0.85))
	assert.Equal(t, 0, hkToAmerican(0))

	assert.Equal(t, 150, decimalToAmerican(2.5))
	assert.Equal(t, -125, decimalToAmerican(1.8))
	assert.Equal(t, 0, decimalToAmerican(1))
	assert.Equal(t, 0, decimalToAmerican(0))

	assert.Equal(t, "+0", americanOdds(0, false))
	assert.Equal(t, "+150", americanOdds(2.5, false))
	assert.Equal(t, "-118", americanOdds(0.85, true))
}

func TestWindStrength(t *testing.T) {
	assert.Equal(t, "Calm", windStrength(0.5))
	assert.Equal(t, "Light Breeze", windStrength(7.8))
	assert.Equal(t, "Gentle Breeze", windStrength(8))
	assert.Equal(t, "Hurricane", windStrength(80))
}

func TestFormatAlertWorksWithoutPayloadDetail(t *testing.T) {
	text := FormatAlert(feed.Event(flatShape), nil, "OU3")

	require.NotEmpty(t, text)
	assert.Contains(t, text, "OU3 ALERT")
	assert.Contains(t, text, "----- MATCH SUMMARY -----")
}
