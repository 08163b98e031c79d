package summary

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/feed"
	"github.com/moonwalker/linewatch/pkg/parse"
)

var statusDescriptions = map[int]string{
	1:  "Not started",
	2:  "First half",
	3:  "Half-time break",
	4:  "Second half",
	5:  "Extra time",
	6:  "Penalty shootout",
	7:  "Finished",
	8:  "Finished",
	9:  "Postponed",
	10: "Canceled",
	11: "To be announced",
	12: "Interrupted",
	13: "Abandoned",
	14: "Suspended",
}

var weatherDescriptions = map[string]string{
	"1":  "Sunny",
	"2":  "Partly Cloudy",
	"3":  "Cloudy",
	"4":  "Overcast",
	"5":  "Foggy",
	"6":  "Light Rain",
	"7":  "Rain",
	"8":  "Heavy Rain",
	"9":  "Snow",
	"10": "Thunder",
}

// StatusDescription translates the feed's numeric match status.
func StatusDescription(id int) string {
	s, ok := statusDescriptions[id]
	if !ok {
		return fmt.Sprintf("Unknown (ID: %d)", id)
	}
	return s
}

// FormatAlert renders one firing as notification text: alert banner,
// the rule's key detail, then the match summary block.
func FormatAlert(evt feed.Event, payload alerts.Payload, name string) string {
	header := []string{
		"=====================================",
		fmt.Sprintf("\U0001F514 %s ALERT \U0001F514", strings.ToUpper(name)),
		"=====================================",
		"",
	}

	lines := matchLines(evt)
	detail := payloadDetail(payload)
	if len(detail) > 0 {
		// the detail sits right under the summary heading
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[0], detail)
		out = append(out, lines[1:]...)
		lines = out
	}

	return strings.Join(append(header, lines...), "\n")
}

// FormatMatch renders the match summary block on its own.
func FormatMatch(evt feed.Event) string {
	return strings.Join(matchLines(evt), "\n")
}

// payloadDetail picks the line shown right under the alert banner. The
// rule's own detail text wins, with the threshold appended for context,
// otherwise the payload's fields are listed in name order.
func payloadDetail(p alerts.Payload) string {
	if p == nil {
		return ""
	}

	if detail, ok := p["detail"]; ok {
		s := parse.ParseString(detail)
		if threshold, ok := p["threshold"]; ok {
			return fmt.Sprintf("%s (threshold: %v)", s, threshold)
		}
		return s
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		if k != "type" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", capitalize(k), p[k]))
	}

	return strings.Join(parts, "\n")
}

// matchLines accepts both feed shapes: the structured summary document
// (teams.home.name, status.id) and the flat merged record (home_team,
// status_id).
func matchLines(evt feed.Event) []string {
	lines := []string{"----- MATCH SUMMARY -----"}

	if id := evt.ID(); len(id) > 0 {
		lines = append(lines, "Match ID: "+id)
	}

	competition := first(evt, "competition.name", "competition").String()
	country := first(evt, "competition.country", "country").String()
	if len(competition) > 0 {
		if len(country) > 0 {
			lines = append(lines, fmt.Sprintf("Competition: %s (%s)", competition, country))
		} else {
			lines = append(lines, "Competition: "+competition)
		}
	}

	home := first(evt, "teams.home.name", "home_team").String()
	away := first(evt, "teams.away.name", "away_team").String()
	if len(home) == 0 {
		home = "Unknown"
	}
	if len(away) == 0 {
		away = "Unknown"
	}
	lines = append(lines, fmt.Sprintf("Match: %s vs %s", home, away))

	lines = append(lines, scoreLine(evt))

	if status := first(evt, "status.id", "status_id"); status.Exists() {
		lines = append(lines, fmt.Sprintf("Status: %s (Status ID: %s)",
			StatusDescription(int(status.Int())), status.String()))
	}

	if kickoff := first(evt, "start_time", "scheduled").String(); len(kickoff) > 0 {
		lines = append(lines, "Kickoff: "+kickoff)
	}

	if odds := oddsLines(evt); len(odds) > 0 {
		lines = append(lines, "", "--- MATCH BETTING ODDS ---")
		lines = append(lines, odds...)
	}

	if env := environmentLines(evt); len(env) > 0 {
		lines = append(lines, "", "--- MATCH ENVIRONMENT ---")
		lines = append(lines, env...)
	}

	return lines
}

func scoreLine(evt feed.Event) string {
	cur := evt.Get("teams.home.score.current")
	if cur.Exists() {
		return fmt.Sprintf("Score: %d - %d (HT: %d - %d)",
			cur.Int(),
			evt.Get("teams.away.score.current").Int(),
			evt.Get("teams.home.score.halftime").Int(),
			evt.Get("teams.away.score.halftime").Int())
	}

	// flat shape: score[2] and score[3] are [live, halftime, ...] pairs
	sd := evt.Get("score")
	if sd.IsArray() {
		arr := sd.Array()
		if len(arr) > 3 {
			hs, as := arr[2].Array(), arr[3].Array()
			if len(hs) > 1 && len(as) > 1 {
				return fmt.Sprintf("Score: %d - %d (HT: %d - %d)",
					hs[0].Int(), as[0].Int(), hs[1].Int(), as[1].Int())
			}
		}
	}

	return "Score: 0 - 0 (HT: 0 - 0)"
}

func oddsLines(evt feed.Event) []string {
	lines := make([]string, 0, 3)

	if row := moneylineRow(evt); len(row) > 0 {
		lines = append(lines, row)
	}
	if row := spreadRow(evt); len(row) > 0 {
		lines = append(lines, row)
	}
	if row := overUnderRow(evt); len(row) > 0 {
		lines = append(lines, row)
	}

	return lines
}

func moneylineRow(evt feed.Event) string {
	ftr := evt.Get("odds.full_time_result")
	if len(ftr.Get("home").String()) > 0 {
		return fmt.Sprintf("ML: Home %s | Draw %s | Away %s%s",
			americanOdds(ftr.Get("home").Float(), false),
			americanOdds(ftr.Get("draw").Float(), false),
			americanOdds(ftr.Get("away").Float(), false),
			minuteStamp(ftr.Get("match_time")))
	}

	row := pickBest(evt.Get("odds.eu"))
	if !row.IsArray() {
		return ""
	}
	arr := row.Array() // [timestamp, minute, home, draw, away]
	return fmt.Sprintf("ML: Home %s | Draw %s | Away %s%s",
		americanOdds(arr[2].Float(), false),
		americanOdds(arr[3].Float(), false),
		americanOdds(arr[4].Float(), false),
		minuteStamp(arr[1]))
}

func spreadRow(evt feed.Event) string {
	sp := evt.Get("odds.spread")
	if len(sp.Get("home").String()) > 0 {
		return fmt.Sprintf("Spread: Home %s | Hcap %s | Away %s%s",
			americanOdds(sp.Get("home").Float(), true),
			sp.Get("handicap").String(),
			americanOdds(sp.Get("away").Float(), true),
			minuteStamp(sp.Get("match_time")))
	}

	row := pickBest(evt.Get("odds.asia"))
	if !row.IsArray() {
		return ""
	}
	arr := row.Array() // [timestamp, minute, home, handicap, away]
	return fmt.Sprintf("Spread: Home %s | Hcap %s | Away %s%s",
		americanOdds(arr[2].Float(), true),
		arr[3].String(),
		americanOdds(arr[4].Float(), true),
		minuteStamp(arr[1]))
}

func overUnderRow(evt feed.Event) string {
	pou := evt.Get("odds.primary_over_under")
	if len(pou.Get("over").String()) > 0 {
		return fmt.Sprintf("O/U: Over %s | Line %s | Under %s",
			americanOdds(pou.Get("over").Float(), true),
			pou.Get("line").String(),
			americanOdds(pou.Get("under").Float(), true))
	}

	row := pickBest(evt.Get("odds.bs"))
	if !row.IsArray() {
		return ""
	}
	arr := row.Array() // [timestamp, minute, over, line, under]
	return fmt.Sprintf("O/U: Over %s | Line %s | Under %s%s",
		americanOdds(arr[2].Float(), true),
		arr[3].String(),
		americanOdds(arr[4].Float(), true),
		minuteStamp(arr[1]))
}

// pickBest prefers the row quoted between match minutes 4 and 6, the
// window where opening lines have settled, then the lowest minute.
func pickBest(list gjson.Result) gjson.Result {
	if !list.IsArray() {
		return gjson.Result{}
	}

	rows := make([]gjson.Result, 0)
	for _, r := range list.Array() {
		if r.IsArray() && len(r.Array()) >= 5 {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return gjson.Result{}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rowMinute(rows[i]) < rowMinute(rows[j])
	})

	for _, r := range rows {
		m := rowMinute(r)
		if m >= 4 && m <= 6 {
			return r
		}
	}

	return rows[0]
}

// rowMinute reads the match minute column, non-numeric sorts last.
func rowMinute(r gjson.Result) int {
	m := r.Array()[1]
	switch m.Type {
	case gjson.Number:
		return int(m.Int())
	case gjson.String:
		n, err := strconv.Atoi(m.Str)
		if err != nil {
			return 1000
		}
		return n
	}
	return 1000
}

func environmentLines(evt feed.Event) []string {
	env := evt.Get("environment")
	if !env.IsObject() {
		return nil
	}

	lines := make([]string, 0, 4)

	if w := env.Get("weather"); len(w.String()) > 0 {
		lines = append(lines, "Weather: "+weatherDescription(w.String()))
	}

	if t := env.Get("temperature"); len(t.String()) > 0 {
		lines = append(lines, "Temperature: "+temperatureLine(t.String(), env.Get("temperature_unit").String()))
	}

	if h := env.Get("humidity"); len(h.String()) > 0 {
		s := h.String()
		if !strings.Contains(s, "%") {
			s = fmt.Sprintf("%d%%", int(h.Float()))
		}
		lines = append(lines, "Humidity: "+s)
	}

	if w := env.Get("wind"); len(w.String()) > 0 {
		lines = append(lines, "Wind: "+windLine(w.String()))
	}

	return lines
}

func weatherDescription(code string) string {
	s, ok := weatherDescriptions[code]
	if !ok {
		return fmt.Sprintf("Unknown (%s)", code)
	}
	return s
}

// temperatureLine renders the feed's celsius reading in Fahrenheit,
// values it cannot parse pass through untouched.
func temperatureLine(raw, unit string) string {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "°C"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return raw
	}
	if strings.Contains(raw, "°C") || unit == "C" {
		v = v*9/5 + 32
	}
	return fmt.Sprintf("%.1f°F", v)
}

func windLine(raw string) string {
	if !strings.HasSuffix(raw, "m/s") {
		return raw
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "m/s")), 64)
	if err != nil {
		return raw
	}
	mph := ms * 2.237
	return fmt.Sprintf("%s, %.1f mph", windStrength(mph), mph)
}

// windStrength maps mph to the Beaufort scale word.
func windStrength(mph float64) string {
	switch {
	case mph < 1:
		return "Calm"
	case mph < 4:
		return "Light Air"
	case mph < 8:
		return "Light Breeze"
	case mph < 13:
		return "Gentle Breeze"
	case mph < 19:
		return "Moderate Breeze"
	case mph < 25:
		return "Fresh Breeze"
	case mph < 32:
		return "Strong Breeze"
	case mph < 39:
		return "Near Gale"
	case mph < 47:
		return "Gale"
	case mph < 55:
		return "Strong Gale"
	case mph < 64:
		return "Storm"
	case mph < 73:
		return "Violent Storm"
	}
	return "Hurricane"
}

// hkToAmerican converts Hong Kong odds to American.
func hkToAmerican(hk float64) int {
	if hk == 0 {
		return 0
	}
	if hk >= 1 {
		return int(math.Round(hk * 100))
	}
	return int(math.Round(-100 / hk))
}

// decimalToAmerican converts decimal odds to American.
func decimalToAmerican(d float64) int {
	if d == 0 || d == 1 {
		return 0
	}
	if d >= 2 {
		return int(math.Round((d - 1) * 100))
	}
	return int(math.Round(-100 / (d - 1)))
}

// americanOdds renders a quote in signed American form, "+0" when the
// quote is missing or unusable. Spread and over/under quotes arrive in
// Hong Kong odds, moneyline quotes in decimal.
func americanOdds(raw float64, hongKong bool) string {
	if raw == 0 {
		return "+0"
	}

	var amd int
	if hongKong {
		amd = hkToAmerican(raw)
	} else {
		amd = decimalToAmerican(raw)
	}
	if amd == 0 {
		return "+0"
	}

	return fmt.Sprintf("%+d", amd)
}

func minuteStamp(m gjson.Result) string {
	s := m.String()
	if len(s) == 0 {
		return ""
	}
	return fmt.Sprintf(" (@%s')", s)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func first(evt feed.Event, paths ...string) gjson.Result {
	for _, p := range paths {
		r := evt.Get(p)
		if r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}
