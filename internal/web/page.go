// Package web renders the single game page.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/session"
)

const (
	Title    = "Galactic Survival"
	Subtitle = "Mine, rest, travel and trade your way across the stars. Keep your health, oxygen and fuel above zero."
)

var printer = message.NewPrinter(language.English)

// Number formats n with thousands separators.
func Number(n int) string {
	return printer.Sprintf("%d", n)
}

// Render writes the full page for v with the given status code. A page that
// fails to render is answered with a plain 500 and the error is returned.
func Render(w http.ResponseWriter, r *http.Request, status int, v session.View) error {
	var renderErr error
	templ.Handler(Page(v),
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			renderErr = err
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "page render failed", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
	return renderErr
}

// Briefing is the short mission summary shown under the leaderboard.
var Briefing = [][2]string{
	{"Goal", "Survive while exploring planets."},
	{"Actions", "Mine, Rest, Travel, Trade."},
	{"Challenges", "Asteroid fields, alien attacks, system failures."},
}

// Page is the whole document: notices, the mission panel and the sidebar.
func Page(v session.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<!doctype html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+Title+`</title><style>`+stylesheet+`</style></head><body>`)
		_, _ = io.WriteString(w, `<main><h1>`+Title+`</h1><p class="subtitle">`+templ.EscapeString(Subtitle)+`</p>`)

		if err := Notices(v.Notices).Render(ctx, w); err != nil {
			return err
		}
		var mission templ.Component
		switch {
		case v.State == nil:
			mission = StartForm("Start Mission")
		case v.Status == session.StatusGameOver:
			mission = templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				if err := StatusPanel(*v.State).Render(ctx, w); err != nil {
					return err
				}
				return StartForm("Start New Mission").Render(ctx, w)
			})
		default:
			mission = templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				if err := StatusPanel(*v.State).Render(ctx, w); err != nil {
					return err
				}
				return ActionButtons(games.ListActions()).Render(ctx, w)
			})
		}
		if err := mission.Render(ctx, w); err != nil {
			return err
		}
		_, _ = io.WriteString(w, `</main>`)

		if err := Sidebar(v.Leaderboard).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Notices lists the messages produced by the last interaction.
func Notices(notices []session.Notice) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(notices) == 0 {
			return nil
		}
		_, _ = io.WriteString(w, `<ul class="notices">`)
		for _, n := range notices {
			_, _ = io.WriteString(w, `<li class="notice notice-`+templ.EscapeString(n.Level)+`">`+templ.EscapeString(n.Text)+`</li>`)
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

// StartForm asks for a player name.
func StartForm(label string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<form class="start" method="post" action="/mission">`+
			`<label for="player_name">Enter your name</label>`+
			`<input id="player_name" name="player_name" type="text" autocomplete="off">`+
			`<button type="submit">`+templ.EscapeString(label)+`</button></form>`)
		return err
	})
}

// StatusPanel shows the ship's gauges and progress.
func StatusPanel(st games.PlayerState) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<section class="status"><h2>Mission Status: `+templ.EscapeString(st.PlayerName)+`</h2><dl>`)
		for _, row := range [][2]string{
			{"Credits", Number(st.Credits)},
			{"Oxygen", strconv.Itoa(st.Oxygen) + "%"},
			{"Fuel", strconv.Itoa(st.Fuel) + "%"},
			{"Health", strconv.Itoa(st.Health) + "%"},
			{"Distance Traveled", Number(st.DistanceTraveled) + " light years"},
			{"Days Survived", Number(st.DaysSurvived)},
			{"Current Planet", fmt.Sprintf("Planet %d", st.CurrentPlanet)},
		} {
			_, _ = io.WriteString(w, `<dt>`+row[0]+`</dt><dd>`+templ.EscapeString(row[1])+`</dd>`)
		}
		_, _ = io.WriteString(w, `</dl>`)
		_, err := io.WriteString(w, fmt.Sprintf(
			`<label for="health">Health</label><progress id="health" max="1" value="%.2f">%d%%</progress></section>`,
			st.HealthRatio(), st.Health))
		return err
	})
}

// ActionButtons renders one submit button per action, in menu order.
func ActionButtons(specs []games.ActionSpec) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<form class="actions" method="post" action="/action"><h2>Actions</h2>`)
		for _, s := range specs {
			_, _ = io.WriteString(w, `<button type="submit" name="action" value="`+templ.EscapeString(string(s.ID))+`">`+
				templ.EscapeString(s.Name)+`</button>`)
		}
		_, err := io.WriteString(w, `</form>`)
		return err
	})
}

// Sidebar holds the leaderboard and the rules summary.
func Sidebar(entries []games.LeaderboardEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<aside>`)
		if err := Leaderboard(entries).Render(ctx, w); err != nil {
			return err
		}
		_, _ = io.WriteString(w, `<section class="rules"><h2>Mission Briefing</h2><ul>`)
		for _, line := range Briefing {
			_, _ = io.WriteString(w, `<li><strong>`+line[0]+`:</strong> `+templ.EscapeString(line[1])+`</li>`)
		}
		_, _ = io.WriteString(w, `</ul></section><section class="help"><h2>How to Play</h2><ul>`)
		for _, s := range games.ListActions() {
			_, _ = io.WriteString(w, `<li><strong>`+templ.EscapeString(s.Name)+`</strong>: `+templ.EscapeString(s.Effects)+`</li>`)
		}
		_, err := io.WriteString(w, `<li>Each action takes a day and may trigger a random hazard.</li>`+
			`<li>The mission ends when health, oxygen or fuel reaches zero.</li></ul></section></aside>`)
		return err
	})
}

// Leaderboard lists the best finished missions.
func Leaderboard(entries []games.LeaderboardEntry) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<section class="leaderboard"><h2>Leaderboard</h2>`)
		if len(entries) == 0 {
			_, err := io.WriteString(w, `<p>`+templ.EscapeString(session.EmptyLeaderboardText)+`</p></section>`)
			return err
		}
		_, _ = io.WriteString(w, `<ol>`)
		for _, e := range entries {
			_, _ = io.WriteString(w, `<li><span class="name">`+templ.EscapeString(e.PlayerName)+`</span> `+
				`<span class="days">`+Number(e.DaysSurvived)+` days</span> `+
				`<span class="distance">`+Number(e.DistanceTraveled)+` ly</span></li>`)
		}
		_, err := io.WriteString(w, `</ol></section>`)
		return err
	})
}

const stylesheet = `body{display:flex;gap:2rem;font-family:system-ui,sans-serif;background:#0b1021;color:#e6e9f2;margin:2rem}` +
	`main{flex:3}aside{flex:1}h1{margin-top:0}.subtitle{color:#9aa3bd}` +
	`.notices{list-style:none;padding:0}.notice{padding:.5rem 1rem;margin:.25rem 0;border-radius:4px}` +
	`.notice-success{background:#1d4d2b}.notice-warning{background:#5c4a12}.notice-error{background:#6b1d1d}.notice-info{background:#1d3a6b}` +
	`dl{display:grid;grid-template-columns:max-content auto;gap:.25rem 1rem}dt{color:#9aa3bd}dd{margin:0}` +
	`progress{width:100%}.actions button,.start button{margin:.25rem;padding:.5rem 1rem}`
