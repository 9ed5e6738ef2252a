package ui

import (
	"fmt"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"usage-report/internal/domain"
	"usage-report/internal/service/report"
)

func page(title string, body ...gomponents.Node) gomponents.Node {
	return html.HTML(
		html.Lang("en"),
		html.Head(
			html.Meta(html.Charset("utf-8")),
			html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
			html.TitleEl(gomponents.Text(title)),
			html.StyleEl(gomponents.Raw(pageCSS)),
		),
		html.Body(
			html.Main(
				html.Div(
					html.Class("topbar"),
					html.Div(
						html.H1(gomponents.Text("Usage Report")),
						html.P(html.Class("muted"), gomponents.Text("Usage metrics across your organization")),
					),
					html.Form(
						html.Method("post"),
						html.Action("/ui/refresh"),
						html.Button(html.Type("submit"), gomponents.Text("Refresh Data")),
					),
				),
				gomponents.Group(body),
			),
		),
	)
}

func dashboardPage(overall *report.OverallMetrics, clientTypes []report.ClientTypeUsage, topUsers []report.UserUsage) gomponents.Node {
	return page("Usage Report",
		metricCards(overall),
		html.H2(gomponents.Text("Usage by Client Type")),
		clientTypeTable(clientTypes),
		html.H2(gomponents.Text("Top Users by Messages")),
		leaderboard(topUsers),
	)
}

func errorPage(err error) gomponents.Node {
	causes := make([]gomponents.Node, 0, len(domain.LikelyCauses()))
	for _, c := range domain.LikelyCauses() {
		causes = append(causes, html.Li(gomponents.Text(c)))
	}
	return page("Usage Report — Error",
		html.Div(
			html.Class("error"),
			html.H2(gomponents.Text("Error fetching data")),
			html.P(gomponents.Text(err.Error())),
			html.P(gomponents.Text("Please ensure:")),
			html.Ul(gomponents.Group(causes)),
		),
	)
}

func metricCards(m *report.OverallMetrics) gomponents.Node {
	card := func(label, value string) gomponents.Node {
		return html.Div(
			html.Class("card"),
			html.P(html.Class("muted"), gomponents.Text(label)),
			html.Strong(gomponents.Text(value)),
		)
	}
	return html.Div(
		html.Class("cards"),
		card("Total Users", fmt.Sprintf("%d", m.TotalUsers)),
		card("Total Messages", fmt.Sprintf("%d", m.TotalMessages)),
		card("Chat Conversations", fmt.Sprintf("%d", m.TotalConversations)),
		card("Credits Used", fmt.Sprintf("%.1f", m.TotalCredits)),
		card("Overage Credits", fmt.Sprintf("%.1f", m.TotalOverageCredits)),
	)
}

func clientTypeTable(rows []report.ClientTypeUsage) gomponents.Node {
	body := make([]gomponents.Node, 0, len(rows))
	for _, row := range rows {
		body = append(body, html.Tr(
			html.Td(gomponents.Text(row.ClientType)),
			html.Td(gomponents.Text(fmt.Sprintf("%d", row.UniqueUsers))),
			html.Td(gomponents.Text(fmt.Sprintf("%d", row.TotalMessages))),
			html.Td(gomponents.Text(fmt.Sprintf("%d", row.TotalConversations))),
			html.Td(gomponents.Text(fmt.Sprintf("%.1f", row.TotalCredits))),
		))
	}
	return html.Table(
		html.THead(html.Tr(
			html.Th(gomponents.Text("Client Type")),
			html.Th(gomponents.Text("Users")),
			html.Th(gomponents.Text("Messages")),
			html.Th(gomponents.Text("Conversations")),
			html.Th(gomponents.Text("Credits")),
		)),
		html.TBody(gomponents.Group(body)),
	)
}

func leaderboard(users []report.UserUsage) gomponents.Node {
	medals := []string{"🥇", "🥈", "🥉"}
	items := make([]gomponents.Node, 0, len(users))
	for i, u := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		items = append(items, html.Li(
			html.Strong(gomponents.Text(rank+" "+u.Username)),
			gomponents.Text(fmt.Sprintf(" — %d messages, %.1f credits", u.TotalMessages, u.TotalCredits)),
		))
	}
	return html.Ol(html.Class("leaderboard"), gomponents.Group(items))
}

const pageCSS = `
body { font-family: Inter, system-ui, sans-serif; margin: 0; color: #1f2937; }
main { padding: 1.5rem 2rem; max-width: 960px; margin: 0 auto; }
.topbar { display: flex; justify-content: space-between; align-items: center; }
.muted { color: #6b7280; margin-top: 2px; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; margin: 1rem 0; }
.card { border: 1px solid #e5e7eb; border-radius: 8px; padding: 0.8rem 1.2rem; min-width: 9rem; }
.card strong { font-size: 1.6rem; color: #1f77b4; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #e5e7eb; }
.leaderboard { list-style: none; padding: 0; }
.leaderboard li { padding: 0.3rem 0; }
.error { border: 1px solid #fca5a5; border-radius: 8px; padding: 1rem; background: #fef2f2; }
button { border-radius: 8px; border: 1px solid #e5e7eb; padding: 0.4rem 0.8rem; background: #f8f9fa; cursor: pointer; }
`
