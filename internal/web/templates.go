package web

import "html/template"

var pageFuncs = template.FuncMap{
	"pct": func(v float64) float64 { return v * 100 },
}

var homeTemplate = template.Must(template.New("home").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Mark Six</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f2f2f2; }
.num { font-variant-numeric: tabular-nums; }
.special { color: #b00; font-weight: bold; }
</style>
</head>
<body>
<h1>Mark Six</h1>

{{if .LatestDraw}}
<p>Latest draw <b>{{.LatestDraw.IssueNo}}</b> ({{.LatestDraw.DrawDate}}):
<span class="num">{{range .LatestDraw.Numbers}}{{.}} {{end}}</span>
+ <span class="special">{{.LatestDraw.SpecialNumber}}</span></p>
{{else}}
<p>No draws stored yet. Run a sync first.</p>
{{end}}

{{if .TargetIssue}}
<h2>Picks for {{.TargetIssue}}</h2>
<form method="post" action="/predict">
<input type="hidden" name="issue" value="{{.TargetIssue}}">
<button type="submit">Regenerate</button>
</form>
{{if .Pending}}
<table>
<tr><th>Strategy</th><th>Mains</th><th>Special</th><th>Pool 20</th></tr>
{{range .Pending}}
<tr>
<td>{{.Label}}</td>
<td class="num">{{range .Mains}}{{.Number}} {{end}}</td>
<td class="num special">{{.Special.Number}}</td>
<td class="num">{{range .Pool20}}{{.}} {{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No pending picks. Use Regenerate.</p>
{{end}}
{{end}}

<h2>Strategy performance</h2>
{{if .Stats}}
<table>
<tr><th>Strategy</th><th>Reviewed</th><th>Avg hits</th><th>Hit rate</th>
<th>Pool 10</th><th>Pool 14</th><th>Pool 20</th><th>Special</th><th>&ge;1 hit</th><th>&ge;2 hits</th></tr>
{{range .Stats}}
<tr>
<td>{{index $.Labels .Strategy}}</td>
<td>{{.Count}}</td>
<td>{{printf "%.2f" .AvgHit}}</td>
<td>{{printf "%.1f%%" (pct .AvgRate)}}</td>
<td>{{printf "%.1f%%" (pct .AvgRate10)}}</td>
<td>{{printf "%.1f%%" (pct .AvgRate14)}}</td>
<td>{{printf "%.1f%%" (pct .AvgRate20)}}</td>
<td>{{printf "%.1f%%" (pct .SpecialRate)}}</td>
<td>{{printf "%.1f%%" (pct .Hit1Rate)}}</td>
<td>{{printf "%.1f%%" (pct .Hit2Rate)}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No reviewed runs yet. Run a backtest or review past issues.</p>
{{end}}

<h2>Recent reviews</h2>
{{if .Reviews}}
<table>
<tr><th>Issue</th><th>Strategy</th><th>Hits</th><th>Pool 20 hits</th><th>Special</th></tr>
{{range .Reviews}}
<tr>
<td><a href="/review?issue={{.IssueNo}}">{{.IssueNo}}</a></td>
<td>{{index $.Labels .Strategy}}</td>
<td>{{.HitCount}}/6</td>
<td>{{.HitCount20}}/6</td>
<td>{{if .SpecialHit}}hit{{else}}-{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>Nothing reviewed yet.</p>
{{end}}

<h2>Recent draws</h2>
<table>
<tr><th>Issue</th><th>Date</th><th>Numbers</th><th>Special</th></tr>
{{range .RecentDraws}}
<tr>
<td><a href="/review?issue={{.IssueNo}}">{{.IssueNo}}</a></td>
<td>{{.DrawDate}}</td>
<td class="num">{{range .Numbers}}{{.}} {{end}}</td>
<td class="num special">{{.SpecialNumber}}</td>
</tr>
{{end}}
</table>
</body>
</html>`))

var reviewTemplate = template.Must(template.New("review").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Review {{.IssueNo}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f2f2f2; }
.num { font-variant-numeric: tabular-nums; }
.special { color: #b00; font-weight: bold; }
</style>
</head>
<body>
<p><a href="/">&larr; back</a></p>
<h1>Review {{.IssueNo}}</h1>

{{if .Draw}}
<p>Outcome: <span class="num">{{range .Draw.Numbers}}{{.}} {{end}}</span>
+ <span class="special">{{.Draw.SpecialNumber}}</span> ({{.Draw.DrawDate}})</p>
{{else}}
<p>No stored outcome for this issue.</p>
{{end}}

{{if .Runs}}
<table>
<tr><th>Strategy</th><th>Hits</th><th>Pool 10</th><th>Pool 14</th><th>Pool 20</th><th>Special</th></tr>
{{range .Runs}}
<tr>
<td>{{index $.Labels .Strategy}}</td>
<td>{{.HitCount}}/6</td>
<td>{{.HitCount10}}/6</td>
<td>{{.HitCount14}}/6</td>
<td>{{.HitCount20}}/6</td>
<td>{{if .SpecialHit}}hit{{else}}-{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No reviewed runs for this issue.</p>
{{end}}

<h2>Recent issues</h2>
<p>
{{range .Issues}}<a href="/review?issue={{.}}">{{.}}</a> {{end}}
</p>
</body>
</html>`))
