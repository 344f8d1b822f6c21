package web

import (
	"html/template"

	"github.com/YuminosukeSato/bodyperf/pipeline"
)

type formField struct {
	pipeline.Bound
	Value float64
}

func formFields(in pipeline.Input) []formField {
	values := in.Values()
	out := make([]formField, len(pipeline.Bounds))
	for i, b := range pipeline.Bounds {
		out[i] = formField{Bound: b, Value: values[i]}
	}
	return out
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Body Performance Classification App</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 56em; }
nav a { margin-right: 1em; }
label { display: block; margin-top: .5em; }
pre { background: #f4f4f4; padding: 1em; }
</style>
</head>
<body>
<h1>Body Performance Classification App</h1>
<nav>
<a href="/api/data?limit=100">Raw Data</a>
<a href="/api/eda">EDA</a>
<a href="/api/eda/heatmap.png">Feature Correlations</a>
<a href="/api/evaluation">Model Evaluation</a>
</nav>

<h2>Make Predictions</h2>
<form id="predict" method="post" action="/api/predict">
{{range .Fields}}
<label>{{.Label}}
<input type="number" name="{{.Field}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}" required>
</label>
{{- if eq .Field "age"}}
<label>Gender
<select name="gender">
{{range $.Genders}}<option value="{{.}}"{{if eq . $.Gender}} selected{{end}}>{{.}}</option>{{end}}
</select>
</label>
{{- end}}
{{end}}
<p><button type="submit">Predict Performance</button></p>
</form>
<pre id="result"></pre>

<script>
document.getElementById("predict").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const res = await fetch("/api/predict", { method: "POST", body: new URLSearchParams(new FormData(ev.target)) });
  const body = await res.json();
  document.getElementById("result").textContent = res.ok
    ? "Predicted Performance: " + body.performance
    : "Error: " + body.error;
});
</script>
</body>
</html>
`))
