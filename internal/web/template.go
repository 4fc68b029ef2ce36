package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/filament-monitor/internal/logic"
	"github.com/sweeney/filament-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"one": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StateWarning:
			return "warn"
		case logic.StateOverridden:
			return "override"
		}
		return "ok"
	},
	"rgb": func(c logic.RGB) template.CSS {
		return template.CSS(fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B))
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Filament Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.warn { color: red; font-weight: bold; }
.override { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.swatch { display: inline-block; width: 1em; height: 1em; border: 1px solid #888; vertical-align: middle; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Filament Monitor<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Readings</h2>
<table>
{{with .Readings}}
<tr><th>Sensor 1</th><td id="s1">{{one .Temperature1}} &deg;C / {{one .Humidity1}} %</td></tr>
<tr><th>Sensor 2</th><td id="s2">{{one .Temperature2}} &deg;C / {{one .Humidity2}} %</td></tr>
<tr><th>Average</th><td id="avg">{{one .AverageTemperature}} &deg;C / {{one .AverageHumidity}} %</td></tr>
{{else}}
<tr><th>Sensor 1</th><td id="s1">waiting</td></tr>
<tr><th>Sensor 2</th><td id="s2">waiting</td></tr>
<tr><th>Average</th><td id="avg">waiting</td></tr>
{{end}}
</table>

<h2>Warning</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .Warning.State}}">{{.Warning.State}}</td></tr>
<tr><th>LED</th><td><span id="swatch" class="swatch" style="background: {{rgb .Warning.Color}}"></span></td></tr>
<tr><th>Humidity limit</th><td id="limit">{{one .Warning.HumidityLimit}} %</td></tr>
<tr><th>Override</th><td><button id="override" data-active="{{.Warning.Override}}">{{if .Warning.Override}}Release override{{else}}Override{{end}}</button></td></tr>
<tr><th>Dwell</th><td>{{.Config.DwellTicks}} ticks ({{.Config.OverridePolicy}} override)</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.ReadErrors}}</td></tr>
<tr><th>Warnings raised</th><td>{{.Warning.Counts.Raised}}</td></tr>
<tr><th>Warnings cleared</th><td>{{.Warning.Counts.Cleared}}</td></tr>
<tr><th>Overrides</th><td>{{.Warning.Counts.Overrides}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensors</th><td>{{if .Config.Simulated}}simulated{{else}}BME280{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/data">data</a> <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var btn = document.getElementById("override");

  function fmt(v) { return v.toFixed(1); }
  function pair(s) { return fmt(s.temperature) + " °C / " + fmt(s.humidity) + " %"; }

  function apply(st) {
    if (st.readings) {
      document.getElementById("s1").textContent = pair(st.readings.sensor1);
      document.getElementById("s2").textContent = pair(st.readings.sensor2);
      document.getElementById("avg").textContent = pair(st.readings.averages);
    }
    var w = st.warning;
    var el = document.getElementById("state");
    el.textContent = w.state;
    el.className = w.state === "WARNING" ? "warn" : w.state === "OVERRIDDEN" ? "override" : "ok";
    document.getElementById("swatch").style.background = "rgb(" + w.color.join(",") + ")";
    document.getElementById("limit").textContent = fmt(w.humidity_limit) + " %";
    btn.dataset.active = w.override;
    btn.textContent = w.override ? "Release override" : "Override";
  }

  btn.addEventListener("click", function() {
    fetch("/override", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ active: btn.dataset.active !== "true" })
    });
  });

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onmessage = function(ev) {
      try { apply(JSON.parse(ev.data).status); } catch (e) {}
    };
    ws.onclose = function() {
      dot.className = "live-dot err";
      dot.title = "offline";
      setTimeout(connect, 5000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render index: %v", err)
	}
}
