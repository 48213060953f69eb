package httpapi

import (
	"html"
	"net/http"
)

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	page := `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>MidMod Radar | browse</title>
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 16px; }
    button { padding: 8px 12px; font-size: 15px; }
    pre { white-space: pre-wrap; word-wrap: break-word; background: #f6f6f6; padding: 12px; border-radius: 10px; }
    .grid { display: grid; gap: 12px; }
    .cols { display: grid; gap: 12px; grid-template-columns: 1fr; }
    @media (min-width: 900px) { .cols { grid-template-columns: 320px 1fr 1fr; } }
    .card { border: 1px solid #e6e6e6; border-radius: 12px; padding: 12px; }
    .list { display: grid; gap: 10px; }
    .item { border: 1px solid #eaeaea; border-radius: 12px; padding: 10px; cursor: pointer; }
    .item:hover { background: #fafafa; }
    .muted { color: #666; font-size: 14px; }
    .facet label { display: block; font-size: 14px; }
    img { width: 100%; height: auto; border-radius: 12px; border: 1px solid #eee; }
    .row { display: flex; gap: 8px; flex-wrap: wrap; align-items: center; }
    input[type=number], input[type=email], select { padding: 6px; font-size: 15px; width: 120px; }
    input[type=email] { width: 220px; }
  </style>
</head>
<body>
  <h2>MidMod Radar</h2>
  <div class="muted">Server: <code>` + html.EscapeString(r.Host) + `</code> • <span id="active">0 filters</span></div>

  <div class="cols" style="margin-top:12px;">
    <div class="grid">
      <div class="card">
        <div class="row">
          <button id="btnClear">Clear filters</button>
          <select id="sort">
            <option value="recent">Newest</option>
            <option value="price_high">Price: high to low</option>
            <option value="price_low">Price: low to high</option>
            <option value="year_new">Year: newest</option>
            <option value="year_old">Year: oldest</option>
          </select>
        </div>
        <div class="row" style="margin-top:10px;">
          <span class="muted">Built</span>
          <input id="yearMin" type="number" placeholder="from"/>
          <input id="yearMax" type="number" placeholder="to"/>
        </div>
        <div class="row" style="margin-top:6px;">
          <span class="muted">Value</span>
          <input id="valueMin" type="number" placeholder="min"/>
          <input id="valueMax" type="number" placeholder="max"/>
        </div>
      </div>
      <div class="card facet"><b>Styles</b><div id="f-styles"></div></div>
      <div class="card facet"><b>Architects</b><div id="f-architects"></div></div>
      <div class="card facet"><b>States</b><div id="f-states"></div></div>
      <div class="card facet"><b>Cities</b><div id="f-cities"></div></div>
    </div>

    <div class="grid">
      <div class="card">
        <div><b>Houses</b> <span id="total" class="muted"></span></div>
        <div id="list" class="list" style="margin-top:10px;">Loading…</div>
      </div>
    </div>

    <div class="grid">
      <div class="card">
        <div><b>Details</b></div>
        <div id="details" class="muted" style="margin-top:10px;">Pick a house…</div>
      </div>
      <div class="card">
        <div><b>Similar homes</b></div>
        <pre id="similar">-</pre>
      </div>
      <div class="card">
        <div><b>New listing alerts</b></div>
        <div class="row" style="margin-top:8px;">
          <input id="email" type="email" placeholder="Enter your email"/>
          <label class="muted"><input id="consent" type="checkbox"/> I agree to receive emails</label>
          <button id="btnSubscribe">Subscribe</button>
        </div>
        <div id="subMsg" class="muted" style="margin-top:6px;"></div>
      </div>
    </div>
  </div>

<script>
const facets = { styles: "STYLE", architects: "ARCHITECT", states: "STATE", cities: "CITY" };
let sessionID = null;

function esc(s) {
  return String(s ?? "").replace(/[&<>"']/g, c => ({"&":"&amp;","<":"&lt;",">":"&gt;",'"':"&quot;","'":"&#39;"}[c]));
}

async function dispatch(actions) {
  const res = await fetch("/sessions/" + sessionID + "/actions", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(actions)
  });
  const snap = await res.json();
  document.getElementById("active").textContent = snap.activeCount + " filters";
  await loadHouses();
  return snap;
}

async function loadFacets() {
  for (const [name, kind] of Object.entries(facets)) {
    const res = await fetch("/facets/" + name);
    const data = await res.json();
    const box = document.getElementById("f-" + name);
    box.innerHTML = "";
    for (const o of data.options || []) {
      const label = document.createElement("label");
      label.innerHTML = "<input type='checkbox'/> " + esc(o.name) + " <span class='muted'>(" + o.count + ")</span>";
      label.querySelector("input").addEventListener("change", e => {
        dispatch([{ type: (e.target.checked ? "ADD_" : "REMOVE_") + kind, payload: o.id }]);
      });
      box.appendChild(label);
    }
  }
}

function rangeAction(type, minEl, maxEl) {
  const v = el => el.value.trim() === "" ? null : Number(el.value);
  return { type, payload: { min: v(minEl), max: v(maxEl) } };
}

async function loadHouses() {
  const sort = document.getElementById("sort").value;
  const res = await fetch("/sessions/" + sessionID + "/houses?sort=" + sort);
  const data = await res.json();
  if (data.stale) return;
  const listEl = document.getElementById("list");
  document.getElementById("total").textContent = "(" + data.total + ")";
  listEl.innerHTML = "";
  if (!data.items || data.items.length === 0) {
    listEl.textContent = "No houses match these filters";
    return;
  }
  for (const it of data.items) {
    const div = document.createElement("div");
    div.className = "item";
    div.innerHTML =
      "<div><b>" + esc(it.street) + "</b></div>" +
      "<div class='muted'>" + esc(it.city) + ", " + esc(it.state) + " • " + esc(it.year_built ?? "-") + " • " + esc(it.valuation_label) + "</div>" +
      "<div class='muted'>" + esc(it.architect || "Unknown architect") + " • " + esc((it.styles || []).join(", ")) + "</div>";
    div.addEventListener("click", () => loadDetails(it.slug));
    listEl.appendChild(div);
  }
}

async function loadDetails(slug) {
  const detailsEl = document.getElementById("details");
  detailsEl.textContent = "Loading…";
  const res = await fetch("/houses/" + encodeURIComponent(slug));
  const h = await res.json();
  if (h.error) {
    detailsEl.textContent = "Not found";
    return;
  }
  const photos = (h.photos || []).map(p => "<img src='" + esc(p.photo_url) + "' alt='house photo'/>").join("");
  detailsEl.innerHTML =
    "<div><b>" + esc(h.address_canonical || h.street) + "</b></div>" +
    "<div>Value: <b>" + esc(h.valuation_label) + "</b> • Built: <b>" + esc(h.year_built ?? "-") + "</b></div>" +
    (h.architect ? "<div>Architect: <b>" + esc(h.architect.name) + "</b></div>" : "") +
    (h.description_text ? "<div style='margin-top:8px;'>" + esc(h.description_text) + "</div>" : "") +
    "<div class='grid' style='margin-top:8px;'>" + photos + "</div>";

  const sim = await fetch("/similar/" + encodeURIComponent(slug));
  const simData = await sim.json();
  document.getElementById("similar").textContent = (simData.results || [])
    .map(r => r.score + "  " + r.house.street + ", " + r.house.city + "  [" + r.reasons.map(x => x.message).join("; ") + "]")
    .join("\n") || "-";
}

document.getElementById("btnClear").addEventListener("click", async () => {
  document.querySelectorAll(".facet input").forEach(i => { i.checked = false; });
  ["yearMin", "yearMax", "valueMin", "valueMax"].forEach(id => { document.getElementById(id).value = ""; });
  await dispatch([{ type: "CLEAR_FILTERS" }]);
});
document.getElementById("sort").addEventListener("change", loadHouses);
for (const id of ["yearMin", "yearMax"]) {
  document.getElementById(id).addEventListener("change", () =>
    dispatch([rangeAction("SET_YEAR_RANGE", document.getElementById("yearMin"), document.getElementById("yearMax"))]));
}
for (const id of ["valueMin", "valueMax"]) {
  document.getElementById(id).addEventListener("change", () =>
    dispatch([rangeAction("SET_VALUATION_RANGE", document.getElementById("valueMin"), document.getElementById("valueMax"))]));
}

document.getElementById("btnSubscribe").addEventListener("click", async () => {
  const msg = document.getElementById("subMsg");
  const res = await fetch("/subscribe", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({ email: document.getElementById("email").value, consent: document.getElementById("consent").checked })
  });
  const data = await res.json();
  msg.textContent = data.error ? data.error : "Thanks! You're on the list.";
});

(async () => {
  const res = await fetch("/sessions", { method: "POST" });
  sessionID = (await res.json()).id;
  await loadFacets();
  await loadHouses();
})();
</script>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}
