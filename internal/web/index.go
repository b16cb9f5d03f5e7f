package web

// One card per pair, fed by /status/stream, plus the order feed from /orders/stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>ladderbot</title>
  <style>
    :root { --bg:#ffffff; --ink:#111111; --ink-soft:#8a8a8a; --panel:#f6f6f6; --up:#1c7c3c; --down:#b3261e; }
    * { box-sizing:border-box; }
    body { margin:0; padding:2rem; background:var(--bg); color:var(--ink); font-family:'Space Mono','JetBrains Mono',monospace; }
    h1 { font-size:1.1rem; letter-spacing:.08em; text-transform:uppercase; }
    #pairs { display:grid; grid-template-columns:repeat(auto-fill, minmax(340px, 1fr)); gap:1.5rem; }
    .card { background:var(--panel); border:3px solid var(--ink); padding:1rem 1.25rem; box-shadow:8px 8px 0 rgba(0,0,0,.15); }
    .card h2 { margin:0 0 .5rem; font-size:1rem; display:flex; justify-content:space-between; }
    .phase { font-size:.75rem; color:var(--ink-soft); }
    table { width:100%; border-collapse:collapse; font-size:.8rem; }
    td { padding:.15rem 0; }
    td:last-child { text-align:right; }
    .tp { color:var(--up); }
    .sl { color:var(--down); }
    #orders { margin-top:2rem; font-size:.75rem; max-height:40vh; overflow:auto; border-top:2px solid var(--ink); }
    #orders div { padding:.15rem 0; border-bottom:1px dashed var(--ink-soft); }
    .err { color:var(--down); }
    #empty { color:var(--ink-soft); }
  </style>
</head>
<body>
  <h1>ladderbot</h1>
  <div id="pairs"><span id="empty">waiting for the first cycle...</span></div>
  <div id="orders"></div>
<script>
const cards = {};
const fmt = v => (v === undefined || v === null) ? '-' : v;

function render(s) {
  document.getElementById('empty')?.remove();
  let card = cards[s.pair];
  if (!card) {
    card = document.createElement('div');
    card.className = 'card';
    document.getElementById('pairs').appendChild(card);
    cards[s.pair] = card;
  }
  const filled = (s.filled_safety_orders || []).length;
  const left = (s.remaining_ladder || []).length;
  card.innerHTML =
    '<h2><span>' + s.pair + '</span><span class="phase">' + s.phase + (s.running ? '' : ' (stopped)') + '</span></h2>' +
    '<table>' +
    '<tr><td>last price</td><td>' + fmt(s.last_price) + '</td></tr>' +
    '<tr><td>position</td><td>' + fmt(s.position_size) + '</td></tr>' +
    '<tr><td>avg entry</td><td>' + fmt(s.average_entry_price) + '</td></tr>' +
    '<tr><td>base order</td><td>' + (s.base_order ? s.base_order.price + ' (' + s.base_order.status + ')' : '-') + '</td></tr>' +
    '<tr><td>safety orders</td><td>' + filled + ' filled / ' + left + ' left</td></tr>' +
    '<tr><td class="tp">take profit</td><td class="tp">' + fmt(s.take_profit_price) + '</td></tr>' +
    '<tr><td class="sl">stop loss</td><td class="sl">' + fmt(s.stop_loss_price) + '</td></tr>' +
    (s.stop_reason ? '<tr><td>stop reason</td><td>' + s.stop_reason + '</td></tr>' : '') +
    '<tr><td>updated</td><td>' + new Date(s.ts).toLocaleTimeString() + '</td></tr>' +
    '</table>';
}

function order(c) {
  const row = document.createElement('div');
  if (c.error) row.className = 'err';
  row.textContent = new Date(c.time).toLocaleString() + '  ' + c.pair + '  ' + c.kind + ' ' +
    (c.role || '') + ' ' + (c.size || '') + ' @ ' + (c.price || '') + (c.error ? '  ' + c.error : '');
  const feed = document.getElementById('orders');
  feed.insertBefore(row, feed.firstChild);
}

new EventSource('/status/stream').addEventListener('status', e => render(JSON.parse(e.data)));
new EventSource('/orders/stream').addEventListener('order', e => order(JSON.parse(e.data)));
</script>
</body>
</html>`
