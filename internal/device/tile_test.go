package device

import "testing"

func TestRenderTile(t *testing.T) {
	rows := []Row{
		{Label: "CO2", Value: "650", Unit: "ppm"},
		{Label: "Temp", Value: "21.4", Unit: "C"},
		{Label: "Battery", Value: "87", Unit: "%"},
	}

	got := RenderTile(rows)
	want := `<table class="airthings">` +
		`<tr><td>CO2</td><td>650 ppm</td></tr>` +
		`<tr><td>Temp</td><td>21.4 C</td></tr>` +
		`<tr><td>Battery</td><td>87 %</td></tr>` +
		`</table>`

	if got != want {
		t.Errorf("RenderTile mismatch\ngot:  %s\nwant: %s", got, want)
	}
}

func TestRenderTileEmpty(t *testing.T) {
	want := `<table class="airthings"></table>`

	if got := RenderTile(nil); got != want {
		t.Errorf("RenderTile(nil) = %q, want %q", got, want)
	}
	if got := RenderTile([]Row{}); got != want {
		t.Errorf("RenderTile(empty) = %q, want %q", got, want)
	}
}

func TestRenderTileEscapesMarkup(t *testing.T) {
	rows := []Row{
		{Label: "<script>", Value: "1 & 2", Unit: ""},
	}

	got := RenderTile(rows)
	want := `<table class="airthings"><tr><td>&lt;script&gt;</td><td>1 &amp; 2</td></tr></table>`

	if got != want {
		t.Errorf("RenderTile escaping mismatch\ngot:  %s\nwant: %s", got, want)
	}
}

func TestRenderTileOmitsUnitSeparatorWhenEmpty(t *testing.T) {
	rows := []Row{{Label: "Radon", Value: "96.0", Unit: ""}}

	got := RenderTile(rows)
	want := `<table class="airthings"><tr><td>Radon</td><td>96.0</td></tr></table>`

	if got != want {
		t.Errorf("RenderTile = %q, want %q", got, want)
	}
}
