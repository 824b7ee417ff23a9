package locator

import (
	"errors"
	"strings"
	"testing"

	"github.com/devicelab-dev/msgrelay/pkg/core"
)

func dump(raw string) core.ScreenDump {
	return core.ScreenDump{Raw: raw}
}

const sendDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0"><node index="0" text="" bounds="[0,0][1080,2400]"><node index="0" text="发消息" class="android.widget.Button" bounds="[100,200][300,400]" /><node index="1" text="微信" bounds="[0,2200][270,2400]" /></node></hierarchy>`

const chatDump = `<hierarchy rotation="0"><node text="消息" bounds="[0,100][1080,200]" /><node text="消息" bounds="[0,500][1080,600]" /><node text="消息" bounds="[0,900][1080,1000]" /></hierarchy>`

func TestFindCoordinates(t *testing.T) {
	p, ok := FindCoordinates(dump(sendDump), `text="发消息"`, false)
	if !ok {
		t.Fatal("expected marker to be found")
	}
	if p != (core.Point{X: 200, Y: 300}) {
		t.Errorf("got %v, want (200, 300)", p)
	}
}

func TestFindCoordinates_NoMatch(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		marker string
	}{
		{"absent marker", sendDump, `text="通讯录"`},
		{"empty dump", "", `text="发消息"`},
		{"marker without bounds", `<hierarchy><node text="发消息" /></hierarchy>`, `text="发消息"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, fromBottom := range []bool{false, true} {
				if p, ok := FindCoordinates(dump(tt.raw), tt.marker, fromBottom); ok {
					t.Errorf("fromBottom=%v: expected no match, got %v", fromBottom, p)
				}
			}
		})
	}
}

func TestFindCoordinates_FoundIffContained(t *testing.T) {
	markers := []string{`text="发消息"`, `text="微信"`, `text="相册"`, `rotation`, `bounds="[0,0]`}
	for _, m := range markers {
		_, ok := FindCoordinates(dump(sendDump), m, false)
		contained := false
		for _, frag := range Fragments(sendDump) {
			if strings.Contains(frag, m) {
				if _, err := BoundsOf(frag); err == nil {
					contained = true
				}
			}
		}
		if ok != contained {
			t.Errorf("marker %q: found=%v, contained with bounds=%v", m, ok, contained)
		}
	}
}

func TestFindCoordinates_Idempotent(t *testing.T) {
	d := dump(chatDump)
	first, ok1 := FindCoordinates(d, `text="消息"`, true)
	second, ok2 := FindCoordinates(d, `text="消息"`, true)
	if first != second || ok1 != ok2 {
		t.Errorf("repeated lookups differ: %v/%v vs %v/%v", first, ok1, second, ok2)
	}
}

func TestFindCoordinates_FromBottom(t *testing.T) {
	// The last match in scan order wins.
	p, ok := FindCoordinates(dump(chatDump), `text="消息"`, false)
	if !ok || p.Y != 950 {
		t.Errorf("top-down scan: got %v, want y=950", p)
	}
	p, ok = FindCoordinates(dump(chatDump), `text="消息"`, true)
	if !ok || p.Y != 150 {
		t.Errorf("bottom-up scan: got %v, want y=150", p)
	}

	// A single qualifying fragment is found the same either way.
	a, _ := FindCoordinates(dump(sendDump), `text="发消息"`, false)
	b, _ := FindCoordinates(dump(sendDump), `text="发消息"`, true)
	if a != b {
		t.Errorf("single match differs by direction: %v vs %v", a, b)
	}
}

func TestFindCoordinates_NewestAlbumPicture(t *testing.T) {
	raw := `<hierarchy rotation="0"><node class="android.widget.CheckBox" bounds="[0,0][100,100]" /><node class="android.widget.CheckBox" bounds="[900,900][1000,1000]" /></hierarchy>`
	p, ok := FindCoordinates(dump(raw), `class="android.widget.CheckBox"`, true)
	if !ok || p != (core.Point{X: 50, Y: 50}) {
		t.Errorf("got %v, %v, want (50, 50)", p, ok)
	}
	p, ok = FindCoordinates(dump(raw), `class="android.widget.CheckBox"`, false)
	if !ok || p != (core.Point{X: 950, Y: 950}) {
		t.Errorf("top-down scan: got %v, %v, want (950, 950)", p, ok)
	}
}

func TestFindCoordinates_SkipsMalformedBounds(t *testing.T) {
	raw := `<hierarchy><node text="OK" bounds="[1,2][3]" /><node text="OK" bounds="[10,10][20,30]" /></hierarchy>`
	p, ok := FindCoordinates(dump(raw), `text="OK"`, false)
	if !ok {
		t.Fatal("expected the well-formed fragment to match")
	}
	if p != (core.Point{X: 15, Y: 20}) {
		t.Errorf("got %v, want (15, 20)", p)
	}

	// A malformed match later in scan order keeps the earlier one.
	p, ok = FindCoordinates(dump(raw), `text="OK"`, true)
	if !ok || p != (core.Point{X: 15, Y: 20}) {
		t.Errorf("bottom-up scan: got %v, %v, want (15, 20)", p, ok)
	}
}

func TestFindText(t *testing.T) {
	raw := `<hierarchy><node resource-id="id/base_list_item_data" content-desc="张三,你好" bounds="[0,0][10,10]" /><node resource-id="id/other" content-desc="ignored" bounds="[0,0][10,10]" /><node resource-id="id/base_list_item_data" content-desc="李四,在吗" bounds="[0,0][10,10]" /></hierarchy>`

	tests := []struct {
		name    string
		readAll bool
		want    string
	}{
		{"first only", false, "张三,你好"},
		{"read all", true, "张三,你好\n李四,在吗"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindText(dump(raw), "id/base_list_item_data", "content-desc", tt.readAll)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if got := FindText(dump(raw), "id/missing", "content-desc", true); got != "" {
		t.Errorf("missing label: got %q, want empty", got)
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Rect
		wantErr bool
	}{
		{"[100,200][300,400]", core.Rect{X0: 100, Y0: 200, X1: 300, Y1: 400}, false},
		{"[0,0][1080,2400]", core.Rect{X1: 1080, Y1: 2400}, false},
		{"[1,2][3]", core.Rect{}, true},
		{"[a,b][c,d]", core.Rect{}, true},
		{"100,200,300,400", core.Rect{}, true},
		{"", core.Rect{}, true},
	}
	for _, tt := range tests {
		got, err := ParseBounds(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBounds(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, core.ErrMalformedBounds) {
			t.Errorf("ParseBounds(%q) err = %v, want ErrMalformedBounds", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseBounds(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	if _, ok := New("tree").(TreeLocator); !ok {
		t.Error("New(tree) should return TreeLocator")
	}
	if _, ok := New("").(TextLocator); !ok {
		t.Error("New(\"\") should default to TextLocator")
	}
	if _, ok := New("TEXT").(TextLocator); !ok {
		t.Error("New(TEXT) should return TextLocator")
	}
}

func TestTreeLocator_MatchesTextLocator(t *testing.T) {
	markers := []string{`text="发消息"`, `text="微信"`, `text="相册"`, `text="消息"`}
	for _, raw := range []string{sendDump, chatDump} {
		for _, m := range markers {
			for _, fromBottom := range []bool{false, true} {
				want, wantOK := TextLocator{}.Element(dump(raw), m, fromBottom)
				got, gotOK := TreeLocator{}.Element(dump(raw), m, fromBottom)
				if gotOK != wantOK || got.Center != want.Center {
					t.Errorf("%s fromBottom=%v: tree=%v/%v text=%v/%v", m, fromBottom, got.Center, gotOK, want.Center, wantOK)
				}
			}
		}
	}
}

func TestTreeLocator_IgnoresTrailingStatus(t *testing.T) {
	raw := chatDump + "UI hierchary dumped to: /dev/tty"
	el, ok := TreeLocator{}.Element(dump(raw), `text="消息"`, true)
	if !ok {
		t.Fatal("expected match")
	}
	if el.Center.Y != 150 {
		t.Errorf("got %v, want y=150", el.Center)
	}
}

func TestTreeLocator_DecodesEntities(t *testing.T) {
	raw := `<hierarchy><node text="A&amp;B" bounds="[0,0][10,10]" /></hierarchy>`
	if _, ok := (TreeLocator{}).Element(dump(raw), `text="A&B"`, false); !ok {
		t.Error("expected decoded marker to match")
	}
	if _, ok := (TextLocator{}).Element(dump(raw), `text="A&amp;B"`, false); !ok {
		t.Error("expected raw marker to match the text locator")
	}
}

func TestTreeLocator_Text(t *testing.T) {
	raw := `<hierarchy><node resource-id="id/row" content-desc="first" /><node resource-id="id/row" content-desc="second" /></hierarchy>`
	got := TreeLocator{}.Text(dump(raw), "id/row", "content-desc", true)
	if got != "first\nsecond" {
		t.Errorf("got %q", got)
	}
	if got := (TreeLocator{}).Text(dump(raw), "id/row", "content-desc", false); got != "first" {
		t.Errorf("first only: got %q", got)
	}
}

func TestParseNodes_InvalidDump(t *testing.T) {
	if _, err := ParseNodes("ERROR: null root node returned by UiTestAutomationBridge."); err == nil {
		t.Error("expected error for dump without hierarchy")
	}
}

func TestParseNodes_Depth(t *testing.T) {
	nodes, err := ParseNodes(sendDump)
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if nodes[0].Depth != 0 || nodes[1].Depth != 1 {
		t.Errorf("unexpected depths: %d, %d", nodes[0].Depth, nodes[1].Depth)
	}
	if nodes[1].Class != "android.widget.Button" {
		t.Errorf("Class = %q", nodes[1].Class)
	}
}
