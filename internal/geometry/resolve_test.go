package geometry

import (
	"errors"
	"testing"
)

func box(strategy Strategy, w, h Dimension) Request {
	r := DefaultRequest()
	r.Strategy = strategy
	r.Width = w
	r.Height = h
	return r
}

func TestResolveStandard(t *testing.T) {
	tests := []struct {
		name      string
		src       Source
		w, h      Dimension
		keep      bool
		constrain bool
		wantW     int
		wantH     int
	}{
		{"landscape into box", Source{1000, 500}, Px(200), Px(150), true, true, 200, 100},
		{"portrait into box", Source{500, 1000}, Px(200), Px(150), true, true, 75, 150},
		{"width only", Source{1000, 500}, Px(300), Auto, true, true, 300, 150},
		{"height only", Source{1000, 500}, Auto, Px(100), true, true, 200, 100},
		{"exact ratio", Source{1000, 500}, Px(200), Px(100), true, true, 200, 100},
		{"wide box tie-break", Source{1000, 500}, Px(300), Px(100), true, true, 200, 100},
		{"constrained upscale", Source{100, 50}, Px(400), Px(400), true, true, 100, 50},
		{"unconstrained upscale", Source{100, 50}, Px(400), Px(400), true, false, 400, 200},
		{"no aspect", Source{1000, 500}, Px(200), Px(150), false, true, 200, 150},
		{"no aspect width only", Source{1000, 500}, Px(200), Auto, false, true, 200, 200},
		{"no aspect constrained", Source{100, 50}, Px(200), Px(150), false, true, 100, 50},
		{"tiny result floored", Source{10000, 10}, Px(100), Auto, true, false, 100, 1},
		{"rounding half away from zero", Source{4, 3}, Px(2), Auto, true, false, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := box(StrategyStandard, tt.w, tt.h)
			req.KeepAspectRatio = tt.keep
			req.Constrain = tt.constrain

			g, err := Resolve(req, tt.src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if g.DstWidth != tt.wantW || g.DstHeight != tt.wantH {
				t.Errorf("Resolve() = %dx%d, want %dx%d", g.DstWidth, g.DstHeight, tt.wantW, tt.wantH)
			}
			if g.CanvasWidth != g.DstWidth || g.CanvasHeight != g.DstHeight {
				t.Errorf("canvas %dx%d differs from destination", g.CanvasWidth, g.CanvasHeight)
			}
			if err := g.Validate(tt.src); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestResolveStandardFitsBox(t *testing.T) {
	sources := []Source{{1000, 500}, {500, 1000}, {333, 777}, {1, 1}, {4000, 3000}, {17, 1600}}
	boxes := [][2]int{{1, 1}, {200, 150}, {150, 200}, {300, 100}, {64, 64}, {999, 3}}

	for _, src := range sources {
		for _, b := range boxes {
			req := box(StrategyStandard, Px(b[0]), Px(b[1]))
			req.Constrain = false
			g, err := Resolve(req, src)
			if err != nil {
				t.Fatalf("Resolve(%v, %v) error = %v", b, src, err)
			}
			// Sizes are floored at one pixel, which may exceed a box side
			// only when the box side itself is smaller than a pixel of the
			// scaled image.
			if g.DstWidth > b[0] && g.DstWidth > 1 {
				t.Errorf("src %v box %v: width %d exceeds box", src, b, g.DstWidth)
			}
			if g.DstHeight > b[1] && g.DstHeight > 1 {
				t.Errorf("src %v box %v: height %d exceeds box", src, b, g.DstHeight)
			}
			if g.DstWidth != b[0] && g.DstHeight != b[1] {
				t.Errorf("src %v box %v: %dx%d touches neither side", src, b, g.DstWidth, g.DstHeight)
			}
		}
	}
}

func TestResolveCropToFit(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		w, h Dimension
		want Geometry
	}{
		{
			name: "wider source crops sides",
			src:  Source{1000, 500},
			w:    Px(100),
			h:    Px(100),
			want: Geometry{DstWidth: 100, DstHeight: 100, SrcX: 250, SrcWidth: 500, SrcHeight: 500, CanvasWidth: 100, CanvasHeight: 100},
		},
		{
			name: "taller source crops top and bottom",
			src:  Source{500, 1000},
			w:    Px(200),
			h:    Px(100),
			want: Geometry{DstWidth: 200, DstHeight: 100, SrcY: 375, SrcWidth: 500, SrcHeight: 250, CanvasWidth: 200, CanvasHeight: 100},
		},
		{
			name: "square fill from width",
			src:  Source{300, 200},
			w:    Px(50),
			h:    Auto,
			want: Geometry{DstWidth: 50, DstHeight: 50, SrcX: 50, SrcWidth: 200, SrcHeight: 200, CanvasWidth: 50, CanvasHeight: 50},
		},
		{
			name: "upscale ignores constrain",
			src:  Source{10, 10},
			w:    Px(40),
			h:    Px(20),
			want: Geometry{DstWidth: 40, DstHeight: 20, SrcY: 2, SrcWidth: 10, SrcHeight: 5, CanvasWidth: 40, CanvasHeight: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Resolve(box(StrategyCropToFit, tt.w, tt.h), tt.src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if g != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", g, tt.want)
			}
			if err := g.Validate(tt.src); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestResolveCropWindowCentered(t *testing.T) {
	for _, src := range []Source{{1000, 500}, {500, 1000}, {1001, 333}, {7, 900}} {
		for _, b := range [][2]int{{100, 100}, {160, 90}, {90, 160}, {3, 1}} {
			g, err := Resolve(box(StrategyCropToFit, Px(b[0]), Px(b[1])), src)
			if err != nil {
				t.Fatal(err)
			}
			if g.SrcX != (src.Width-g.SrcWidth)/2 || g.SrcY != (src.Height-g.SrcHeight)/2 {
				t.Errorf("src %v box %v: window %+v not centered", src, b, g)
			}
			if g.SrcWidth != src.Width && g.SrcHeight != src.Height {
				t.Errorf("src %v box %v: window %+v spans neither axis", src, b, g)
			}
		}
	}
}

func TestResolveLetterbox(t *testing.T) {
	tests := []struct {
		name      string
		src       Source
		w, h      Dimension
		constrain bool
		want      Geometry
	}{
		{
			name:      "wide source into square canvas",
			src:       Source{1000, 500},
			w:    Px(200),
			h:    Px(200),
			constrain: true,
			want:      Geometry{DstWidth: 200, DstHeight: 100, DstY: 50, SrcWidth: 1000, SrcHeight: 500, CanvasWidth: 200, CanvasHeight: 200},
		},
		{
			name:      "tall source into wide canvas",
			src:       Source{500, 1000},
			w:    Px(300),
			h:    Px(100),
			constrain: true,
			want:      Geometry{DstWidth: 50, DstHeight: 100, DstX: 125, SrcWidth: 500, SrcHeight: 1000, CanvasWidth: 300, CanvasHeight: 100},
		},
		{
			name:      "constrained small source is re-centered",
			src:       Source{50, 25},
			w:    Px(200),
			h:    Px(200),
			constrain: true,
			want:      Geometry{DstWidth: 50, DstHeight: 25, DstX: 75, DstY: 87, SrcWidth: 50, SrcHeight: 25, CanvasWidth: 200, CanvasHeight: 200},
		},
		{
			name:      "unconstrained small source upscales",
			src:       Source{50, 25},
			w:    Px(200),
			h:    Px(200),
			constrain: false,
			want:      Geometry{DstWidth: 200, DstHeight: 100, DstY: 50, SrcWidth: 50, SrcHeight: 25, CanvasWidth: 200, CanvasHeight: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := box(StrategyLetterbox, tt.w, tt.h)
			req.Constrain = tt.constrain
			g, err := Resolve(req, tt.src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if g != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", g, tt.want)
			}
			if err := g.Validate(tt.src); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestResolveLetterboxConstrainNeverExceedsSource(t *testing.T) {
	for _, src := range []Source{{10, 10}, {640, 480}, {31, 999}, {2000, 10}} {
		for _, c := range []int{1, 50, 480, 1000, 4096} {
			g, err := Resolve(box(StrategyLetterbox, Px(c), Px(c)), src)
			if err != nil {
				t.Fatal(err)
			}
			if g.DstWidth > src.Width || g.DstHeight > src.Height {
				t.Errorf("src %v canvas %d: content %dx%d exceeds source", src, c, g.DstWidth, g.DstHeight)
			}
			if err := g.Validate(src); err != nil {
				t.Error(err)
			}
		}
	}
}

func TestResolvePercent(t *testing.T) {
	tests := []struct {
		name         string
		src          Source
		pct          int
		wantW, wantH int
	}{
		{"half", Source{1000, 500}, 50, 500, 250},
		{"ceil", Source{101, 33}, 50, 51, 17},
		{"over 100 clamps", Source{100, 80}, 250, 100, 80},
		{"zero clamps to one", Source{1000, 500}, 0, 10, 5},
		{"negative uses magnitude", Source{1000, 500}, -20, 200, 100},
		{"tiny source", Source{1, 1}, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest()
			req.Strategy = StrategyPercent
			req.Percent = tt.pct
			g, err := Resolve(req, tt.src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if g.DstWidth != tt.wantW || g.DstHeight != tt.wantH {
				t.Errorf("Resolve() = %dx%d, want %dx%d", g.DstWidth, g.DstHeight, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		src  Source
	}{
		{"no dimensions", box(StrategyStandard, Auto, Auto), Source{10, 10}},
		{"zero width", box(StrategyStandard, Px(0), Px(10)), Source{10, 10}},
		{"zero height crop", box(StrategyCropToFit, Px(10), Px(0)), Source{10, 10}},
		{"unknown strategy", box(Strategy("stretch"), Px(10), Px(10)), Source{10, 10}},
		{"empty source", box(StrategyStandard, Px(10), Px(10)), Source{0, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.req, tt.src)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Resolve() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestResolveNegativeDimensionsUseMagnitude(t *testing.T) {
	src := Source{1000, 500}
	for _, strategy := range []Strategy{StrategyStandard, StrategyCropToFit, StrategyLetterbox} {
		t.Run(string(strategy), func(t *testing.T) {
			got, err := Resolve(box(strategy, Px(-200), Px(-150)), src)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			want, err := Resolve(box(strategy, Px(200), Px(150)), src)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("Resolve(-200, -150) = %+v, want %+v", got, want)
			}
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	req := box(StrategyCropToFit, Px(123), Px(45))
	src := Source{777, 555}
	a, err := Resolve(req, src)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, _ := Resolve(req, src)
		if a != b {
			t.Fatalf("Resolve() not deterministic: %+v vs %+v", a, b)
		}
	}
}
