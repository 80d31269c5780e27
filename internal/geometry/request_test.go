package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", StrategyStandard},
		{"standard", StrategyStandard},
		{"Crop-To-Fit", StrategyCropToFit},
		{"crop", StrategyCropToFit},
		{"letterbox", StrategyLetterbox},
		{" percent ", StrategyPercent},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if err != nil {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseStrategy("squash"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseStrategy(squash) error = %v, want ErrInvalidArgument", err)
	}
}

func TestDimension(t *testing.T) {
	if !Auto.IsAuto() {
		t.Error("Auto.IsAuto() = false")
	}
	if v, ok := Px(0).Value(); !ok || v != 0 {
		t.Errorf("Px(0).Value() = %d, %v", v, ok)
	}
	if Px(12).String() != "12" || Auto.String() != "auto" {
		t.Errorf("String() = %q, %q", Px(12).String(), Auto.String())
	}
}

func TestNormalizers(t *testing.T) {
	levels := map[int]int{-150: 100, -30: 30, 0: 0, 75: 75, 101: 100}
	for in, want := range levels {
		if got := NormalizeLevel(in); got != want {
			t.Errorf("NormalizeLevel(%d) = %d, want %d", in, got, want)
		}
	}

	rotations := map[int]int{90: 90, -90: -90, 180: 180, 270: 270, -270: -270, 45: 0, 360: 0, -360: 0, 0: 0, 450: 0}
	for in, want := range rotations {
		if got := NormalizeRotation(in); got != want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNewBackground(t *testing.T) {
	tests := []struct {
		color     string
		alpha     int
		wantColor string
		wantAlpha int
	}{
		{"ff8800", 0, "ff8800", 0},
		{"#FF8800", 10, "ff8800", 10},
		{"fff", 0, "000000", 0},
		{"zzzzzz", 0, "000000", 0},
		{"", 200, "000000", 127},
		{"123456", -20, "123456", 20},
	}
	for _, tt := range tests {
		bg := NewBackground(tt.color, tt.alpha)
		if bg.Color != tt.wantColor || bg.Alpha != tt.wantAlpha {
			t.Errorf("NewBackground(%q, %d) = %+v, want {%s %d}", tt.color, tt.alpha, bg, tt.wantColor, tt.wantAlpha)
		}
	}

	r, g, b := NewBackground("ff8001", 0).RGB()
	if r != 0xff || g != 0x80 || b != 0x01 {
		t.Errorf("RGB() = %d,%d,%d", r, g, b)
	}
	if NewBackground("", 0).Opacity() != 255 || NewBackground("", 127).Opacity() != 0 {
		t.Error("Opacity() endpoints wrong")
	}
	if !NewBackground("#000000", 0).IsDefault() || NewBackground("000000", 1).IsDefault() {
		t.Error("IsDefault() wrong")
	}
}

func TestSharpenKernel(t *testing.T) {
	tests := []struct {
		level     int
		m1, m2, c float64
		divisor   float64
	}{
		{50, -1.5, -1.3, 17, 5.8},
		{100, -3, -2.8, 34, 10.8},
		{10, -0.3, -0.1, 3, 1.4},
	}
	const eps = 1e-9
	for _, tt := range tests {
		k, div := SharpenKernel(tt.level)
		if math.Abs(k[0]-tt.m1) > eps || math.Abs(k[1]-tt.m2) > eps || math.Abs(k[4]-tt.c) > eps {
			t.Errorf("SharpenKernel(%d) = %v", tt.level, k)
		}
		if math.Abs(div-tt.divisor) > eps {
			t.Errorf("SharpenKernel(%d) divisor = %v, want %v", tt.level, div, tt.divisor)
		}
		var sum float64
		for _, v := range k.Normalized() {
			sum += v
		}
		if math.Abs(sum-1) > eps {
			t.Errorf("Normalized() sums to %v", sum)
		}
	}
}
