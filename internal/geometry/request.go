package geometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidArgument reports a request that cannot be resolved: missing or
// zero dimensions, or an unknown strategy.
var ErrInvalidArgument = errors.New("invalid argument")

// Strategy selects how the source is mapped onto the destination box.
type Strategy string

const (
	// StrategyStandard fits the source inside the box.
	StrategyStandard Strategy = "standard"
	// StrategyCropToFit fills the box exactly by cropping the source.
	StrategyCropToFit Strategy = "crop-to-fit"
	// StrategyLetterbox fits the source inside a padded canvas.
	StrategyLetterbox Strategy = "letterbox"
	// StrategyPercent scales the source by a percentage.
	StrategyPercent Strategy = "percent"
)

// ParseStrategy accepts a strategy name. "crop", "croptofit" and "fit" are
// accepted as aliases.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "fit":
		return StrategyStandard, nil
	case "crop-to-fit", "croptofit", "crop":
		return StrategyCropToFit, nil
	case "letterbox":
		return StrategyLetterbox, nil
	case "percent":
		return StrategyPercent, nil
	}
	return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, s)
}

// Dimension is an optional pixel size. The zero value is [Auto].
type Dimension struct {
	value int
	set   bool
}

// Auto leaves a dimension to be derived from the other one.
var Auto = Dimension{}

// Px returns a dimension of n pixels.
func Px(n int) Dimension {
	return Dimension{value: n, set: true}
}

// abs returns d with a negative size replaced by its magnitude.
func (d Dimension) abs() Dimension {
	if d.value < 0 {
		d.value = -d.value
	}
	return d
}

// Value returns the pixel size and whether one was supplied.
func (d Dimension) Value() (int, bool) {
	return d.value, d.set
}

// IsAuto reports whether no size was supplied.
func (d Dimension) IsAuto() bool {
	return !d.set
}

func (d Dimension) String() string {
	if !d.set {
		return "auto"
	}
	return strconv.Itoa(d.value)
}

const (
	// DefaultQuality is the output quality used when none is set.
	DefaultQuality = 75
	// DefaultBackground is the letterbox fill colour.
	DefaultBackground = "000000"
	// MaxAlpha is fully transparent.
	MaxAlpha = 127
)

// Background is the letterbox canvas fill. Alpha runs from 0 (opaque) to
// 127 (fully transparent).
type Background struct {
	Color string
	Alpha int
}

// NewBackground normalises a fill colour. A colour that is not exactly six
// hex digits (an optional leading '#' is ignored) becomes black; alpha is
// clamped to [0,127].
func NewBackground(color string, alpha int) Background {
	color = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if len(color) != 6 {
		color = DefaultBackground
	} else if _, err := colorful.Hex("#" + color); err != nil {
		color = DefaultBackground
	}
	if alpha < 0 {
		alpha = -alpha
	}
	if alpha > MaxAlpha {
		alpha = MaxAlpha
	}
	return Background{Color: color, Alpha: alpha}
}

// RGB returns the fill colour components.
func (b Background) RGB() (r, g, bl uint8) {
	c, err := colorful.Hex("#" + b.Color)
	if err != nil {
		return 0, 0, 0
	}
	return c.RGB255()
}

// Opacity converts the 0..127 alpha to an 8-bit opacity (255 = opaque).
func (b Background) Opacity() uint8 {
	return uint8(255 - (b.Alpha*255+MaxAlpha/2)/MaxAlpha)
}

// IsDefault reports whether b is opaque black.
func (b Background) IsDefault() bool {
	return (b.Color == "" || b.Color == DefaultBackground) && b.Alpha == 0
}

// Request is an immutable description of a transform.
type Request struct {
	Strategy Strategy
	Width    Dimension
	Height   Dimension
	// Percent is only read by StrategyPercent.
	Percent int

	KeepAspectRatio bool
	Constrain       bool

	Quality  int
	Sharpen  int
	Rotation int

	// Background is only read by StrategyLetterbox.
	Background Background
}

// DefaultRequest returns a standard request with quality 75, aspect ratio
// kept and upscaling constrained.
func DefaultRequest() Request {
	return Request{
		Strategy:        StrategyStandard,
		KeepAspectRatio: true,
		Constrain:       true,
		Quality:         DefaultQuality,
		Background:      Background{Color: DefaultBackground},
	}
}

// Normalized returns a copy with every forgiving parameter brought into range.
func (r Request) Normalized() Request {
	if r.Strategy == "" {
		r.Strategy = StrategyStandard
	}
	r.Quality = NormalizeLevel(r.Quality)
	r.Sharpen = NormalizeLevel(r.Sharpen)
	r.Rotation = NormalizeRotation(r.Rotation)
	r.Percent = NormalizePercent(r.Percent)
	r.Width = r.Width.abs()
	r.Height = r.Height.abs()
	r.Background = NewBackground(r.Background.Color, r.Background.Alpha)
	return r
}

// NormalizeLevel maps a quality or sharpen level to [0,100]. Negative values
// use their magnitude.
func NormalizeLevel(level int) int {
	if level < 0 {
		level = -level
	}
	if level > 100 {
		level = 100
	}
	return level
}

// NormalizeRotation returns degrees unchanged when it is a multiple of 90
// within [-359,359], otherwise 0.
func NormalizeRotation(degrees int) int {
	if degrees%90 != 0 || degrees < -359 || degrees > 359 {
		return 0
	}
	return degrees
}

// NormalizePercent clamps a percentage to [1,100]. Negative values use their
// magnitude.
func NormalizePercent(pct int) int {
	if pct < 0 {
		pct = -pct
	}
	if pct > 100 {
		pct = 100
	}
	if pct < 1 {
		pct = 1
	}
	return pct
}
