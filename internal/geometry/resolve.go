package geometry

import (
	"fmt"
	"math"
)

// Source is the pixel size of the original image.
type Source struct {
	Width  int
	Height int
}

// Geometry is the resolved layout of a transform.
//
// The source window (SrcX, SrcY, SrcWidth, SrcHeight) is scaled to
// DstWidth x DstHeight and drawn at (DstX, DstY) on a canvas of
// CanvasWidth x CanvasHeight. Only letterbox produces a canvas larger than
// the destination.
type Geometry struct {
	DstWidth  int
	DstHeight int
	DstX      int
	DstY      int

	SrcX      int
	SrcY      int
	SrcWidth  int
	SrcHeight int

	CanvasWidth  int
	CanvasHeight int
}

// Validate checks the layout against the source size.
func (g Geometry) Validate(src Source) error {
	switch {
	case g.DstWidth < 1, g.DstHeight < 1, g.SrcWidth < 1, g.SrcHeight < 1,
		g.CanvasWidth < 1, g.CanvasHeight < 1:
		return fmt.Errorf("geometry has an empty extent: %+v", g)
	case g.DstX < 0, g.DstY < 0, g.SrcX < 0, g.SrcY < 0:
		return fmt.Errorf("geometry has a negative offset: %+v", g)
	case g.DstX+g.DstWidth > g.CanvasWidth, g.DstY+g.DstHeight > g.CanvasHeight:
		return fmt.Errorf("destination %dx%d+%d+%d exceeds canvas %dx%d",
			g.DstWidth, g.DstHeight, g.DstX, g.DstY, g.CanvasWidth, g.CanvasHeight)
	case g.SrcX+g.SrcWidth > src.Width, g.SrcY+g.SrcHeight > src.Height:
		return fmt.Errorf("source window %dx%d+%d+%d exceeds source %dx%d",
			g.SrcWidth, g.SrcHeight, g.SrcX, g.SrcY, src.Width, src.Height)
	}
	return nil
}

// IsIdentity reports whether the layout copies the whole source unscaled.
func (g Geometry) IsIdentity(src Source) bool {
	return g.SrcX == 0 && g.SrcY == 0 &&
		g.SrcWidth == src.Width && g.SrcHeight == src.Height &&
		g.DstWidth == src.Width && g.DstHeight == src.Height &&
		g.CanvasWidth == g.DstWidth && g.CanvasHeight == g.DstHeight
}

// Resolve computes the layout for req against a source of the given size.
// The request is normalised first, so callers may pass raw user values.
func Resolve(req Request, src Source) (Geometry, error) {
	if src.Width < 1 || src.Height < 1 {
		return Geometry{}, fmt.Errorf("%w: source size %dx%d", ErrInvalidArgument, src.Width, src.Height)
	}
	req = req.Normalized()

	if req.Strategy == StrategyPercent {
		return resolvePercent(req.Percent, src), nil
	}

	if err := checkBox(req.Width, req.Height); err != nil {
		return Geometry{}, err
	}

	switch req.Strategy {
	case StrategyStandard:
		return resolveStandard(req, src), nil
	case StrategyCropToFit:
		w, h := squareFill(req.Width, req.Height)
		return resolveCropToFit(w, h, src), nil
	case StrategyLetterbox:
		w, h := squareFill(req.Width, req.Height)
		return resolveLetterbox(w, h, req.Constrain, src), nil
	}
	return Geometry{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidArgument, req.Strategy)
}

func checkBox(width, height Dimension) error {
	if width.IsAuto() && height.IsAuto() {
		return fmt.Errorf("%w: width and/or height must be supplied", ErrInvalidArgument)
	}
	for _, d := range []struct {
		name string
		dim  Dimension
	}{{"width", width}, {"height", height}} {
		v, ok := d.dim.Value()
		if !ok {
			continue
		}
		if v == 0 {
			return fmt.Errorf("%w: %s must be above 0", ErrInvalidArgument, d.name)
		}
	}
	return nil
}

// squareFill copies a supplied dimension into an absent one.
func squareFill(width, height Dimension) (int, int) {
	w, wOK := width.Value()
	h, hOK := height.Value()
	if !wOK {
		w = h
	}
	if !hOK {
		h = w
	}
	return w, h
}

func resolveStandard(req Request, src Source) Geometry {
	maxW, wOK := req.Width.Value()
	maxH, hOK := req.Height.Value()

	if req.Constrain {
		if wOK && maxW > src.Width {
			maxW = src.Width
		}
		if hOK && maxH > src.Height {
			maxH = src.Height
		}
	}

	var w, h int
	if !req.KeepAspectRatio {
		w, h = maxW, maxH
		if !wOK {
			w = maxH
		}
		if !hOK {
			h = maxW
		}
	} else {
		optimalWidth := scale(maxH, src.Width, src.Height)
		optimalHeight := scale(maxW, src.Height, src.Width)

		switch {
		case !hOK:
			w, h = maxW, optimalHeight
		case !wOK:
			w, h = optimalWidth, maxH
		default:
			widthFits := optimalHeight <= maxH
			heightFits := optimalWidth <= maxW
			switch {
			case widthFits && heightFits:
				if optimalWidth > optimalHeight {
					w, h = maxW, optimalHeight
				} else {
					w, h = optimalWidth, maxH
				}
			case widthFits:
				w, h = maxW, optimalHeight
			default:
				w, h = optimalWidth, maxH
			}
		}
	}

	w, h = atLeastOne(w), atLeastOne(h)
	return Geometry{
		DstWidth:     w,
		DstHeight:    h,
		SrcWidth:     src.Width,
		SrcHeight:    src.Height,
		CanvasWidth:  w,
		CanvasHeight: h,
	}
}

func resolveCropToFit(w, h int, src Source) Geometry {
	g := Geometry{
		DstWidth:     w,
		DstHeight:    h,
		CanvasWidth:  w,
		CanvasHeight: h,
	}

	// Compare src.Width/src.Height against w/h without division.
	if src.Width*h > w*src.Height {
		cw := min(atLeastOne(scale(src.Height, w, h)), src.Width)
		g.SrcWidth, g.SrcHeight = cw, src.Height
		g.SrcX = (src.Width - cw) / 2
	} else {
		ch := min(atLeastOne(scale(src.Width, h, w)), src.Height)
		g.SrcWidth, g.SrcHeight = src.Width, ch
		g.SrcY = (src.Height - ch) / 2
	}
	return g
}

func resolveLetterbox(canvasW, canvasH int, constrain bool, src Source) Geometry {
	var w, h int
	if src.Width*canvasH < canvasW*src.Height {
		h = canvasH
		w = scale(canvasH, src.Width, src.Height)
	} else {
		w = canvasW
		h = scale(canvasW, src.Height, src.Width)
	}
	w = min(atLeastOne(w), canvasW)
	h = min(atLeastOne(h), canvasH)

	if constrain {
		w = min(w, src.Width)
		h = min(h, src.Height)
	}

	return Geometry{
		DstWidth:     w,
		DstHeight:    h,
		DstX:         (canvasW - w) / 2,
		DstY:         (canvasH - h) / 2,
		SrcWidth:     src.Width,
		SrcHeight:    src.Height,
		CanvasWidth:  canvasW,
		CanvasHeight: canvasH,
	}
}

func resolvePercent(pct int, src Source) Geometry {
	w := atLeastOne((src.Width*pct + 99) / 100)
	h := atLeastOne((src.Height*pct + 99) / 100)
	return Geometry{
		DstWidth:     w,
		DstHeight:    h,
		SrcWidth:     src.Width,
		SrcHeight:    src.Height,
		CanvasWidth:  w,
		CanvasHeight: h,
	}
}

// scale returns round(n*num/den).
func scale(n, num, den int) int {
	return int(math.Round(float64(n) * float64(num) / float64(den)))
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
