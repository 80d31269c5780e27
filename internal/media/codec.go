package media

import (
	"fmt"
	"io"
	"strings"

	"imagelite/internal/geometry"
	"imagelite/internal/imagetypes"
)

// Job is everything a codec needs to render one artifact.
type Job struct {
	Source     geometry.Source
	Geometry   geometry.Geometry
	Format     imagetypes.Format
	Quality    int
	Sharpen    int
	Rotation   int
	Background geometry.Background
}

// NewJob builds a job from a resolved request. Parameters are normalised.
func NewJob(req geometry.Request, src geometry.Source, geo geometry.Geometry, format imagetypes.Format) Job {
	req = req.Normalized()
	bg := req.Background
	if req.Strategy != geometry.StrategyLetterbox {
		bg = geometry.NewBackground(geometry.DefaultBackground, 0)
	}
	return Job{
		Source:     src,
		Geometry:   geo,
		Format:     format,
		Quality:    req.Quality,
		Sharpen:    req.Sharpen,
		Rotation:   req.Rotation,
		Background: bg,
	}
}

// Codec renders a job from encoded source bytes into w.
type Codec interface {
	Name() string
	Supports(format imagetypes.Format) bool
	Render(src []byte, job Job, w io.Writer) error
}

// NewCodec returns the codec with the given name: "imaging" (the default)
// or "vips". The vips codec requires InitVips.
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "imaging":
		return ImagingCodec{}, nil
	case "vips", "libvips":
		if !IsVipsAvailable() {
			return nil, ErrVipsUnavailable
		}
		return VipsCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
