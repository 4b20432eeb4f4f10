package domain

import (
	"bytes"
	"io"
)

// Image is a decoded, normalized capture. It is shared read-only by all analyses of one appraisal.
type Image struct {
	data   []byte
	format string
	width  int
	height int
}

func NewImage(data []byte, format string, width, height int) *Image {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Image{
		data:   buf,
		format: format,
		width:  width,
		height: height,
	}
}

// Bytes returns the encoded image. Callers must not modify the returned slice.
func (img *Image) Bytes() []byte {
	if img == nil {
		return nil
	}
	return img.data
}

func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Bytes())
}

func (img *Image) Format() string {
	if img == nil {
		return ""
	}
	return img.format
}

func (img *Image) Width() int {
	if img == nil {
		return 0
	}
	return img.width
}

func (img *Image) Height() int {
	if img == nil {
		return 0
	}
	return img.height
}

func (img *Image) Empty() bool {
	return img == nil || len(img.data) == 0
}
