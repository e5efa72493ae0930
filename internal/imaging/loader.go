package imaging

import (
	"container/list"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
)

// DefaultCacheSize is the number of decoded images an ImageCache created
// with NewImageCache keeps.
const DefaultCacheSize = 64

// ImageCache keeps recently decoded corpus images so repeated tool calls on
// the same sample skip the disk read and decode.
//
// The cache is bounded: once it holds its capacity, loading a new path
// evicts the least recently used entry. Entries are keyed by the exact path
// string, so a relative and an absolute path to one file are cached twice.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	images   map[string]*list.Element
}

type cacheEntry struct {
	path string
	img  image.Image
}

// NewImageCache returns a cache holding up to DefaultCacheSize images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize returns a cache holding up to capacity images. A
// capacity below one is treated as one.
func NewImageCacheSize(capacity int) *ImageCache {
	return &ImageCache{
		capacity: max(1, capacity),
		order:    list.New(),
		images:   make(map[string]*list.Element),
	}
}

// Load returns the decoded image at path, reading it from disk on a miss.
// EXIF orientation is applied on decode, so a rotated phone capture comes
// back upright.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.Lock()
	if el, ok := c.images[path]; ok {
		c.order.MoveToFront(el)
		img := el.Value.(*cacheEntry).img
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.images[path]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).img, nil
	}
	c.images[path] = c.order.PushFront(&cacheEntry{path: path, img: img})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.images, oldest.Value.(*cacheEntry).path)
	}
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.order.Init()
	c.images = make(map[string]*list.Element)
	c.mu.Unlock()
}

// Evict drops the image cached under path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	if el, ok := c.images[path]; ok {
		c.order.Remove(el)
		delete(c.images, path)
	}
	c.mu.Unlock()
}

// ImageInfo describes an image file on disk.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder name reported by the file contents, e.g.
	// "jpeg" or "png", regardless of the file extension.
	Format string `json:"format"`

	// AspectRatio is Width divided by Height.
	AspectRatio float64 `json:"aspect_ratio"`

	// ColorModel is "gray", "ycbcr", "rgba", "paletted" or "other".
	ColorModel string `json:"color_model"`

	// HasAlpha reports whether the color model can carry transparency.
	HasAlpha      bool  `json:"has_alpha"`
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo reads the header of the image at path and reports its
// dimensions, format and color model. The pixel data is not decoded and the
// cache is not touched.
func LoadImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	info := &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		ColorModel:    "other",
		FileSizeBytes: stat.Size(),
	}
	if cfg.Height > 0 {
		info.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}
	if _, ok := cfg.ColorModel.(color.Palette); ok {
		info.ColorModel = "paletted"
		info.HasAlpha = true
		return info, nil
	}
	switch cfg.ColorModel {
	case color.GrayModel, color.Gray16Model:
		info.ColorModel = "gray"
	case color.YCbCrModel:
		info.ColorModel = "ycbcr"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		info.ColorModel = "rgba"
		info.HasAlpha = true
	}
	return info, nil
}

// DimensionsResult holds an image's size in pixels.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of the image at path, using the cached
// decode when present. Sizes reflect EXIF orientation.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &DimensionsResult{Width: b.Dx(), Height: b.Dy()}, nil
}
