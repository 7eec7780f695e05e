package storage

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// AssetPurpose selects the object layout for an upload.
type AssetPurpose string

const (
	PurposeProductImage     AssetPurpose = "product-image"
	PurposeProductThumbnail AssetPurpose = "product-thumbnail"
)

// PathParams identify the object being written.
type PathParams struct {
	ProductID string
	ImageID   string
	Extension string
}

// PathBuilder composes the object path for a purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposeProductImage:     buildProductImagePath,
		PurposeProductThumbnail: buildProductThumbnailPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for purpose. A nil
// builder removes it.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the object path for purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

func buildProductImagePath(p PathParams) (string, error) {
	product, image, ext, err := requireImageParams(p)
	if err != nil {
		return "", err
	}
	return path.Join("products", product, "images", image+ext), nil
}

func buildProductThumbnailPath(p PathParams) (string, error) {
	product, image, ext, err := requireImageParams(p)
	if err != nil {
		return "", err
	}
	return path.Join("products", product, "thumbnails", image+ext), nil
}

func requireImageParams(p PathParams) (string, string, string, error) {
	product := strings.TrimSpace(p.ProductID)
	image := strings.TrimSpace(p.ImageID)
	if product == "" || image == "" {
		return "", "", "", fmt.Errorf("storage: product id and image id are required")
	}
	if !validSegment(product) || !validSegment(image) {
		return "", "", "", fmt.Errorf("storage: invalid path segment")
	}
	ext := strings.ToLower(strings.TrimSpace(p.Extension))
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return product, image, ext, nil
}

func validSegment(value string) bool {
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
