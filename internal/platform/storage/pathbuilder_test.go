package storage

import "testing"

func TestBuildProductImagePath(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductImage, PathParams{
		ProductID: "prod123",
		ImageID:   "01HZX",
		Extension: "PNG",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "products/prod123/images/01HZX.png"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildProductThumbnailPathDefaultsToJPEG(t *testing.T) {
	path, err := BuildObjectPath(PurposeProductThumbnail, PathParams{
		ProductID: "prod123",
		ImageID:   "01HZX",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "products/prod123/thumbnails/01HZX.jpg"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	_, err := BuildObjectPath(PurposeProductImage, PathParams{
		ProductID: "../bad",
		ImageID:   "image",
	})
	if err == nil {
		t.Fatalf("expected error for invalid segment")
	}
}

func TestBuildObjectPathUnknownPurpose(t *testing.T) {
	if _, err := BuildObjectPath(AssetPurpose("receipt"), PathParams{ProductID: "p", ImageID: "i"}); err == nil {
		t.Fatal("expected error for unknown purpose")
	}
}
