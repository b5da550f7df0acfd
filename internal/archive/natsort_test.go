package archive

import (
	"reflect"
	"testing"
)

func TestNaturalSortOrdersNumericRuns(t *testing.T) {
	names := []string{"page10.jpg", "page2.jpg", "page1.jpg", "page20.jpg"}
	NaturalSort(names)

	want := []string{"page1.jpg", "page2.jpg", "page10.jpg", "page20.jpg"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestNaturalSortTiesBreakLexicographically(t *testing.T) {
	names := []string{"cover.jpg", "back.jpg"}
	NaturalSort(names)

	want := []string{"back.jpg", "cover.jpg"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v, want %v", names, want)
	}
}

func TestIsImageEntryFiltersNonPages(t *testing.T) {
	cases := map[string]bool{
		"page1.jpg":             true,
		"page1.JPEG":            true,
		"folder/":                false,
		".hidden.png":           false,
		"__MACOSX/page1.jpg":    false,
		"ComicInfo.xml":         false,
		"sub/__MACOSX/x.png":    false,
		"sub/page1.webp":        true,
		"covers/.thumbs/page1.jpg": false,
		".hidden/001.jpg":          false,
	}

	for name, want := range cases {
		if got := IsImageEntry(name); got != want {
			t.Errorf("IsImageEntry(%q) = %v, want %v", name, got, want)
		}
	}
}
