package database

import "slices"

// ComparePhotos orders enrollment photos for display: the primary photo first,
// then oldest first, then by ID so the order is total.
func ComparePhotos(a, b FaceEncoding) int {
	if a.IsPrimary != b.IsPrimary {
		if a.IsPrimary {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// SortPhotos sorts photos in place with ComparePhotos.
func SortPhotos(photos []FaceEncoding) {
	slices.SortStableFunc(photos, ComparePhotos)
}

// PrimaryPhoto returns the photo that represents the employee, or nil for no photos.
func PrimaryPhoto(photos []FaceEncoding) *FaceEncoding {
	if len(photos) == 0 {
		return nil
	}
	best := slices.MinFunc(photos, ComparePhotos)
	return &best
}
