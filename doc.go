// Package uhdrgen builds UltraHDR JPEG files from a linear HDR raster and its SDR rendition.
//
// The SDR image is stored as a regular JPEG, a low resolution gain map describing how much
// to brighten each pixel is appended as a second JPEG, and both are tied together with
// XMP (hdrgm and Container namespaces) and a Multi-Picture Format index, so legacy viewers
// show the SDR image while HDR-aware readers recover the wider range.
package uhdrgen
