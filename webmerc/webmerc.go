// Package webmerc maps WGS84 degrees to tile coordinates in the standard
// web-map (spherical Mercator) tiling scheme, a.k.a. WebMercatorQuad / EPSG:3857.
package webmerc

import (
	"math"

	"github.com/pdok/tilecov/mathhelp"
)

// MaxLatitude is the northern/southern limit of the spherical Mercator
// projection. Latitudes beyond it are clamped, never rejected.
const MaxLatitude = 85.05112878

// ColRange is an inclusive range of tile column indices within one zoom level.
type ColRange struct {
	X0 int
	X1 int
}

// ClampLat clamps a latitude into the Mercator band.
func ClampLat(lat float64) float64 {
	return mathhelp.Clamp(lat, -MaxLatitude, MaxLatitude)
}

// WrapLon wraps a longitude into [-180, 180).
func WrapLon(lon float64) float64 {
	wrapped := math.Mod(lon+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180
}

func col(lon float64, n int) int {
	return mathhelp.Clamp(int(math.Floor((lon+180)/360*float64(n))), 0, n-1)
}

// Col returns the tile column containing a longitude, clamped to the grid.
func Col(lon float64, zoom int) int {
	return col(WrapLon(lon), int(mathhelp.Pow2(uint(zoom))))
}

// Row returns the tile row containing a latitude, clamped to the grid.
// Row 0 is the northernmost row.
func Row(lat float64, zoom int) int {
	n := int(mathhelp.Pow2(uint(zoom)))
	latRad := ClampLat(lat) * math.Pi / 180
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * float64(n)))
	return mathhelp.Clamp(y, 0, n-1)
}

// TileAt returns the column and row of the tile containing a point.
func TileAt(lon, lat float64, zoom int) (x, y int) {
	return Col(lon, zoom), Row(lat, zoom)
}

// ColumnRanges returns the inclusive column range(s) covered by a longitude
// span. A span that crosses the antimeridian (minLon > maxLon after wrapping)
// yields two ranges, one against each edge of the grid. A span of 360 degrees
// or more yields the full grid width.
func ColumnRanges(minLon, maxLon float64, zoom int) []ColRange {
	n := int(mathhelp.Pow2(uint(zoom)))
	if maxLon-minLon >= 360 {
		return []ColRange{{0, n - 1}}
	}
	wmin := WrapLon(minLon)
	wmax := WrapLon(maxLon)
	if wmax == -180 && maxLon > minLon {
		// an eastern edge at exactly 180 is the last column, not a wrap
		wmax = 180
	}
	x0 := col(wmin, n)
	x1 := col(wmax, n)
	if wmin > wmax {
		return []ColRange{{x0, n - 1}, {0, x1}}
	}
	return []ColRange{{x0, x1}}
}

// RowRange returns the inclusive row range covered by a latitude span.
// The smaller row index corresponds to the northern edge.
func RowRange(minLat, maxLat float64, zoom int) (y0, y1 int) {
	return Row(maxLat, zoom), Row(minLat, zoom)
}
